// Package position parses and validates the six-field position encoding
// (FEN) and exposes the legal move set of the parsed board.
package position

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/notnil/chess"
)

// ErrInvalidPosition is returned for any malformed position encoding.
var ErrInvalidPosition = errors.New("invalid position")

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable parsed board state. Its legal moves are computed
// once at parse time so a Position may be shared between goroutines.
type Position struct {
	fen       string
	placement string
	turn      chess.Color
	castling  string
	enPassant string
	halfMoves int
	fullMoves int

	pos   *chess.Position
	moves []*chess.Move
	legal map[string]*chess.Move
}

// Parse validates fen and returns the parsed position. It never has side
// effects beyond the allocation of the returned value.
func Parse(fen string) (*Position, error) {
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return nil, fmt.Errorf("%w: expected 6 fields, got %d", ErrInvalidPosition, len(fields))
	}
	p := &Position{
		fen:       strings.Join(fields, " "),
		placement: fields[0],
		castling:  fields[2],
		enPassant: fields[3],
	}
	if err := checkPlacement(fields[0]); err != nil {
		return nil, err
	}
	switch fields[1] {
	case "w":
		p.turn = chess.White
	case "b":
		p.turn = chess.Black
	default:
		return nil, fmt.Errorf("%w: side to move %q", ErrInvalidPosition, fields[1])
	}
	if err := checkCastling(fields[2]); err != nil {
		return nil, err
	}
	if err := checkEnPassant(fields[3], p.turn); err != nil {
		return nil, err
	}
	var err error
	if p.halfMoves, err = strconv.Atoi(fields[4]); err != nil || p.halfMoves < 0 {
		return nil, fmt.Errorf("%w: half-move clock %q", ErrInvalidPosition, fields[4])
	}
	if p.fullMoves, err = strconv.Atoi(fields[5]); err != nil || p.fullMoves < 1 {
		return nil, fmt.Errorf("%w: full-move number %q", ErrInvalidPosition, fields[5])
	}

	opt, err := chess.FEN(p.fen)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	p.pos = chess.NewGame(opt).Position()
	p.moves = p.pos.ValidMoves()
	p.legal = make(map[string]*chess.Move, len(p.moves))
	for _, m := range p.moves {
		p.legal[m.String()] = m
	}
	return p, nil
}

// MustParse is like Parse but panics on error. Meant for tests and constant
// positions.
func MustParse(fen string) *Position {
	p, err := Parse(fen)
	if err != nil {
		panic(err)
	}
	return p
}

func checkPlacement(placement string) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return fmt.Errorf("%w: placement has %d ranks", ErrInvalidPosition, len(ranks))
	}
	kings := map[rune]int{}
	for i, rank := range ranks {
		squares := 0
		prevDigit := false
		for _, c := range rank {
			switch {
			case c >= '1' && c <= '8':
				if prevDigit {
					return fmt.Errorf("%w: rank %d has adjacent digits", ErrInvalidPosition, 8-i)
				}
				squares += int(c - '0')
				prevDigit = true
			case strings.ContainsRune("pnbrqkPNBRQK", c):
				squares++
				prevDigit = false
				if c == 'k' || c == 'K' {
					kings[c]++
				}
				if (c == 'p' || c == 'P') && (i == 0 || i == 7) {
					return fmt.Errorf("%w: pawn on back rank", ErrInvalidPosition)
				}
			default:
				return fmt.Errorf("%w: unexpected %q in placement", ErrInvalidPosition, c)
			}
		}
		if squares != 8 {
			return fmt.Errorf("%w: rank %d covers %d squares", ErrInvalidPosition, 8-i, squares)
		}
	}
	if kings['K'] != 1 || kings['k'] != 1 {
		return fmt.Errorf("%w: need exactly one king per side", ErrInvalidPosition)
	}
	return nil
}

func checkCastling(s string) error {
	if s == "-" {
		return nil
	}
	seen := map[rune]bool{}
	for _, c := range s {
		if !strings.ContainsRune("KQkq", c) || seen[c] {
			return fmt.Errorf("%w: castling rights %q", ErrInvalidPosition, s)
		}
		seen[c] = true
	}
	return nil
}

func checkEnPassant(s string, turn chess.Color) error {
	if s == "-" {
		return nil
	}
	want := byte('6')
	if turn == chess.Black {
		want = '3'
	}
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] != want {
		return fmt.Errorf("%w: en-passant target %q", ErrInvalidPosition, s)
	}
	return nil
}

// FEN returns the normalized encoding (single spaces between fields).
func (p *Position) FEN() string { return p.fen }

func (p *Position) String() string { return p.fen }

func (p *Position) Placement() string { return p.placement }

func (p *Position) SideToMove() chess.Color { return p.turn }

func (p *Position) CastlingRights() string { return p.castling }

func (p *Position) EnPassant() string { return p.enPassant }

func (p *Position) HalfMoveClock() int { return p.halfMoves }

func (p *Position) FullMoveNumber() int { return p.fullMoves }

// Key identifies the board independent of en-passant target and move
// counters: placement, side to move and castling rights.
func (p *Position) Key() string {
	side := "w"
	if p.turn == chess.Black {
		side = "b"
	}
	return p.placement + " " + side + " " + p.castling
}

// Board returns the underlying board. Callers must not mutate it.
func (p *Position) Board() *chess.Board { return p.pos.Board() }

// LegalMoves returns the legal moves. The slice is shared; do not modify it.
func (p *Position) LegalMoves() []*chess.Move { return p.moves }

// IsLegal reports whether the canonical move token is legal here.
func (p *Position) IsLegal(token string) bool {
	_, ok := p.legal[token]
	return ok
}

// Move looks up a legal move by its canonical token.
func (p *Position) Move(token string) (*chess.Move, bool) {
	m, ok := p.legal[token]
	return m, ok
}

// Play returns the position after the legal move token.
func (p *Position) Play(token string) (*Position, error) {
	m, ok := p.legal[token]
	if !ok {
		return nil, fmt.Errorf("illegal move %s in %s", token, p.fen)
	}
	return Parse(p.pos.Update(m).String())
}

// Terminal reports whether the side to move has no legal moves
// (checkmate or stalemate).
func (p *Position) Terminal() bool { return len(p.moves) == 0 }

// Phase classifies the game stage by move number.
type Phase int

const (
	Opening Phase = iota
	Middlegame
	Endgame
)

func (ph Phase) String() string {
	switch ph {
	case Opening:
		return "opening"
	case Middlegame:
		return "middlegame"
	}
	return "endgame"
}

func (p *Position) Phase() Phase {
	switch {
	case p.fullMoves <= 10:
		return Opening
	case p.fullMoves <= 40:
		return Middlegame
	}
	return Endgame
}
