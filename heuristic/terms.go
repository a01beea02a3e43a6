package heuristic

import (
	"github.com/notnil/chess"

	"github.com/domino14/moveoracle/position"
)

// Term is one additive component of a move's heuristic score. Terms are
// summed; a move's score is the sum over all configured terms.
type Term interface {
	Score(m *chess.Move, pos *position.Position) int
	Type() string
}

// captureValues are in centipawns. The king is valued at zero here because a
// legal king capture can never be recaptured.
var captureValues = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 300,
	chess.Bishop: 300,
	chess.Rook:   500,
	chess.Queen:  900,
	chess.King:   0,
}

// materialSwing returns victim minus attacker value for a capture, and false
// if m is not a capture.
func materialSwing(m *chess.Move, pos *position.Position) (int, bool) {
	board := pos.Board()
	attacker := board.Piece(m.S1())
	var victim chess.PieceType
	switch {
	case m.HasTag(chess.EnPassant):
		victim = chess.Pawn
	case m.HasTag(chess.Capture):
		victim = board.Piece(m.S2()).Type()
	default:
		return 0, false
	}
	if attacker.Type() == chess.King {
		return captureValues[victim], true
	}
	return captureValues[victim] - captureValues[attacker.Type()], true
}

func losingCapture(m *chess.Move, pos *position.Position) bool {
	swing, ok := materialSwing(m, pos)
	return ok && swing < 0
}

// CaptureTerm rewards even or winning captures in proportion to the gain
// and heavily penalizes captures that give up material.
type CaptureTerm struct {
	GainDivisor      int
	SacrificePenalty int
}

func (t CaptureTerm) Score(m *chess.Move, pos *position.Position) int {
	swing, ok := materialSwing(m, pos)
	if !ok {
		return 0
	}
	if swing < 0 {
		return -t.SacrificePenalty
	}
	return swing / t.GainDivisor
}

func (t CaptureTerm) Type() string { return "capture" }

// CheckTerm rewards giving check, unless the checking move is a losing
// capture.
type CheckTerm struct {
	Bonus int
}

func (t CheckTerm) Score(m *chess.Move, pos *position.Position) int {
	if !m.HasTag(chess.Check) || losingCapture(m, pos) {
		return 0
	}
	return t.Bonus
}

func (t CheckTerm) Type() string { return "check" }

// CenterTerm rewards landing on d4, e4, d5 or e5.
type CenterTerm struct {
	Bonus int
}

func (t CenterTerm) Score(m *chess.Move, pos *position.Position) int {
	to := m.S2()
	f, r := to.File(), to.Rank()
	if (f == chess.FileD || f == chess.FileE) && (r == chess.Rank4 || r == chess.Rank5) {
		return t.Bonus
	}
	return 0
}

func (t CenterTerm) Type() string { return "center" }

// DevelopmentTerm rewards knights and bishops leaving their own back rank.
type DevelopmentTerm struct {
	Bonus int
}

func (t DevelopmentTerm) Score(m *chess.Move, pos *position.Position) int {
	pc := pos.Board().Piece(m.S1())
	if pc.Type() != chess.Knight && pc.Type() != chess.Bishop {
		return 0
	}
	back := chess.Rank1
	if pc.Color() == chess.Black {
		back = chess.Rank8
	}
	if m.S1().Rank() == back {
		return t.Bonus
	}
	return 0
}

func (t DevelopmentTerm) Type() string { return "development" }

// EdgeTerm penalizes moving onto the outer ring of the board.
type EdgeTerm struct {
	Penalty int
}

func (t EdgeTerm) Score(m *chess.Move, pos *position.Position) int {
	to := m.S2()
	f, r := to.File(), to.Rank()
	if f == chess.FileA || f == chess.FileH || r == chess.Rank1 || r == chess.Rank8 {
		return -t.Penalty
	}
	return 0
}

func (t EdgeTerm) Type() string { return "edge" }

// PromotionTerm rewards promotions by the material the new piece adds.
type PromotionTerm struct {
	GainDivisor int
}

func (t PromotionTerm) Score(m *chess.Move, pos *position.Position) int {
	if m.Promo() == chess.NoPieceType {
		return 0
	}
	return (captureValues[m.Promo()] - captureValues[chess.Pawn]) / t.GainDivisor
}

func (t PromotionTerm) Type() string { return "promotion" }

// DefaultTerms is the standard scoring strategy.
func DefaultTerms() []Term {
	return []Term{
		CaptureTerm{GainDivisor: 10, SacrificePenalty: 200},
		CheckTerm{Bonus: 30},
		CenterTerm{Bonus: 20},
		DevelopmentTerm{Bonus: 25},
		EdgeTerm{Penalty: 5},
		PromotionTerm{GainDivisor: 10},
	}
}
