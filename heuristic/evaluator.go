// Package heuristic is the last-resort move selector: an opening book, a
// one-ply scoring of every legal move, and a material count.
package heuristic

import (
	"sort"

	"github.com/notnil/chess"
	"github.com/samber/lo"
	"lukechampine.com/frand"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/position"
)

const (
	// BlunderThreshold is the score at or below which a move is only
	// played if nothing better exists.
	BlunderThreshold = -100
	// JitterRange bounds the tie-breaking noise.
	JitterRange = 5
)

// Source is the random source used for tie-breaking.
type Source interface {
	Intn(n int) int
}

type frandSource struct{}

func (frandSource) Intn(n int) int { return frand.Intn(n) }

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   0,
}

// Evaluate returns the material balance in centipawns from the side to
// move's point of view.
func Evaluate(pos *position.Position) int {
	total := 0
	for _, pc := range pos.Board().SquareMap() {
		v := pieceValues[pc.Type()]
		if pc.Color() == chess.White {
			total += v
		} else {
			total -= v
		}
	}
	total *= 100
	if pos.SideToMove() == chess.Black {
		total = -total
	}
	return total
}

// ScoredMove is a legal move with its heuristic score.
type ScoredMove struct {
	Move   string
	Score  int
	jitter int
}

func (s ScoredMove) Blunder() bool { return s.Score <= BlunderThreshold }

type Evaluator struct {
	terms  []Term
	book   *Book
	source Source
}

type Option func(*Evaluator)

func WithTerms(terms ...Term) Option {
	return func(e *Evaluator) { e.terms = terms }
}

func WithBook(b *Book) Option {
	return func(e *Evaluator) { e.book = b }
}

// WithSource injects the jitter source, e.g. a seeded math/rand in tests.
func WithSource(s Source) Option {
	return func(e *Evaluator) { e.source = s }
}

func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{
		terms:  DefaultTerms(),
		book:   DefaultBook(),
		source: frandSource{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Evaluator) Book() *Book { return e.book }

func (e *Evaluator) score(m *chess.Move, pos *position.Position) int {
	return lo.SumBy(e.terms, func(t Term) int { return t.Score(m, pos) })
}

// Rank scores every legal move, best first. Jitter only orders moves with
// equal scores.
func (e *Evaluator) Rank(pos *position.Position) []ScoredMove {
	moves := pos.LegalMoves()
	ranked := make([]ScoredMove, len(moves))
	for i, m := range moves {
		ranked[i] = ScoredMove{
			Move:   m.String(),
			Score:  e.score(m, pos),
			jitter: 1 + e.source.Intn(JitterRange),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].jitter > ranked[j].jitter
	})
	return ranked
}

// BestMove returns the book move if the position is in the book, otherwise
// the best scoring move above the blunder threshold, otherwise the least bad
// move. The second return reports whether the book was used. It fails only
// with analysis.ErrNoLegalMoves.
func (e *Evaluator) BestMove(pos *position.Position) (string, bool, error) {
	if pos.Terminal() {
		return "", false, analysis.ErrNoLegalMoves
	}
	if mv, ok := e.book.Lookup(pos); ok {
		return mv, true, nil
	}
	// Blunders sort after every playable move, so the head of the ranking
	// is a non-blunder whenever one exists and the least bad move otherwise.
	return e.Rank(pos)[0].Move, false, nil
}
