// Package analysis holds the data that flows between backends, the
// orchestrator and callers: requests, results and evaluations.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/domino14/moveoracle/position"
)

var (
	// ErrNoLegalMoves is the definitive "no move available" outcome for
	// checkmate and stalemate positions.
	ErrNoLegalMoves = errors.New("no legal moves")
	// ErrBackendTimeout is returned by adapters whose call ran out of time.
	ErrBackendTimeout = errors.New("backend timeout")
	// ErrIllegalMove is returned when a backend proposes a move that is not
	// legal in the requested position.
	ErrIllegalMove = errors.New("illegal move")
	// ErrBadEvaluation is returned when a result does not carry exactly one
	// of centipawns or mate.
	ErrBadEvaluation = errors.New("evaluation must carry exactly one of cp or mate")
	// ErrUnavailable is returned by adapters that cannot serve requests.
	ErrUnavailable = errors.New("backend unavailable")
)

const (
	DefaultDepth      = 12
	DefaultTimeBudget = 3 * time.Second
)

// Evaluation is a score from the side to move's point of view. Exactly one
// of CP and Mate is non-nil.
type Evaluation struct {
	CP   *int `json:"cp"`
	Mate *int `json:"mate"`
}

func Centipawns(cp int) Evaluation {
	return Evaluation{CP: &cp}
}

func MateIn(n int) Evaluation {
	return Evaluation{Mate: &n}
}

func (e Evaluation) Valid() bool {
	return (e.CP == nil) != (e.Mate == nil)
}

// Negate flips the perspective of the evaluation.
func (e Evaluation) Negate() Evaluation {
	switch {
	case e.CP != nil:
		return Centipawns(-*e.CP)
	case e.Mate != nil:
		return MateIn(-*e.Mate)
	}
	return e
}

func (e Evaluation) String() string {
	switch {
	case e.CP != nil:
		return fmt.Sprintf("%+.2f", float64(*e.CP)/100)
	case e.Mate != nil:
		return fmt.Sprintf("#%d", *e.Mate)
	}
	return "?"
}

// WinningChances maps an evaluation to a rough 0-100 winning percentage for
// the side to move.
func WinningChances(e Evaluation) float64 {
	if e.Mate != nil {
		if *e.Mate > 0 {
			return 100
		}
		return 0
	}
	if e.CP == nil {
		return 50
	}
	pct := 50 + float64(*e.CP)/100*10
	pct = math.Round(pct*10) / 10
	return math.Max(0, math.Min(100, pct))
}

// Request is one analysis request for a single, already-parsed position.
type Request struct {
	Position   *position.Position
	Depth      int
	TimeBudget time.Duration
}

// NewRequest fills in defaults for a non-positive depth or budget.
func NewRequest(pos *position.Position, depth int, budget time.Duration) Request {
	if depth < 1 {
		depth = 1
	}
	if budget <= 0 {
		budget = DefaultTimeBudget
	}
	return Request{Position: pos, Depth: depth, TimeBudget: budget}
}

// Result is a single backend's answer for a position.
type Result struct {
	BestMove           string     `json:"best_move"`
	Evaluation         Evaluation `json:"evaluation"`
	EngineUsed         string     `json:"engine_used"`
	DepthReached       int        `json:"depth_reached"`
	PrincipalVariation []string   `json:"principal_variation"`
}
