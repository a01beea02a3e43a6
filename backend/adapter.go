// Package backend contains the analysis backends the orchestrator can ask
// for a move: a local UCI engine, remote evaluation services, a remote
// moveoracle behind AWS Lambda, the heuristic evaluator and a random mover.
package backend

import (
	"context"

	"github.com/domino14/moveoracle/analysis"
)

type Kind int

const (
	LocalProcess Kind = iota
	Remote
	Heuristic
	Random
)

func (k Kind) String() string {
	switch k {
	case LocalProcess:
		return "local"
	case Remote:
		return "remote"
	case Heuristic:
		return "heuristic"
	case Random:
		return "random"
	}
	return "unknown"
}

// Adapter is a single analysis backend. Adapters return raw results: the
// move and principal variation may still need normalizing, and callers must
// check legality before trusting them.
type Adapter interface {
	Name() string
	Kind() Kind
	Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error)
}

// Names used in the ensemble weight table and on the wire.
const (
	NameStockfish       = "stockfish"
	NameLichess         = "lichess"
	NameChessDB         = "chessdb"
	NameStockfishOnline = "stockfish-online"
	NameLambda          = "lambda"
	NameHeuristic       = "heuristic"
	NameRandom          = "random"
)
