package backend

import (
	"context"

	"lukechampine.com/frand"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/heuristic"
)

// RandomAdapter plays a uniformly random legal move. It is a baseline for
// ensembles, not something the fallback chain uses.
type RandomAdapter struct {
	intn func(n int) int
}

func NewRandomAdapter() *RandomAdapter {
	return &RandomAdapter{intn: frand.Intn}
}

func (a *RandomAdapter) Name() string { return NameRandom }
func (a *RandomAdapter) Kind() Kind   { return Random }

func (a *RandomAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	moves := req.Position.LegalMoves()
	if len(moves) == 0 {
		return nil, analysis.ErrNoLegalMoves
	}
	mv := moves[a.intn(len(moves))].String()
	return &analysis.Result{
		BestMove:           mv,
		Evaluation:         analysis.Centipawns(heuristic.Evaluate(req.Position)),
		EngineUsed:         NameRandom,
		DepthReached:       1,
		PrincipalVariation: []string{mv},
	}, nil
}
