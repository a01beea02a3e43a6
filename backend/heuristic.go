package backend

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/heuristic"
)

// HeuristicAdapter never fails while a legal move exists.
type HeuristicAdapter struct {
	eval *heuristic.Evaluator
}

func NewHeuristicAdapter(eval *heuristic.Evaluator) *HeuristicAdapter {
	if eval == nil {
		eval = heuristic.NewEvaluator()
	}
	return &HeuristicAdapter{eval: eval}
}

func (a *HeuristicAdapter) Name() string { return NameHeuristic }
func (a *HeuristicAdapter) Kind() Kind   { return Heuristic }

func (a *HeuristicAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	mv, book, err := a.eval.BestMove(req.Position)
	if err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Debug().Str("move", mv).Bool("book", book).Msg("heuristic-move")
	return &analysis.Result{
		BestMove:           mv,
		Evaluation:         analysis.Centipawns(heuristic.Evaluate(req.Position)),
		EngineUsed:         NameHeuristic,
		DepthReached:       1,
		PrincipalVariation: []string{mv},
	}, nil
}
