package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/domino14/moveoracle/analysis"
)

// DefaultLocalMargin is added to the caller's time budget to form the hard
// timeout of a local engine call.
const DefaultLocalMargin = 5 * time.Second

// Searcher is a process handle that can run one search at a time.
type Searcher interface {
	Search(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error)
}

// LocalAdapter runs the locally installed engine.
type LocalAdapter struct {
	name   string
	engine Searcher
	margin time.Duration
}

func NewLocalAdapter(engine Searcher, margin time.Duration) *LocalAdapter {
	if margin <= 0 {
		margin = DefaultLocalMargin
	}
	return &LocalAdapter{name: NameStockfish, engine: engine, margin: margin}
}

func (a *LocalAdapter) Name() string { return a.name }
func (a *LocalAdapter) Kind() Kind   { return LocalProcess }

func (a *LocalAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, req.TimeBudget+a.margin)
	defer cancel()

	res, err := a.engine.Search(ctx, req.Position.FEN(), req.Depth, req.TimeBudget)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", analysis.ErrBackendTimeout, a.name)
		}
		return nil, fmt.Errorf("%s: %w", a.name, err)
	}
	if !res.Eval.Valid() {
		return nil, fmt.Errorf("%s: %w", a.name, analysis.ErrBadEvaluation)
	}
	return &analysis.Result{
		BestMove:           res.BestMove,
		Evaluation:         res.Eval,
		EngineUsed:         a.name,
		DepthReached:       res.Depth,
		PrincipalVariation: res.PV,
	}, nil
}
