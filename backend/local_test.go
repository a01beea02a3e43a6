package backend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/position"
)

type searcherFunc func(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error)

func (f searcherFunc) Search(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error) {
	return f(ctx, fen, depth, movetime)
}

func startRequest() analysis.Request {
	return analysis.NewRequest(position.MustParse(position.StartFEN), 10, 100*time.Millisecond)
}

func TestLocalAdapter(t *testing.T) {
	is := is.New(t)
	var gotDepth int
	var gotDeadline time.Duration
	a := NewLocalAdapter(searcherFunc(func(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error) {
		gotDepth = depth
		dl, _ := ctx.Deadline()
		gotDeadline = time.Until(dl)
		return SearchResult{
			BestMove: "bestmove e2e4 ponder e7e5",
			Depth:    10,
			Eval:     analysis.Centipawns(25),
			PV:       []string{"e2e4", "e7e5"},
		}, nil
	}), time.Second)

	res, err := a.Analyze(context.Background(), startRequest())
	is.NoErr(err)
	is.Equal(res.EngineUsed, NameStockfish)
	is.Equal(res.BestMove, "bestmove e2e4 ponder e7e5")
	is.Equal(gotDepth, 10)
	is.True(gotDeadline > time.Second && gotDeadline <= 1100*time.Millisecond)
	is.Equal(a.Kind(), LocalProcess)
}

func TestLocalAdapterTimeout(t *testing.T) {
	is := is.New(t)
	a := NewLocalAdapter(searcherFunc(func(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error) {
		<-ctx.Done()
		return SearchResult{}, ctx.Err()
	}), time.Millisecond)

	_, err := a.Analyze(context.Background(), analysis.NewRequest(position.MustParse(position.StartFEN), 1, time.Millisecond))
	is.True(errors.Is(err, analysis.ErrBackendTimeout))
}

func TestLocalAdapterMissingScore(t *testing.T) {
	is := is.New(t)
	a := NewLocalAdapter(searcherFunc(func(ctx context.Context, fen string, depth int, movetime time.Duration) (SearchResult, error) {
		return SearchResult{BestMove: "bestmove e2e4"}, nil
	}), 0)
	_, err := a.Analyze(context.Background(), startRequest())
	is.True(errors.Is(err, analysis.ErrBadEvaluation))
}
