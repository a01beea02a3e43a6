package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/position"
)

const foolsMate = "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"

func TestHeuristicAdapter(t *testing.T) {
	is := is.New(t)
	a := NewHeuristicAdapter(nil)
	res, err := a.Analyze(context.Background(), startRequest())
	is.NoErr(err)
	is.Equal(res.BestMove, "e2e4")
	is.Equal(*res.Evaluation.CP, 0)
	is.Equal(res.DepthReached, 1)
	is.Equal(res.PrincipalVariation, []string{"e2e4"})
}

func TestHeuristicAdapterTerminal(t *testing.T) {
	is := is.New(t)
	req := analysis.NewRequest(position.MustParse(foolsMate), 1, 0)
	_, err := NewHeuristicAdapter(nil).Analyze(context.Background(), req)
	is.True(errors.Is(err, analysis.ErrNoLegalMoves))
}

func TestRandomAdapter(t *testing.T) {
	is := is.New(t)
	pos := position.MustParse(position.StartFEN)
	a := NewRandomAdapter()
	for i := 0; i < 20; i++ {
		res, err := a.Analyze(context.Background(), analysis.NewRequest(pos, 1, 0))
		is.NoErr(err)
		is.True(pos.IsLegal(res.BestMove))
		is.True(res.Evaluation.Valid())
	}
	a.intn = func(n int) int { return n - 1 }
	res, err := a.Analyze(context.Background(), analysis.NewRequest(pos, 1, 0))
	is.NoErr(err)
	is.Equal(res.BestMove, pos.LegalMoves()[len(pos.LegalMoves())-1].String())
}
