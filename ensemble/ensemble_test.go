package ensemble

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/position"
)

func TestTallyUnanimous(t *testing.T) {
	is := is.New(t)
	c, err := Tally([]Vote{{Backend: "stockfish", Move: "e2e4", Weight: 0.8}, {Backend: "random", Move: "e2e4", Weight: 0.2}})
	is.NoErr(err)
	is.Equal(c.Move, "e2e4")
	is.Equal(c.Confidence, 100.0)
}

func TestTallySplit(t *testing.T) {
	is := is.New(t)
	c, err := Tally([]Vote{{Backend: "stockfish", Move: "e2e4", Weight: 0.8}, {Backend: "random", Move: "d2d4", Weight: 0.2}})
	is.NoErr(err)
	is.Equal(c.Move, "e2e4")
	is.Equal(c.Confidence, 40.0)
	is.Equal(c.Tally["d2d4"], 0.2)
}

func TestTallyTieGoesToFirstSeen(t *testing.T) {
	is := is.New(t)
	c, err := Tally([]Vote{
		{Backend: "x", Move: "g1f3", Weight: 0.5},
		{Backend: "y", Move: "d2d4", Weight: 0.5},
	})
	is.NoErr(err)
	is.Equal(c.Move, "g1f3")
	is.Equal(c.Confidence, 25.0)
}

func TestTallyRoundedTieGoesToFirstSeen(t *testing.T) {
	is := is.New(t)
	names := []string{"lichess", "stockfish", "chessdb", "heuristic", "random"}
	moves := []string{"d2d4", "e2e4", "d2d4", "e2e4", "e2e4"}
	var votes []Vote
	for i, n := range names {
		votes = append(votes, Vote{Backend: n, Move: moves[i], Weight: Weight(n)})
	}
	c, err := Tally(votes)
	is.NoErr(err)
	is.Equal(c.Move, "d2d4")
	is.Equal(c.Confidence, 70.0)
}

func TestTallyEmpty(t *testing.T) {
	is := is.New(t)
	_, err := Tally(nil)
	is.True(errors.Is(err, ErrAllBackendsFailed))
}

func TestWeights(t *testing.T) {
	is := is.New(t)
	is.Equal(Weight("stockfish"), 0.8)
	is.Equal(Weight("random"), 0.2)
	is.Equal(Weight("mystery"), DefaultWeight)
}

type stubAnalyzer struct {
	moves map[string]string
	delay map[string]time.Duration
	calls atomic.Int32
}

func (s *stubAnalyzer) Knows(name string) bool {
	_, ok := s.moves[name]
	return ok
}

func (s *stubAnalyzer) AnalyzeWith(ctx context.Context, name string, req analysis.Request) (*analysis.Result, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay[name]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	mv := s.moves[name]
	if mv == "" {
		return nil, errors.New("failed")
	}
	return &analysis.Result{BestMove: mv, Evaluation: analysis.Centipawns(0), EngineUsed: name}, nil
}

func startReq() analysis.Request {
	return analysis.NewRequest(position.MustParse(position.StartFEN), 5, time.Second)
}

func TestRunKeepsRequestOrder(t *testing.T) {
	is := is.New(t)
	a := &stubAnalyzer{
		moves: map[string]string{"stockfish": "d2d4", "random": "e2e4", "lichess": "e2e4"},
		delay: map[string]time.Duration{"stockfish": 30 * time.Millisecond},
	}
	c, err := NewAggregator(a, time.Second).Run(context.Background(),
		[]string{"stockfish", "random", "bogus", "lichess"}, startReq())
	is.NoErr(err)
	is.Equal(len(c.Votes), 3)
	is.Equal(c.Votes[0].Backend, "stockfish")
	is.Equal(c.Unknown, []string{"bogus"})
	// d2d4 has 0.8, e2e4 has 0.2 + 0.7.
	is.Equal(c.Move, "e2e4")
	is.Equal(c.Confidence, 45.0)
}

func TestRunUnknownNamesOnly(t *testing.T) {
	is := is.New(t)
	a := &stubAnalyzer{moves: map[string]string{"stockfish": "e2e4"}}
	_, err := NewAggregator(a, time.Second).Run(context.Background(), []string{"bogus"}, startReq())
	is.True(errors.Is(err, ErrAllBackendsFailed))
	is.Equal(a.calls.Load(), int32(0))
}

func TestRunCeiling(t *testing.T) {
	is := is.New(t)
	a := &stubAnalyzer{
		moves: map[string]string{"stockfish": "e2e4", "lichess": "d2d4"},
		delay: map[string]time.Duration{"lichess": time.Hour},
	}
	start := time.Now()
	c, err := NewAggregator(a, 30*time.Millisecond).Run(context.Background(), []string{"stockfish", "lichess"}, startReq())
	is.NoErr(err)
	is.True(time.Since(start) < time.Second)
	is.Equal(c.Move, "e2e4")
	is.Equal(len(c.Votes), 1)
}
