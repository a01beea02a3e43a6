package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/domino14/moveoracle/analysis"
	"github.com/domino14/moveoracle/backend"
)

type stubAdapter struct {
	name  string
	move  string
	err   error
	calls atomic.Int32
}

func (s *stubAdapter) Name() string       { return s.name }
func (s *stubAdapter) Kind() backend.Kind { return backend.Remote }

func (s *stubAdapter) Analyze(ctx context.Context, req analysis.Request) (*analysis.Result, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &analysis.Result{BestMove: s.move, Evaluation: analysis.Centipawns(0)}, nil
}

func TestCheck(t *testing.T) {
	is := is.New(t)
	good := &stubAdapter{name: "good", move: "bestmove e2e4 ponder e7e5"}
	down := &stubAdapter{name: "down", err: errors.New("connection refused")}
	liar := &stubAdapter{name: "liar", move: "e2e5"}
	m := NewMonitor([]backend.Adapter{good, down, liar}, time.Second)

	before := m.Snapshot()
	is.True(!before.Available("good"))

	snap := m.Check(context.Background())
	is.True(snap.Available("good"))
	is.True(!snap.Available("down"))
	is.True(!snap.Available("liar"))
	is.True(!snap.Available("missing"))
	is.Equal(snap.Names(), []string{"down", "good", "liar"})
	st, ok := snap.Status("down")
	is.True(ok)
	is.Equal(st.Error, "connection refused")
	is.True(!st.LastTestedAt.IsZero())
	is.Equal(st.History.Samples, 0)
	st, _ = snap.Status("good")
	is.Equal(st.History.Samples, 1)

	st, _ = m.Check(context.Background()).Status("good")
	is.Equal(st.History.Samples, 2)
	is.True(st.History.Upper >= st.History.Mean)

	// The earlier snapshot is untouched.
	is.True(!before.Available("good"))
	is.True(m.Snapshot() != snap)
}

func TestRunRechecks(t *testing.T) {
	is := is.New(t)
	a := &stubAdapter{name: "a", move: "e2e4"}
	m := NewMonitor([]backend.Adapter{a}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	deadline := time.Now().Add(2 * time.Second)
	for a.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done
	is.True(a.calls.Load() >= 3)
	is.True(m.Snapshot().Available("a"))
}

func TestFixed(t *testing.T) {
	is := is.New(t)
	src := Fixed(map[string]bool{"stockfish": true, "lichess": false})
	is.True(src.Snapshot().Available("stockfish"))
	is.True(!src.Snapshot().Available("lichess"))
	var nilSnap *Snapshot
	is.True(!nilSnap.Available("stockfish"))
}
