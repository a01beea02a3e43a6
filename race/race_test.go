package race

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matryer/is"
)

// after succeeds with v after d unless cancelled first.
func after(d time.Duration, v string, cancelled *atomic.Int32) Task[string] {
	return func(ctx context.Context) (string, error) {
		select {
		case <-time.After(d):
			return v, nil
		case <-ctx.Done():
			if cancelled != nil {
				cancelled.Add(1)
			}
			return "", ctx.Err()
		}
	}
}

func never(cancelled *atomic.Int32) Task[string] {
	return after(time.Hour, "never", cancelled)
}

func fails(d time.Duration) Task[string] {
	return func(ctx context.Context) (string, error) {
		time.Sleep(d)
		return "", errors.New("boom")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFastestWins(t *testing.T) {
	is := is.New(t)
	var cancelled atomic.Int32
	v, err := First(context.Background(), time.Second,
		after(60*time.Millisecond, "slow", &cancelled),
		after(5*time.Millisecond, "fast", &cancelled),
		after(90*time.Millisecond, "slower", &cancelled),
	)
	is.NoErr(err)
	is.Equal(v, "fast")
	waitFor(t, func() bool { return cancelled.Load() == 2 })
}

func TestWinnerAmongNeverResolving(t *testing.T) {
	is := is.New(t)
	var cancelled atomic.Int32
	start := time.Now()
	v, err := First(context.Background(), 10*time.Second,
		never(&cancelled), never(&cancelled), after(10*time.Millisecond, "only", nil), never(&cancelled))
	is.NoErr(err)
	is.Equal(v, "only")
	is.True(time.Since(start) < time.Second)
	waitFor(t, func() bool { return cancelled.Load() == 3 })
}

func TestFailureDoesNotWin(t *testing.T) {
	is := is.New(t)
	v, err := First(context.Background(), time.Second,
		fails(time.Millisecond), after(20*time.Millisecond, "ok", nil))
	is.NoErr(err)
	is.Equal(v, "ok")
}

func TestAllFail(t *testing.T) {
	is := is.New(t)
	_, err := First(context.Background(), time.Second, fails(0), fails(time.Millisecond))
	is.True(errors.Is(err, ErrNoWinner))
}

func TestNoTasks(t *testing.T) {
	is := is.New(t)
	_, err := First[string](context.Background(), time.Second)
	is.True(errors.Is(err, ErrNoWinner))
}

func TestCeiling(t *testing.T) {
	is := is.New(t)
	var cancelled atomic.Int32
	start := time.Now()
	_, err := First(context.Background(), 20*time.Millisecond, never(&cancelled), never(&cancelled))
	is.True(errors.Is(err, ErrCeiling))
	is.True(time.Since(start) < time.Second)
	waitFor(t, func() bool { return cancelled.Load() == 2 })
}

func TestParentCancel(t *testing.T) {
	is := is.New(t)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := First(ctx, time.Second, never(nil))
	is.True(errors.Is(err, context.Canceled))
}

func TestLateResultIgnored(t *testing.T) {
	is := is.New(t)
	finished := make(chan struct{})
	var stubborn Task[string] = func(ctx context.Context) (string, error) {
		// Ignores cancellation and succeeds late.
		time.Sleep(30 * time.Millisecond)
		close(finished)
		return "late", nil
	}
	v, err := First(context.Background(), time.Second, stubborn, after(time.Millisecond, "first", nil))
	is.NoErr(err)
	<-finished
	is.Equal(v, "first")
}
