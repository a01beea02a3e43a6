// Package race runs equivalent tasks concurrently and keeps the first
// success.
package race

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrNoWinner means every task finished without success.
	ErrNoWinner = errors.New("no task succeeded")
	// ErrCeiling means the overall ceiling elapsed before any success.
	ErrCeiling = errors.New("race ceiling elapsed")
)

// Task must return promptly once its context is cancelled.
type Task[T any] func(ctx context.Context) (T, error)

// First launches all tasks and returns the result of the first one to
// succeed. The context passed to the tasks is cancelled as soon as there is
// a winner, when the ceiling elapses, or when ctx is done; losing tasks are
// not waited for and their results are dropped. A ceiling <= 0 means no
// ceiling.
func First[T any](ctx context.Context, ceiling time.Duration, tasks ...Task[T]) (T, error) {
	var zero T
	if len(tasks) == 0 {
		return zero, ErrNoWinner
	}
	parent := ctx
	var cancel context.CancelFunc
	if ceiling > 0 {
		ctx, cancel = context.WithTimeout(ctx, ceiling)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	won := make(chan T, 1)
	var once sync.Once
	errs := make([]error, len(tasks))
	g := errgroup.Group{}
	for i, task := range tasks {
		g.Go(func() error {
			v, err := task(ctx)
			if err != nil {
				errs[i] = err
				return nil
			}
			once.Do(func() {
				won <- v
				cancel()
			})
			return nil
		})
	}
	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case v := <-won:
		return v, nil
	case <-done:
		select {
		case v := <-won:
			return v, nil
		default:
		}
		return zero, fmt.Errorf("%w: %w", ErrNoWinner, errors.Join(errs...))
	case <-ctx.Done():
		// A winner cancels ctx right after handing over its result.
		select {
		case v := <-won:
			return v, nil
		default:
		}
		if err := parent.Err(); err != nil {
			return zero, err
		}
		return zero, ErrCeiling
	}
}
