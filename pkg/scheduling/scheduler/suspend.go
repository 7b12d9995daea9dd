package scheduler

import (
	"context"
	"errors"
	"runtime"
	"time"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
)

// Yield hands the worker to the next runnable task and re-queues the caller
// at the back of the run queue. Called outside a job it yields the goroutine.
// It returns the cancellation cause if the job was cancelled.
func Yield(ctx context.Context) error {
	if ctx.Err() != nil {
		return gfcontext.Cause(ctx)
	}

	s, ok := gfcontext.SuspenderFrom(ctx)
	if !ok {
		runtime.Gosched()
		return nil
	}

	s.Suspend(gfcontext.ReasonYield)
	s.Resume()
	return gfcontext.Cause(ctx)
}

// Delay parks the caller for d without holding a worker.
func Delay(ctx context.Context, d time.Duration) error {
	return gfcontext.Sleep(ctx, d)
}

// WithTimeout runs body as a child job that is cancelled after d. It waits for
// the child to finish; if the timeout fired first it returns errors.ErrTimeout
// and the child ends StateCancelled.
func WithTimeout[T any](ctx context.Context, s *Scheduler, d time.Duration, body func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	tctx, cancel := context.WithTimeoutCause(ctx, d, gferrors.ErrTimeout)
	defer cancel()

	child, err := SubmitWithResult(tctx, s, body)
	if err != nil {
		return zero, err
	}

	v, err := child.Await(ctx)
	if err != nil && errors.Is(err, gferrors.ErrTimeout) && errors.Is(context.Cause(tctx), gferrors.ErrTimeout) {
		return zero, gferrors.ErrTimeout
	}
	return v, err
}
