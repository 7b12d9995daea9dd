package context

import (
	"context"
	"time"
)

// Reason names the kind of suspension point a task parks at.
type Reason string

const (
	ReasonChannel Reason = "channel"
	ReasonSelect  Reason = "select"
	ReasonYield   Reason = "yield"
	ReasonDelay   Reason = "delay"
	ReasonJoin    Reason = "join"
	ReasonPermit  Reason = "permit"
)

// Suspender is implemented by a task that currently holds a scheduler worker.
// Suspend hands the worker back; Resume blocks until a worker is granted again.
// Calls nest: only the outermost Suspend/Resume pair moves the worker.
type Suspender interface {
	Suspend(reason Reason)
	Resume()
}

type suspenderKey struct{}

// WithSuspender returns a context that carries s. Blocking operations in this
// module hand the worker back through s instead of pinning it while they wait.
func WithSuspender(parent context.Context, s Suspender) context.Context {
	return context.WithValue(parent, suspenderKey{}, s)
}

// SuspenderFrom returns the Suspender carried by ctx, if any.
func SuspenderFrom(ctx context.Context) (Suspender, bool) {
	s, ok := ctx.Value(suspenderKey{}).(Suspender)
	return s, ok && s != nil
}

// Detach returns a context with the same cancellation and values as ctx but
// without its Suspender. Use it before handing a task context to a plain
// goroutine.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, suspenderKey{}, nil)
}

// Await waits until ready delivers or is closed, or ctx is done. When ctx
// carries a Suspender the worker is released for the duration of the wait.
// It returns nil when ready fired and the cancellation cause otherwise; if
// both happened the caller must settle the race itself.
func Await[T any](ctx context.Context, ready <-chan T, reason Reason) error {
	select {
	case <-ready:
		return nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return Cause(ctx)
	}

	if s, ok := SuspenderFrom(ctx); ok {
		s.Suspend(reason)
		defer s.Resume()
	}

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
		return Cause(ctx)
	}
}

// Sleep pauses for d, releasing the worker like Await does.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return Cause(ctx)
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	return Await(ctx, timer.C, ReasonDelay)
}

// Cause returns the reason ctx was cancelled, or nil if it is still live.
func Cause(ctx context.Context) error {
	if ctx.Err() == nil {
		return nil
	}
	return context.Cause(ctx)
}
