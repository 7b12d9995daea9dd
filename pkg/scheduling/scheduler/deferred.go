package scheduler

import (
	"context"
)

// Deferred is a job that produces a value.
type Deferred[T any] struct {
	*Job
	value T
}

// SubmitWithResult submits body as a job and returns a handle to its value.
func SubmitWithResult[T any](ctx context.Context, s *Scheduler, body func(ctx context.Context) (T, error), opts ...Option) (*Deferred[T], error) {
	d := &Deferred[T]{}
	job, err := s.Submit(ctx, func(ctx context.Context) error {
		v, err := body(ctx)
		if err != nil {
			return err
		}
		d.value = v
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	d.Job = job
	return d, nil
}

// Await waits for the job and returns its value. Unlike Join it propagates
// the outcome: if the job was cancelled or failed, Await returns its Err.
func (d *Deferred[T]) Await(ctx context.Context) (T, error) {
	var zero T
	if err := d.Join(ctx); err != nil {
		return zero, err
	}
	if err := d.Err(); err != nil {
		return zero, err
	}
	return d.value, nil
}
