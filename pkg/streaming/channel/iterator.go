package channel

import (
	"context"
	"iter"
)

// Iterator walks the values of a channel until it is closed and drained.
// It is not restartable.
type Iterator[T any] struct {
	ch    *Channel[T]
	ctx   context.Context
	value T
	err   error
	done  bool
}

// Iterator returns an iterator that receives with ctx.
func (c *Channel[T]) Iterator(ctx context.Context) *Iterator[T] {
	return &Iterator[T]{ch: c, ctx: ctx}
}

// Next receives the next value, parking if none is available. It returns
// false once the channel is closed and drained or ctx is cancelled.
func (it *Iterator[T]) Next() bool {
	if it.done {
		return false
	}

	r, err := it.ch.ReceiveOrClosed(it.ctx)
	if err != nil {
		it.err = err
		it.done = true
		return false
	}
	if r.Closed {
		it.done = true
		return false
	}

	it.value = r.Value
	return true
}

// Value returns the value received by the last successful Next.
func (it *Iterator[T]) Value() T {
	return it.value
}

// Err returns the error that stopped iteration, or nil if the channel closed.
func (it *Iterator[T]) Err() error {
	return it.err
}

// All returns a sequence over the channel values until it is closed and
// drained. Iteration also stops when ctx is cancelled; use Iterator to
// observe that error.
func (c *Channel[T]) All(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		it := c.Iterator(ctx)
		for it.Next() {
			if !yield(it.Value()) {
				return
			}
		}
	}
}
