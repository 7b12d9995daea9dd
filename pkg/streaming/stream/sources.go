package stream

import (
	"context"
	"iter"

	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

type sliceSource[T any] struct {
	slice []T
	index int
}

func (s *sliceSource[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if s.index >= len(s.slice) {
		return zero, false, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	v := s.slice[s.index]
	s.index++
	return v, true, nil
}

func (s *sliceSource[T]) Close() error {
	return nil
}

// channelSource receives until ch is closed and drained. Receiving parks the
// calling job without holding a worker.
type channelSource[T any] struct {
	ch *channel.Channel[T]
}

func (s *channelSource[T]) Next(ctx context.Context) (T, bool, error) {
	r, err := s.ch.ReceiveOrClosed(ctx)
	if err != nil || r.Closed {
		var zero T
		return zero, false, err
	}
	return r.Value, true, nil
}

func (s *channelSource[T]) Close() error {
	s.ch.Cancel()
	return nil
}

type generatorSource[T any] struct {
	generator func() T
}

func (s *generatorSource[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return s.generator(), true, nil
}

func (s *generatorSource[T]) Close() error {
	return nil
}

type emptySource[T any] struct{}

func (emptySource[T]) Next(context.Context) (T, bool, error) {
	var zero T
	return zero, false, nil
}

func (emptySource[T]) Close() error {
	return nil
}

// seqSource adapts an iter.Seq through iter.Pull. The pull starts on the
// first Next, so a stream that is never consumed holds no goroutine.
type seqSource[T any] struct {
	seq  func(ctx context.Context) iter.Seq[T]
	next func() (T, bool)
	stop func()
	err  error
}

// FromSeq creates a Stream over seq.
func FromSeq[T any](seq iter.Seq[T]) Stream[T] {
	return New[T](&seqSource[T]{
		seq: func(context.Context) iter.Seq[T] { return seq },
	})
}

func (s *seqSource[T]) Next(ctx context.Context) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	if s.next == nil {
		s.next, s.stop = iter.Pull(s.seq(ctx))
	}
	v, ok := s.next()
	if !ok {
		return v, false, s.err
	}
	return v, true, nil
}

func (s *seqSource[T]) Close() error {
	if s.stop != nil {
		s.stop()
	}
	return nil
}
