package stream

import (
	"context"
	"errors"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/vnykmshr/coflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// ErrStreamClosed is returned when a terminal operation runs on a stream that
// was already consumed or closed.
var ErrStreamClosed = errors.New("stream is closed")

// Stream is a lazy, single-use sequence of elements. Intermediate operations
// return a new stream over the same source; nothing is pulled from the source
// until a terminal operation runs. A terminal operation consumes the stream
// and closes its source.
type Stream[T any] interface {
	// Filter keeps the elements matching predicate.
	Filter(predicate func(T) bool) Stream[T]

	// Map replaces every element with mapper's result.
	Map(mapper func(T) T) Stream[T]

	// Skip drops the first n elements.
	Skip(n int64) Stream[T]

	// Limit stops after maxSize elements without pulling any further.
	Limit(maxSize int64) Stream[T]

	// Peek calls action on every element as it passes.
	Peek(action func(T)) Stream[T]

	// TakeWhile stops at the first element not matching predicate.
	TakeWhile(predicate func(T) bool) Stream[T]

	// Collect calls action for each element and stops at the first error.
	Collect(ctx context.Context, action func(T) error) error

	// ForEach calls action for each element.
	ForEach(ctx context.Context, action func(T)) error

	// Reduce folds the elements into identity.
	Reduce(ctx context.Context, identity T, accumulator func(T, T) T) (T, error)

	// ToSlice returns every element.
	ToSlice(ctx context.Context) ([]T, error)

	// Count returns the number of elements.
	Count(ctx context.Context) (int64, error)

	// AnyMatch reports whether some element matches predicate.
	AnyMatch(ctx context.Context, predicate func(T) bool) (bool, error)

	// AllMatch reports whether every element matches predicate.
	AllMatch(ctx context.Context, predicate func(T) bool) (bool, error)

	// FindFirst returns the first element, if any.
	FindFirst(ctx context.Context) (T, bool, error)

	// Min returns the smallest element according to compare.
	Min(ctx context.Context, compare func(a, b T) int) (T, bool, error)

	// Max returns the largest element according to compare.
	Max(ctx context.Context, compare func(a, b T) int) (T, bool, error)

	// Close releases the source without consuming it.
	Close() error

	// IsClosed reports whether the stream was consumed or closed.
	IsClosed() bool
}

// Source supplies the elements of a stream.
type Source[T any] interface {
	// Next returns the next element and true, or false once exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases the source.
	Close() error
}

// stream pulls through a chain of next functions built by the intermediate
// operations. Derived streams share the source and its close.
type stream[T any] struct {
	next   func(ctx context.Context) (T, bool, error)
	source *sharedSource
	closed atomic.Bool
}

// sharedSource closes the underlying source once, whichever derived stream
// gets there first.
type sharedSource struct {
	once  sync.Once
	close func() error
	err   error
}

func (s *sharedSource) Close() error {
	s.once.Do(func() { s.err = s.close() })
	return s.err
}

// New creates a Stream over source.
func New[T any](source Source[T]) Stream[T] {
	return &stream[T]{
		next:   source.Next,
		source: &sharedSource{close: source.Close},
	}
}

// FromSlice creates a Stream over the elements of slice.
func FromSlice[T any](slice []T) Stream[T] {
	return New[T](&sliceSource[T]{slice: slice})
}

// FromChannel creates a Stream that consumes ch. Closing or finishing the
// stream cancels ch, so producers still sending to it observe a closed
// channel.
func FromChannel[T any](ch *channel.Channel[T]) Stream[T] {
	return New[T](&channelSource[T]{ch: ch})
}

// Generate creates an infinite Stream from generator.
func Generate[T any](generator func() T) Stream[T] {
	return New[T](&generatorSource[T]{generator: generator})
}

// Empty creates a Stream without elements.
func Empty[T any]() Stream[T] {
	return New[T](emptySource[T]{})
}

// errStopPull ends a Collect early once the puller stops asking.
var errStopPull = errors.New("stream: pull stopped")

// Transform maps a stream to another element type.
func Transform[T, R any](s Stream[T], mapper func(T) R) Stream[R] {
	in := pullable(s)
	return &stream[R]{
		source: in.source,
		next: func(ctx context.Context) (R, bool, error) {
			v, ok, err := in.next(ctx)
			if !ok || err != nil {
				var zero R
				return zero, false, err
			}
			return mapper(v), true, nil
		},
	}
}

// pullable returns s as a pull-based stream. Streams built outside this
// package are drained through Collect under the context of the first pull.
func pullable[T any](s Stream[T]) *stream[T] {
	if in, ok := s.(*stream[T]); ok {
		return in
	}
	src := &seqSource[T]{}
	src.seq = func(ctx context.Context) iter.Seq[T] {
		return func(yield func(T) bool) {
			err := s.Collect(ctx, func(v T) error {
				if !yield(v) {
					return errStopPull
				}
				return nil
			})
			if err != nil && !errors.Is(err, errStopPull) {
				src.err = err
			}
		}
	}
	return &stream[T]{
		next: src.Next,
		source: &sharedSource{close: func() error {
			_ = src.Close()
			if s.IsClosed() {
				return nil
			}
			return s.Close()
		}},
	}
}

// Launch collects s inside a scheduler job that sends every element to a new
// channel, which closes when the stream is exhausted.
func Launch[T any](ctx context.Context, sched *scheduler.Scheduler, s Stream[T], capacity channel.Capacity) (*channel.Channel[T], *scheduler.Job, error) {
	return pipeline.Produce(ctx, sched, capacity, func(ctx context.Context, out *channel.Channel[T]) error {
		return s.Collect(ctx, func(v T) error {
			return out.Send(ctx, v)
		})
	}, scheduler.WithName("stream"))
}

func (s *stream[T]) derive(next func(ctx context.Context) (T, bool, error)) Stream[T] {
	return &stream[T]{next: next, source: s.source}
}

func (s *stream[T]) Filter(predicate func(T) bool) Stream[T] {
	return s.derive(func(ctx context.Context) (T, bool, error) {
		for {
			v, ok, err := s.next(ctx)
			if !ok || err != nil || predicate(v) {
				return v, ok, err
			}
		}
	})
}

func (s *stream[T]) Map(mapper func(T) T) Stream[T] {
	return s.derive(func(ctx context.Context) (T, bool, error) {
		v, ok, err := s.next(ctx)
		if !ok || err != nil {
			return v, ok, err
		}
		return mapper(v), true, nil
	})
}

func (s *stream[T]) Skip(n int64) Stream[T] {
	skipped := false
	return s.derive(func(ctx context.Context) (T, bool, error) {
		if !skipped {
			skipped = true
			for i := int64(0); i < n; i++ {
				if v, ok, err := s.next(ctx); !ok || err != nil {
					return v, ok, err
				}
			}
		}
		return s.next(ctx)
	})
}

func (s *stream[T]) Limit(maxSize int64) Stream[T] {
	var taken int64
	return s.derive(func(ctx context.Context) (T, bool, error) {
		if taken >= maxSize {
			var zero T
			return zero, false, nil
		}
		v, ok, err := s.next(ctx)
		if ok && err == nil {
			taken++
		}
		return v, ok, err
	})
}

func (s *stream[T]) Peek(action func(T)) Stream[T] {
	return s.derive(func(ctx context.Context) (T, bool, error) {
		v, ok, err := s.next(ctx)
		if ok && err == nil {
			action(v)
		}
		return v, ok, err
	})
}

func (s *stream[T]) TakeWhile(predicate func(T) bool) Stream[T] {
	done := false
	return s.derive(func(ctx context.Context) (T, bool, error) {
		var zero T
		if done {
			return zero, false, nil
		}
		v, ok, err := s.next(ctx)
		if !ok || err != nil {
			return v, ok, err
		}
		if !predicate(v) {
			done = true
			return zero, false, nil
		}
		return v, true, nil
	})
}

// consume runs fn over every element and closes the source. fn returns false
// to stop early.
func (s *stream[T]) consume(ctx context.Context, fn func(T) (bool, error)) error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStreamClosed
	}
	defer func() { _ = s.source.Close() }()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, ok, err := s.next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		more, err := fn(v)
		if err != nil || !more {
			return err
		}
	}
}

func (s *stream[T]) Collect(ctx context.Context, action func(T) error) error {
	return s.consume(ctx, func(v T) (bool, error) {
		return true, action(v)
	})
}

func (s *stream[T]) ForEach(ctx context.Context, action func(T)) error {
	return s.consume(ctx, func(v T) (bool, error) {
		action(v)
		return true, nil
	})
}

func (s *stream[T]) Reduce(ctx context.Context, identity T, accumulator func(T, T) T) (T, error) {
	acc := identity
	err := s.consume(ctx, func(v T) (bool, error) {
		acc = accumulator(acc, v)
		return true, nil
	})
	if err != nil {
		return identity, err
	}
	return acc, nil
}

func (s *stream[T]) ToSlice(ctx context.Context) ([]T, error) {
	var out []T
	err := s.consume(ctx, func(v T) (bool, error) {
		out = append(out, v)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *stream[T]) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.consume(ctx, func(T) (bool, error) {
		n++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *stream[T]) AnyMatch(ctx context.Context, predicate func(T) bool) (bool, error) {
	found := false
	err := s.consume(ctx, func(v T) (bool, error) {
		found = predicate(v)
		return !found, nil
	})
	return found, err
}

func (s *stream[T]) AllMatch(ctx context.Context, predicate func(T) bool) (bool, error) {
	all := true
	err := s.consume(ctx, func(v T) (bool, error) {
		all = predicate(v)
		return all, nil
	})
	return all, err
}

func (s *stream[T]) FindFirst(ctx context.Context) (T, bool, error) {
	var first T
	found := false
	err := s.consume(ctx, func(v T) (bool, error) {
		first, found = v, true
		return false, nil
	})
	return first, found, err
}

func (s *stream[T]) Min(ctx context.Context, compare func(a, b T) int) (T, bool, error) {
	return s.best(ctx, func(a, b T) bool { return compare(a, b) < 0 })
}

func (s *stream[T]) Max(ctx context.Context, compare func(a, b T) int) (T, bool, error) {
	return s.best(ctx, func(a, b T) bool { return compare(a, b) > 0 })
}

func (s *stream[T]) best(ctx context.Context, better func(a, b T) bool) (T, bool, error) {
	var best T
	found := false
	err := s.consume(ctx, func(v T) (bool, error) {
		if !found || better(v, best) {
			best, found = v, true
		}
		return true, nil
	})
	return best, found, err
}

func (s *stream[T]) Close() error {
	s.closed.Store(true)
	return s.source.Close()
}

func (s *stream[T]) IsClosed() bool {
	return s.closed.Load()
}
