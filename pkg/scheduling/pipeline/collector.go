package pipeline

import (
	"context"
	"sync"

	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// Collector is a channel shared by several producers. Each producer holds its
// own Sender; the channel closes when the last Sender is closed.
type Collector[T any] struct {
	ch *channel.Channel[T]

	mu   sync.Mutex
	open int
}

// NewCollector creates a collector over a new channel.
func NewCollector[T any](capacity channel.Capacity) *Collector[T] {
	return &Collector[T]{ch: channel.New[T](capacity)}
}

// Channel returns the shared channel for consumers.
func (c *Collector[T]) Channel() *channel.Channel[T] {
	return c.ch
}

// Sender registers a new producer. Register every producer before any of
// them can finish, or the channel may close early.
func (c *Collector[T]) Sender() *Sender[T] {
	c.mu.Lock()
	c.open++
	c.mu.Unlock()
	return &Sender[T]{c: c}
}

// Open returns the number of senders not yet closed.
func (c *Collector[T]) Open() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Collector[T]) release() error {
	c.mu.Lock()
	c.open--
	last := c.open == 0
	c.mu.Unlock()

	if last {
		return c.ch.Close()
	}
	return nil
}

// Sender is one producer's handle on a Collector.
type Sender[T any] struct {
	c    *Collector[T]
	once sync.Once
}

// Send delivers v to the shared channel.
func (s *Sender[T]) Send(ctx context.Context, v T) error {
	return s.c.ch.Send(ctx, v)
}

// Close releases this producer's reference. It is idempotent.
func (s *Sender[T]) Close() error {
	var err error
	s.once.Do(func() {
		err = s.c.release()
	})
	return err
}

// FanIn runs every producer as a job writing into one shared channel and
// returns that channel. The channel closes after all producers returned.
func FanIn[T any](ctx context.Context, s *scheduler.Scheduler, capacity channel.Capacity, producers ...func(ctx context.Context, out *Sender[T]) error) (*channel.Channel[T], []*scheduler.Job, error) {
	c := NewCollector[T](capacity)
	if len(producers) == 0 {
		_ = c.ch.Close()
		return c.ch, nil, nil
	}

	senders := make([]*Sender[T], len(producers))
	for i := range producers {
		senders[i] = c.Sender()
	}

	jobs := make([]*scheduler.Job, 0, len(producers))
	for i, produce := range producers {
		sender := senders[i]
		job, err := s.Submit(ctx, func(ctx context.Context) error {
			return produce(ctx, sender)
		}, scheduler.OnDone(func(error) { _ = sender.Close() }))
		if err != nil {
			// Producers that never started still hold a reference.
			for _, unused := range senders[i:] {
				_ = unused.Close()
			}
			return c.ch, jobs, err
		}
		jobs = append(jobs, job)
	}
	return c.ch, jobs, nil
}

// Merge forwards every value of sources into one channel, which closes once
// every source is closed and drained.
func Merge[T any](ctx context.Context, s *scheduler.Scheduler, capacity channel.Capacity, sources ...*channel.Channel[T]) (*channel.Channel[T], error) {
	producers := make([]func(context.Context, *Sender[T]) error, len(sources))
	for i, src := range sources {
		producers[i] = func(ctx context.Context, out *Sender[T]) error {
			it := src.Iterator(ctx)
			for it.Next() {
				if err := out.Send(ctx, it.Value()); err != nil {
					return err
				}
			}
			return it.Err()
		}
	}

	out, _, err := FanIn(ctx, s, capacity, producers...)
	return out, err
}
