package actor

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/common/validation"
	"github.com/vnykmshr/coflow/pkg/metrics"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// Discipline selects how the processing loop detects a closed mailbox. All
// disciplines process the same messages and stop at the same point.
type Discipline int

const (
	// CheckClosed tests IsClosedForReceive before every receive.
	CheckClosed Discipline = iota

	// ReceiveOrNil receives until the mailbox yields nil.
	ReceiveOrNil

	// Iterate ranges over the mailbox as a sequence.
	Iterate
)

func (d Discipline) String() string {
	switch d {
	case CheckClosed:
		return "check-closed"
	case ReceiveOrNil:
		return "receive-or-nil"
	case Iterate:
		return "iterate"
	default:
		return "unknown"
	}
}

// Config holds actor configuration.
type Config struct {
	// Capacity of the mailbox. Defaults to Rendezvous.
	Capacity channel.Capacity

	// Discipline of the processing loop. Defaults to CheckClosed.
	Discipline Discipline

	// Name labels logs, metrics and the driving job. Defaults to a UUID.
	Name string

	// Logger receives spawn and stop events. Nil uses the package default.
	Logger logrus.FieldLogger

	// Metrics receives actor and mailbox series when non-nil.
	Metrics *metrics.Registry

	// OnUndelivered receives every message still queued when the actor
	// stops.
	OnUndelivered func(msg any)
}

// Handler processes one message. Returning an error stops the actor.
type Handler[M any] func(ctx context.Context, msg M) error

// Actor is a job bound to an inbound mailbox. Messages are processed one at a
// time, so state captured by the handler is only ever touched by one task.
type Actor[M any] struct {
	name      string
	mailbox   *channel.Channel[M]
	job       *scheduler.Job
	processed atomic.Int64
	logger    logrus.FieldLogger
	metrics   *metrics.Registry
}

// Spawn starts an actor on s that feeds every mailbox message to handler. The
// actor stops when its mailbox is closed and drained, when handler returns an
// error, or when ctx is cancelled.
func Spawn[M any](ctx context.Context, s *scheduler.Scheduler, cfg Config, handler Handler[M]) (*Actor[M], error) {
	if err := validation.ValidateRequired("actor", "handler", handler); err != nil {
		return nil, err
	}
	a := newActor[M](cfg)
	loop := a.loop(cfg.Discipline, handler)
	if err := a.start(ctx, s, loop); err != nil {
		return nil, err
	}
	return a, nil
}

// SpawnFunc starts an actor whose body drains the mailbox itself.
func SpawnFunc[M any](ctx context.Context, s *scheduler.Scheduler, cfg Config, body func(ctx context.Context, mailbox *channel.Channel[M]) error) (*Actor[M], error) {
	if err := validation.ValidateRequired("actor", "body", body); err != nil {
		return nil, err
	}
	a := newActor[M](cfg)
	if err := a.start(ctx, s, func(ctx context.Context) error {
		return body(ctx, a.mailbox)
	}); err != nil {
		return nil, err
	}
	return a, nil
}

func newActor[M any](cfg Config) *Actor[M] {
	name := cfg.Name
	if name == "" {
		name = uuid.NewString()
	}

	return &Actor[M]{
		name: name,
		mailbox: channel.NewWithConfig[M](channel.Config{
			Capacity:      cfg.Capacity,
			Name:          name,
			Metrics:       cfg.Metrics,
			OnUndelivered: cfg.OnUndelivered,
		}),
		logger:  logging.Component(cfg.Logger, "actor", name),
		metrics: cfg.Metrics,
	}
}

func (a *Actor[M]) start(ctx context.Context, s *scheduler.Scheduler, body func(ctx context.Context) error) error {
	a.logger.Debug("actor spawning")

	job, err := s.Submit(ctx, func(ctx context.Context) error {
		err := body(ctx)
		a.stopped(err)
		return err
	}, scheduler.WithName(a.name), scheduler.OnDone(func(error) {
		// Whatever stopped the actor, even before its first message, nothing
		// may stay parked on or queued in the mailbox.
		a.mailbox.Cancel()
	}))
	if err != nil {
		return err
	}

	a.job = job
	a.logger.WithField("job", job.ID()).Debug("actor spawned")
	return nil
}

func (a *Actor[M]) stopped(err error) {
	entry := a.logger.WithField("processed", a.Processed())
	if err == nil {
		entry.Debug("actor stopped")
		return
	}

	entry.WithError(err).Debug("actor failed")
	if a.metrics != nil && !gferrors.IsCancellation(err) {
		a.metrics.ActorFailures.WithLabelValues(a.name).Inc()
	}
}

func (a *Actor[M]) loop(d Discipline, handler Handler[M]) func(ctx context.Context) error {
	switch d {
	case ReceiveOrNil:
		return func(ctx context.Context) error {
			next, err := a.mailbox.ReceiveOrNil(ctx)
			for ; err == nil && next != nil; next, err = a.mailbox.ReceiveOrNil(ctx) {
				if err := a.handle(ctx, handler, *next); err != nil {
					return err
				}
			}
			return err
		}

	case Iterate:
		return func(ctx context.Context) error {
			it := a.mailbox.Iterator(ctx)
			for it.Next() {
				if err := a.handle(ctx, handler, it.Value()); err != nil {
					return err
				}
			}
			return it.Err()
		}

	default:
		return func(ctx context.Context) error {
			for !a.mailbox.IsClosedForReceive() {
				msg, err := a.mailbox.Receive(ctx)
				if errors.Is(err, channel.ErrChannelClosed) {
					// Closed between the check and the receive.
					return nil
				}
				if err != nil {
					return err
				}
				if err := a.handle(ctx, handler, msg); err != nil {
					return err
				}
			}
			return gfcontext.Cause(ctx)
		}
	}
}

func (a *Actor[M]) handle(ctx context.Context, handler Handler[M], msg M) error {
	if err := handler(ctx, msg); err != nil {
		return err
	}

	a.processed.Add(1)
	if a.metrics != nil {
		a.metrics.ActorMessages.WithLabelValues(a.name).Inc()
	}
	return nil
}

// Name returns the actor name.
func (a *Actor[M]) Name() string {
	return a.name
}

// Send delivers msg to the mailbox, parking while it is full. It returns
// channel.ErrChannelClosed once the actor is closed or stopped.
func (a *Actor[M]) Send(ctx context.Context, msg M) error {
	return a.mailbox.Send(ctx, msg)
}

// TrySend delivers msg if the mailbox can take it without parking.
func (a *Actor[M]) TrySend(msg M) (bool, error) {
	return a.mailbox.TrySend(msg)
}

// Close closes the mailbox. The actor processes what was already sent and then
// stops.
func (a *Actor[M]) Close() error {
	return a.mailbox.Close()
}

// Job returns the job driving the processing loop.
func (a *Actor[M]) Job() *scheduler.Job {
	return a.job
}

// Processed returns the number of messages handled successfully.
func (a *Actor[M]) Processed() int64 {
	return a.processed.Load()
}

// Ask sends the message built by build and waits for the single reply the
// actor delivers on the given channel.
func Ask[M, R any](ctx context.Context, a *Actor[M], build func(reply *channel.Channel[R]) M) (R, error) {
	reply := channel.New[R](channel.Bounded(1))
	if err := a.Send(ctx, build(reply)); err != nil {
		var zero R
		return zero, err
	}
	return reply.Receive(ctx)
}
