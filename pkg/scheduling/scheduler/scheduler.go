package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/metrics"
	"github.com/vnykmshr/coflow/pkg/scheduling/workerpool"
)

// ErrSchedulerShutdown is returned by Submit after Shutdown.
var ErrSchedulerShutdown = fmt.Errorf("scheduler is shut down: %w", gferrors.ErrClosed)

// Config holds scheduler configuration.
type Config struct {
	// Workers is the number of pool workers. Zero uses GOMAXPROCS.
	Workers int

	// Name labels logs and metrics. Defaults to "default".
	Name string

	// Logger receives job lifecycle events. Nil uses the package default.
	Logger logrus.FieldLogger

	// Metrics configures Prometheus collection. Disabled by default.
	Metrics metrics.Config
}

// DefaultConfig returns a default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		Workers: runtime.GOMAXPROCS(0),
		Name:    "default",
	}
}

// Scheduler multiplexes jobs over a fixed pool of workers. A job holds a
// worker only while its body runs; at every suspension point (channel park,
// select, Yield, Delay, Join, Await) it hands the worker back and re-queues
// at the back of the run queue once it can continue.
type Scheduler struct {
	name    string
	pool    workerpool.Pool
	logger  logrus.FieldLogger
	metrics *metrics.Registry

	mu       sync.Mutex
	roots    map[*Job]struct{}
	shutdown bool

	stopOnce sync.Once
	stopped  chan struct{}
}

// New creates a scheduler with the given number of workers.
func New(workers int) *Scheduler {
	cfg := DefaultConfig()
	cfg.Workers = workers
	return NewWithConfig(cfg)
}

// NewWithConfig creates a scheduler with custom configuration.
// It panics if Workers is negative.
func NewWithConfig(cfg Config) *Scheduler {
	if cfg.Workers < 0 {
		panic(gferrors.NewValidationError("scheduler", "Workers", cfg.Workers, "must not be negative").
			WithHint("use 0 for one worker per CPU"))
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	logger := logging.Component(cfg.Logger, "scheduler", cfg.Name)
	pool := workerpool.NewWithConfigAndMetrics(workerpool.Config{
		WorkerCount: cfg.Workers,
		Name:        cfg.Name,
		Logger:      logger,
	}, cfg.Metrics)

	return &Scheduler{
		name:    cfg.Name,
		pool:    pool,
		logger:  logger,
		metrics: cfg.Metrics.Resolve(),
		roots:   make(map[*Job]struct{}),
		stopped: make(chan struct{}),
	}
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// Workers returns the size of the worker pool.
func (s *Scheduler) Workers() int {
	return s.pool.Size()
}

// Submit creates a job running body. When ctx belongs to another job the new
// job becomes its child: cancelling the parent cancels the child, and the
// parent does not reach a terminal state before the child does. A child's
// failure does not affect its parent.
func (s *Scheduler) Submit(ctx context.Context, body func(ctx context.Context) error, opts ...Option) (*Job, error) {
	if body == nil {
		return nil, gferrors.NewValidationError("scheduler", "body", nil, "must not be nil")
	}

	var o jobOptions
	for _, opt := range opts {
		opt(&o)
	}

	parent, _ := CurrentJob(ctx)
	j := &Job{
		id:     uuid.New(),
		name:   o.name,
		sched:  s,
		parent: parent,
		body:   body,
		onDone: o.onDone,
		done:   make(chan struct{}),
	}
	// The job context keeps the caller's values and cancellation but not its
	// suspender.
	j.ctx, j.cancel = context.WithCancelCause(gfcontext.Detach(ctx))

	// Registration happens under the same lock as the shutdown check, so
	// Shutdown either rejects the job or waits for it.
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		j.cancel(ErrSchedulerShutdown)
		return nil, ErrSchedulerShutdown
	}
	if parent == nil || !parent.addChild(j) {
		s.roots[j] = struct{}{}
	}
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.JobsSubmitted.WithLabelValues(s.name).Inc()
	}
	s.logger.WithField("job", j.String()).Debug("job submitted")

	stop := context.AfterFunc(j.ctx, j.onCancel)
	j.mu.Lock()
	j.stopWatch = stop
	j.mu.Unlock()

	if !o.lazy {
		j.Start()
	}
	return j, nil
}

// launch starts the task goroutine of j and queues it for its first worker.
func (s *Scheduler) launch(j *Job) {
	t := newTask(s, j)

	j.mu.Lock()
	j.task = t
	j.mu.Unlock()

	ctx := gfcontext.WithSuspender(context.WithValue(j.ctx, jobKey{}, j), t)
	granted := t.dispatch()
	if !granted {
		// No worker will ever run the body; settle the job as cancelled.
		j.cancel(ErrSchedulerShutdown)
	}
	go j.run(ctx, t, granted)
}

// finished records a job that reached a terminal state.
func (s *Scheduler) finished(j *Job, final State, started time.Time) {
	s.mu.Lock()
	delete(s.roots, j)
	s.mu.Unlock()

	entry := s.logger.WithField("job", j.String()).WithField("state", final)
	if err := j.Err(); err != nil {
		entry = entry.WithError(err)
	}
	entry.Debug("job finished")

	if s.metrics == nil {
		return
	}
	if final == StateCompleted {
		s.metrics.JobsCompleted.WithLabelValues(s.name).Inc()
	} else {
		s.metrics.JobsCancelled.WithLabelValues(s.name).Inc()
	}
	if !started.IsZero() {
		s.metrics.JobDuration.WithLabelValues(s.name).Observe(time.Since(started).Seconds())
	}
}

// Jobs returns the live root jobs.
func (s *Scheduler) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.roots))
	for j := range s.roots {
		out = append(out, j)
	}
	return out
}

// Shutdown stops accepting jobs, cancels every live root job, waits for all
// of them to finish and then stops the worker pool. The returned channel is
// closed when everything is gone.
func (s *Scheduler) Shutdown() <-chan struct{} {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.shutdown = true
		roots := make([]*Job, 0, len(s.roots))
		for j := range s.roots {
			roots = append(roots, j)
		}
		s.mu.Unlock()

		s.logger.WithField("live_jobs", len(roots)).Debug("scheduler shutting down")

		go func() {
			for _, j := range roots {
				j.Cancel()
			}
			for _, j := range roots {
				<-j.done
			}
			<-s.pool.Shutdown()
			close(s.stopped)
		}()
	})
	return s.stopped
}
