package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
)

// Job is a cancellable unit of work with an observable lifecycle.
type Job struct {
	id     uuid.UUID
	name   string
	sched  *Scheduler
	parent *Job
	body   func(ctx context.Context) error
	onDone []func(err error)

	ctx    context.Context
	cancel context.CancelCauseFunc

	mu        sync.Mutex
	stopWatch func() bool
	state     State
	launched  bool
	requested bool
	sealed    bool
	children  []*Job
	err       error
	startedAt time.Time
	task      *task
	done      chan struct{}
}

type jobKey struct{}

// CurrentJob returns the job whose body is running with ctx.
func CurrentJob(ctx context.Context) (*Job, bool) {
	j, ok := ctx.Value(jobKey{}).(*Job)
	return j, ok && j != nil
}

// ID returns the unique job identifier.
func (j *Job) ID() uuid.UUID {
	return j.id
}

// Name returns the name given with WithName, or the empty string.
func (j *Job) Name() string {
	return j.name
}

// Parent returns the job that submitted this one, or nil for a root job.
func (j *Job) Parent() *Job {
	return j.parent
}

// State returns the current lifecycle state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// TaskState reports whether the job currently holds a worker. Jobs that were
// never launched report Runnable.
func (j *Job) TaskState() TaskState {
	j.mu.Lock()
	t := j.task
	j.mu.Unlock()

	if t == nil {
		return Runnable
	}
	return t.current()
}

// IsActive reports whether the job is running or waiting for children and has
// not been cancelled.
func (j *Job) IsActive() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return (j.state == StateActive || j.state == StateCompleting) && !j.cancelRequestedLocked()
}

// IsCancellationRequested reports whether Cancel was called or the job's
// context was cancelled.
func (j *Job) IsCancellationRequested() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.cancelRequestedLocked()
}

func (j *Job) cancelRequestedLocked() bool {
	return j.requested || j.ctx.Err() != nil
}

// Err returns nil while the job is live or after it completed, and an error
// wrapping errors.ErrCancelled once it was cancelled or failed. A failure also
// wraps the error returned by the body.
func (j *Job) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// Done returns a channel that is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Children returns the jobs submitted from this job's body.
func (j *Job) Children() []*Job {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]*Job, len(j.children))
	copy(out, j.children)
	return out
}

// Cancel requests cancellation. A job that has not started never runs its
// body; a running job observes cancellation at its next suspension point.
// Children are cancelled too. Cancel is idempotent.
func (j *Job) Cancel() {
	j.mu.Lock()
	j.requested = true
	j.mu.Unlock()

	j.cancel(gferrors.ErrCancelled)
}

// Start launches a lazy job. It reports whether this call started it.
func (j *Job) Start() bool {
	j.mu.Lock()
	if j.launched {
		j.mu.Unlock()
		return false
	}
	j.launched = true
	j.mu.Unlock()

	j.sched.launch(j)
	return true
}

// Join waits until the job reaches a terminal state, starting it if lazy. It
// does not report the job's outcome: the returned error is only ever the
// cancellation cause of ctx.
func (j *Job) Join(ctx context.Context) error {
	j.Start()
	return gfcontext.Await(ctx, j.done, gfcontext.ReasonJoin)
}

func (j *Job) String() string {
	if j.name != "" {
		return j.name + "#" + j.id.String()
	}
	return j.id.String()
}

// addChild registers c unless the job already finished waiting for children.
func (j *Job) addChild(c *Job) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.sealed {
		return false
	}
	j.children = append(j.children, c)
	return true
}

// onCancel runs once the job context is cancelled.
func (j *Job) onCancel() {
	j.mu.Lock()
	j.requested = true
	if j.state.canMoveTo(StateCanceling) {
		j.state = StateCanceling
	}
	lazy := !j.launched
	j.mu.Unlock()

	j.sched.logger.WithField("job", j.String()).
		WithField("cause", context.Cause(j.ctx)).
		Debug("job cancellation requested")

	// An unstarted lazy job still has to reach a terminal state.
	if lazy {
		j.Start()
	}
}

// run is the body of the task goroutine.
func (j *Job) run(ctx context.Context, t *task, granted bool) {
	if granted {
		t.acquire()
	}

	var bodyErr error
	if j.begin() {
		bodyErr = j.invoke(ctx)
	}
	t.finish()

	j.complete(bodyErr)
}

// begin moves the job to StateActive unless it was cancelled before starting.
func (j *Job) begin() bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.state != StateNew || j.cancelRequestedLocked() {
		if j.state.canMoveTo(StateCanceling) {
			j.state = StateCanceling
		}
		return false
	}
	j.state = StateActive
	j.startedAt = time.Now()
	return true
}

func (j *Job) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v\n%s", r, debug.Stack())
			j.sched.logger.WithField("job", j.String()).
				WithField("panic", r).
				Error("job body panicked")
		}
	}()

	return j.body(ctx)
}

// complete settles the outcome, waits for children and publishes the
// terminal state.
func (j *Job) complete(bodyErr error) {
	j.mu.Lock()
	switch {
	case bodyErr != nil:
		j.err = asCancellation(bodyErr)
		j.state = StateCanceling
	case j.cancelRequestedLocked() || j.state == StateCanceling:
		j.err = asCancellation(cause(j.ctx))
		j.state = StateCanceling
	default:
		j.state = StateCompleting
	}
	failed := j.state == StateCanceling
	j.mu.Unlock()

	if failed {
		j.cancel(j.Err())
	}

	j.awaitChildren()

	j.mu.Lock()
	if j.state == StateCanceling {
		j.state = StateCancelled
	} else {
		j.state = StateCompleted
	}
	final := j.state
	started := j.startedAt
	stop := j.stopWatch
	j.mu.Unlock()

	if stop != nil {
		stop()
	}
	j.cancel(context.Canceled)

	err := j.Err()
	for _, fn := range j.onDone {
		j.runHook(fn, err)
	}

	j.sched.finished(j, final, started)
	close(j.done)
}

func (j *Job) runHook(fn func(error), err error) {
	defer func() {
		if r := recover(); r != nil {
			j.sched.logger.WithField("job", j.String()).
				WithField("panic", r).
				Error("job completion hook panicked")
		}
	}()
	fn(err)
}

// awaitChildren blocks until every child is terminal, then seals the child
// list so no new child can attach.
func (j *Job) awaitChildren() {
	for {
		j.mu.Lock()
		var pending []*Job
		for _, c := range j.children {
			select {
			case <-c.done:
			default:
				pending = append(pending, c)
			}
		}
		if len(pending) == 0 {
			j.sealed = true
			j.mu.Unlock()
			return
		}
		j.mu.Unlock()

		for _, c := range pending {
			<-c.done
		}
	}
}

func cause(ctx context.Context) error {
	if err := gfcontext.Cause(ctx); err != nil {
		return err
	}
	return gferrors.ErrCancelled
}

// asCancellation wraps err so that it matches errors.ErrCancelled.
func asCancellation(err error) error {
	if errors.Is(err, gferrors.ErrCancelled) {
		return err
	}
	return fmt.Errorf("%w: %w", gferrors.ErrCancelled, err)
}
