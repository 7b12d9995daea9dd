package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
)

// task is the continuation of a job. The job body runs on its own goroutine
// but only while the task holds a worker grant from the pool: each dispatch
// enqueues the task, and the worker that picks it up hands over a release
// channel and blocks until the task closes it at its next suspension point.
type task struct {
	sched *Scheduler
	job   *Job

	grants chan chan struct{}
	state  atomic.Int32

	mu      sync.Mutex
	depth   int
	release chan struct{}
}

func newTask(s *Scheduler, j *Job) *task {
	t := &task{
		sched:  s,
		job:    j,
		grants: make(chan chan struct{}, 1),
	}
	t.state.Store(int32(Runnable))
	return t
}

// Execute implements workerpool.Task. It lends the calling worker to the task
// until the task suspends or finishes.
func (t *task) Execute(_ context.Context) error {
	release := make(chan struct{})
	t.grants <- release
	<-release
	return nil
}

// dispatch queues the task for a worker.
func (t *task) dispatch() bool {
	t.state.Store(int32(Runnable))
	if err := t.sched.pool.Submit(t); err != nil {
		t.sched.logger.WithError(err).WithField("job", t.job.String()).
			Error("failed to dispatch task")
		return false
	}
	return true
}

// acquire blocks until a worker picks the task up.
func (t *task) acquire() {
	release := <-t.grants

	t.mu.Lock()
	t.release = release
	t.mu.Unlock()
	t.state.Store(int32(Running))
}

// Suspend hands the worker back. Nested calls only count.
func (t *task) Suspend(reason gfcontext.Reason) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.depth++
	if t.depth > 1 {
		return
	}

	t.state.Store(int32(Parked))
	if t.sched.metrics != nil {
		t.sched.metrics.Suspensions.WithLabelValues(t.sched.name, string(reason)).Inc()
	}
	if t.release != nil {
		close(t.release)
		t.release = nil
	}
}

// Resume re-queues the task and blocks until a worker is granted again.
func (t *task) Resume() {
	t.mu.Lock()
	t.depth--
	outer := t.depth == 0
	t.mu.Unlock()

	if !outer {
		return
	}
	if t.dispatch() {
		t.acquire()
		return
	}
	// The pool is gone: the job can only unwind, so cancel it and let the
	// body reach its next suspension point.
	t.job.cancel(ErrSchedulerShutdown)
}

// finish returns the worker for good.
func (t *task) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.state.Store(int32(Terminal))
	if t.release != nil {
		close(t.release)
		t.release = nil
	}
}

func (t *task) current() TaskState {
	return TaskState(t.state.Load())
}
