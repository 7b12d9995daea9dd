package workerpool

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/common/validation"
)

// ErrPoolShutdown is returned by Submit after Shutdown has been called.
var ErrPoolShutdown = fmt.Errorf("worker pool has been shut down: %w", gferrors.ErrClosed)

// New creates a new worker pool with the specified number of workers and queue size.
func New(workerCount, queueSize int) Pool {
	return NewWithConfig(Config{
		WorkerCount: workerCount,
		QueueSize:   queueSize,
	})
}

// NewWithConfig creates a new worker pool with the specified configuration.
// It panics on an invalid configuration.
func NewWithConfig(config Config) Pool {
	if err := validation.ValidatePositive("workerpool", "WorkerCount", config.WorkerCount); err != nil {
		panic(err)
	}
	if err := validation.ValidateNonNegative("workerpool", "QueueSize", config.QueueSize); err != nil {
		panic(err)
	}

	pool := &workerPool{
		config:  config,
		logger:  logging.Component(config.Logger, "workerpool", config.Name),
		stopped: make(chan struct{}),
	}
	pool.cond = sync.NewCond(&pool.mu)

	for i := 0; i < config.WorkerCount; i++ {
		w := &worker{id: i, pool: pool}
		pool.workerWg.Add(1)
		go w.run()
	}

	return pool
}

// Submit adds a task to the pool for execution.
// The task will be executed with context.Background().
func (p *workerPool) Submit(task Task) error {
	return p.SubmitWithContext(context.Background(), task)
}

// SubmitWithContext adds a task to the run queue. The context is passed to the
// task's Execute method. If the pool has a TaskTimeout configured, the
// effective timeout is the minimum of the context deadline and TaskTimeout.
func (p *workerPool) SubmitWithContext(ctx context.Context, task Task) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("cannot submit task: context canceled: %w", ctx.Err())
	default:
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isShutdown {
		return ErrPoolShutdown
	}
	if p.config.QueueSize > 0 && len(p.queue) >= p.config.QueueSize {
		return fmt.Errorf("cannot submit task: queue holds %d tasks: %w", len(p.queue), gferrors.ErrCapacityExceeded)
	}

	p.queue = append(p.queue, taskWithContext{task: task, ctx: ctx})
	p.totalSubmitted++
	p.cond.Signal()

	return nil
}

// Shutdown initiates a graceful shutdown of the pool.
func (p *workerPool) Shutdown() <-chan struct{} {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.isShutdown = true
		p.cond.Broadcast()
		p.mu.Unlock()

		go func() {
			p.workerWg.Wait()
			close(p.stopped)
		}()
	})

	return p.stopped
}

// Size returns the number of workers in the pool.
func (p *workerPool) Size() int {
	return p.config.WorkerCount
}

// QueueSize returns the current number of queued tasks waiting for execution.
func (p *workerPool) QueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ActiveWorkers returns the number of workers currently executing tasks.
func (p *workerPool) ActiveWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeWorkers
}

// TotalSubmitted returns the total number of tasks submitted to the pool.
func (p *workerPool) TotalSubmitted() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalSubmitted
}

// TotalCompleted returns the total number of tasks completed by the pool.
func (p *workerPool) TotalCompleted() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalCompleted
}

// next blocks until a task is queued or the pool is shut down and drained.
func (p *workerPool) next() (taskWithContext, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.queue) == 0 {
		if p.isShutdown {
			return taskWithContext{}, false
		}
		p.cond.Wait()
	}

	twc := p.queue[0]
	p.queue[0] = taskWithContext{}
	p.queue = p.queue[1:]
	p.activeWorkers++

	return twc, true
}

func (p *workerPool) finished() {
	p.mu.Lock()
	p.activeWorkers--
	p.totalCompleted++
	p.mu.Unlock()
}

// run is the main loop for a worker.
func (w *worker) run() {
	defer w.pool.workerWg.Done()

	if w.pool.config.OnWorkerStart != nil {
		w.pool.config.OnWorkerStart(w.id)
	}
	defer func() {
		if w.pool.config.OnWorkerStop != nil {
			w.pool.config.OnWorkerStop(w.id)
		}
	}()

	for {
		twc, ok := w.pool.next()
		if !ok {
			return
		}
		w.executeTask(twc)
	}
}

// executeTask executes a single task with the provided context.
func (w *worker) executeTask(twc taskWithContext) {
	start := time.Now()
	var err error

	if w.pool.config.OnTaskStart != nil {
		w.pool.config.OnTaskStart(w.id, twc.task)
	}

	// Handle panics during task execution
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			w.pool.logger.WithField("worker", w.id).Errorf("recovered task panic: %v", r)
			if w.pool.config.PanicHandler != nil {
				w.pool.config.PanicHandler(twc.task, r)
			}
		}

		w.pool.finished()

		if w.pool.config.OnTaskComplete != nil {
			w.pool.config.OnTaskComplete(w.id, Result{
				Task:     twc.task,
				Error:    err,
				Duration: time.Since(start),
				WorkerID: w.id,
			})
		}
	}()

	ctx := twc.ctx
	if w.pool.config.TaskTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.pool.config.TaskTimeout)
		defer cancel()
	}

	err = twc.task.Execute(ctx)
}
