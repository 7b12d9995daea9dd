package workerpool

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task represents a unit of work that can be executed by a worker.
type Task interface {
	// Execute runs the task with the given context.
	// It should respect context cancellation and return any error encountered.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result represents the result of a task execution.
type Result struct {
	// Task is the original task that was executed
	Task Task

	// Error is any error that occurred during task execution
	Error error

	// Duration is how long the task held the worker
	Duration time.Duration

	// WorkerID identifies which worker executed the task
	WorkerID int
}

// Pool represents a fixed set of workers draining a FIFO run queue.
type Pool interface {
	// Submit appends a task to the run queue.
	// Returns an error if the pool is shut down or the queue limit is reached.
	Submit(task Task) error

	// SubmitWithContext submits a task whose Execute receives ctx.
	SubmitWithContext(ctx context.Context, task Task) error

	// Shutdown stops accepting tasks. Workers finish everything already
	// queued, then exit. The returned channel closes when all workers are gone.
	Shutdown() <-chan struct{}

	// Size returns the number of workers in the pool.
	Size() int

	// QueueSize returns the current number of queued tasks waiting for execution.
	QueueSize() int

	// ActiveWorkers returns the number of workers currently executing tasks.
	ActiveWorkers() int

	// TotalSubmitted returns the total number of tasks submitted to the pool.
	TotalSubmitted() int64

	// TotalCompleted returns the total number of tasks completed by the pool.
	TotalCompleted() int64
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// WorkerCount is the number of workers in the pool.
	// Must be greater than 0.
	WorkerCount int

	// QueueSize is the maximum number of tasks that can be queued.
	// Zero means unbounded. When the limit is reached Submit returns
	// ErrCapacityExceeded instead of blocking.
	QueueSize int

	// TaskTimeout is the default timeout for individual task execution.
	// Zero means no timeout.
	TaskTimeout time.Duration

	// Name labels log lines and metrics.
	Name string

	// Logger receives panic reports. Nil uses the package default.
	Logger logrus.FieldLogger

	// PanicHandler is called when a task panics during execution.
	// Panics are always recovered and reported as task errors.
	PanicHandler func(task Task, recovered interface{})

	// OnWorkerStart is called when a worker starts.
	OnWorkerStart func(workerID int)

	// OnWorkerStop is called when a worker stops.
	OnWorkerStop func(workerID int)

	// OnTaskStart is called before a task begins execution.
	OnTaskStart func(workerID int, task Task)

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(workerID int, result Result)
}

type taskWithContext struct {
	task Task
	ctx  context.Context
}

// workerPool implements the Pool interface.
type workerPool struct {
	config Config
	logger logrus.FieldLogger

	// Run queue, FIFO
	mu    sync.Mutex
	cond  *sync.Cond
	queue []taskWithContext

	// State tracking
	isShutdown     bool
	activeWorkers  int
	totalSubmitted int64
	totalCompleted int64

	shutdownOnce sync.Once
	stopped      chan struct{}
	workerWg     sync.WaitGroup
}

// worker represents a single worker in the pool.
type worker struct {
	id   int
	pool *workerPool
}
