/*
Package workerpool provides the fixed set of workers that the scheduler
multiplexes tasks over.

A worker pool manages a fixed number of worker goroutines that drain a FIFO
run queue. Tasks run one at a time per worker; a task keeps its worker until
Execute returns. The scheduler submits task continuations here: a continuation
holds the worker only while its task is running and returns it at every
suspension point, so a small pool can carry many more logical tasks.

Basic usage:

	pool := workerpool.New(4, 0) // 4 workers, unbounded queue
	defer func() { <-pool.Shutdown() }()

	task := workerpool.TaskFunc(func(ctx context.Context) error {
		// Do work
		return nil
	})

	if err := pool.Submit(task); err != nil {
		log.Printf("Failed to submit: %v", err)
	}

Queue Semantics:

The run queue is strictly FIFO. Submit never blocks: with QueueSize 0 the queue
is unbounded, otherwise Submit fails with ErrCapacityExceeded once the limit is
reached. This lets a running task re-queue itself without risking a deadlock
against its own worker.

Configuration Options:

	config := workerpool.Config{
		WorkerCount: 8,
		TaskTimeout: 30 * time.Second,
		Name:        "io",
		PanicHandler: func(task workerpool.Task, recovered interface{}) {
			log.Printf("Task panicked: %v", recovered)
		},
		OnTaskComplete: func(workerID int, result workerpool.Result) {
			log.Printf("Worker %d completed task in %v", workerID, result.Duration)
		},
	}
	pool := workerpool.NewWithConfig(config)

Shutdown:

Shutdown stops accepting new tasks, lets workers finish everything already
queued and closes the returned channel once every worker has exited.

Metrics:

NewWithConfigAndMetrics wraps a pool and reports size, active workers, queue
length and per-task dispatch wait through the metrics package.
*/
package workerpool
