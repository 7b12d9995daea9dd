/*
Package scheduler runs many logical tasks over a small, fixed pool of workers.

Every job body runs on its own goroutine, but only while it holds a worker from
the pool. At a suspension point the job hands its worker back and, once it can
continue, queues again at the back of the run queue. Suspension points are:

  - channel operations that park (see package channel),
  - channel.Select,
  - Yield, Delay, Job.Join and Deferred.Await.

A job parked on a channel therefore costs a goroutine but no worker, and a pool
of two workers can serve thousands of parked jobs.

Basic Usage:

	s := scheduler.New(2)
	defer func() { <-s.Shutdown() }()

	job, err := s.Submit(ctx, func(ctx context.Context) error {
		return scheduler.Delay(ctx, 100*time.Millisecond)
	}, scheduler.WithName("sleeper"))

	_ = job.Join(ctx)

Results:

	d, err := scheduler.SubmitWithResult(ctx, s, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	v, err := d.Await(ctx)

Join never reports the job outcome, only the caller's own cancellation. Await
returns the job error when the job was cancelled or failed.

Lifecycle:

A job moves StateNew -> StateActive -> StateCompleting -> StateCompleted when
its body returns nil, and StateNew|StateActive -> StateCanceling ->
StateCancelled when it is cancelled or its body returns an error or panics. Err wraps errors.ErrCancelled for every cancelled
job, plus the body error for failures.

Jobs submitted with the context of another job are its children. A parent
waits in StateCompleting or StateCanceling until all children are terminal.
Cancelling a parent cancels its children; a failing child does not affect its
parent.

Fairness:

Workers serve the run queue in FIFO order and never preempt a running job. A
job that computes without suspending keeps its worker; call Yield in long
loops to let other jobs run.

Cancellation:

Cancellation is cooperative. Job.Cancel wakes a parked job with
errors.ErrCancelled; a running job observes it at its next suspension point.
WithTimeout runs a body as a child job that is cancelled with
errors.ErrTimeout after the given duration.
*/
package scheduler
