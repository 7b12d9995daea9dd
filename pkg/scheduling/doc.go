/*
Package scheduling groups the execution primitives of coflow.

  - workerpool: Fixed pool of workers draining a FIFO queue of tasks
  - scheduler: Jobs multiplexed over a worker pool
  - pipeline: Producer and consumer topologies built from jobs and channels

A job runs on a worker only while it makes progress. When it parks on a
channel, a select, a timer or another job, it hands its worker back; when it
becomes ready again it is queued behind the jobs already waiting. A job that
never parks keeps its worker until it returns, so long computations should
call scheduler.Yield now and then.

	s := scheduler.New(2)
	defer func() { <-s.Shutdown() }()

	d, _ := scheduler.SubmitWithResult(ctx, s, func(ctx context.Context) (int, error) {
		if err := scheduler.Delay(ctx, time.Second); err != nil {
			return 0, err
		}
		return 42, nil
	})
	v, err := d.Await(ctx)
*/
package scheduling
