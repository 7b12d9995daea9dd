/*
Package coflow provides in-process concurrency primitives built around jobs
that park instead of blocking: typed channels, a scheduler that multiplexes
many jobs over a few workers, actors, select, and fan-in/fan-out pipelines.

Scheduling (pkg/scheduling):
  - workerpool: Bounded pool running runnable jobs in FIFO order
  - scheduler: Jobs, Deferred results, Yield, Delay and WithTimeout
  - pipeline: Produce, FanIn, FanOut, Merge, Ticker and Throttle

Streaming (pkg/streaming):
  - channel: Rendezvous, bounded and unbounded channels with Select
  - stream: Lazy operations over a channel or any other source
  - writer: Buffered writer serialized through an actor

Actors (pkg/actor): a job bound to a mailbox channel.

Rate Limiting (pkg/ratelimit):
  - bucket: Token bucket, used by pipeline.Throttle
  - concurrency: Semaphore whose waiters park without a worker

Example usage:

	import (
		"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
		"github.com/vnykmshr/coflow/pkg/streaming/channel"
	)

	s := scheduler.New(2)
	defer func() { <-s.Shutdown() }()

	ch := channel.New[string](channel.Rendezvous)
	s.Submit(ctx, func(ctx context.Context) error {
		defer ch.Close()
		return ch.Send(ctx, "ping")
	})
	msg, _ := ch.Receive(ctx)
*/
package coflow
