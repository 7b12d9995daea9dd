/*
Package pipeline builds producer and consumer topologies from scheduler jobs
and channels.

Produce starts a job that owns an output channel and closes it when done:

	letters, job, err := pipeline.Produce(ctx, s, channel.Rendezvous,
		func(ctx context.Context, out *channel.Channel[string]) error {
			for c := 'a'; c <= 'z'; c++ {
				if err := out.Send(ctx, string(c)); err != nil {
					return err
				}
			}
			return nil
		})

Fan-in:

Several producers write into one Collector. Every producer holds a Sender and
closes it when finished; the shared channel closes with the last Sender, so
consumers see every value before they see closure. FanIn and Merge wire this
up on a scheduler.

Fan-out:

FanOut starts several consumer jobs on one channel. Each value goes to exactly
one consumer and every consumer reports how many values it handled.

Timing:

Ticker emits on a cron schedule (robfig/cron syntax, seconds optional).
Throttle limits the rate of a channel with a token bucket.
*/
package pipeline
