package pipeline

import (
	"context"

	"github.com/vnykmshr/coflow/pkg/metrics"
	"github.com/vnykmshr/coflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// ThrottleConfig configures a Throttle stage.
type ThrottleConfig struct {
	// Name labels the stage job and metrics.
	Name string

	// Capacity of the output channel.
	Capacity channel.Capacity

	// Metrics counts delayed values when non-nil.
	Metrics *metrics.Registry
}

// Throttle forwards the values of in no faster than limiter allows. The
// forwarding job parks without a worker while it waits for tokens.
func Throttle[T any](ctx context.Context, s *scheduler.Scheduler, in *channel.Channel[T], limiter bucket.Limiter, cfg ThrottleConfig) (*channel.Channel[T], *scheduler.Job, error) {
	return Produce(ctx, s, cfg.Capacity, func(ctx context.Context, out *channel.Channel[T]) error {
		it := in.Iterator(ctx)
		for it.Next() {
			if !limiter.Allow() {
				if cfg.Metrics != nil {
					cfg.Metrics.ThrottleWaits.WithLabelValues(cfg.Name).Inc()
				}
				if err := limiter.Wait(ctx); err != nil {
					return err
				}
			}
			if err := out.Send(ctx, it.Value()); err != nil {
				return err
			}
		}
		return it.Err()
	}, scheduler.WithName(cfg.Name))
}
