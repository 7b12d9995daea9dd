package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

var specParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Ticker emits the fire time on a rendezvous channel at every activation of
// a cron spec ("*/5 * * * * *", "@every 1m", "@hourly"). A slow consumer
// delays the next tick rather than queueing ticks. The channel closes when
// the returned job is cancelled.
func Ticker(ctx context.Context, s *scheduler.Scheduler, spec string) (*channel.Channel[time.Time], *scheduler.Job, error) {
	schedule, err := specParser.Parse(spec)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid cron expression %q: %v: %w", spec, err, gferrors.ErrInvalidConfiguration)
	}
	return TickerSchedule(ctx, s, schedule)
}

// TickerSchedule is Ticker for an already parsed schedule.
func TickerSchedule(ctx context.Context, s *scheduler.Scheduler, schedule cron.Schedule) (*channel.Channel[time.Time], *scheduler.Job, error) {
	return Produce(ctx, s, channel.Rendezvous, func(ctx context.Context, out *channel.Channel[time.Time]) error {
		for {
			next := schedule.Next(time.Now())
			if next.IsZero() {
				return nil
			}
			if err := scheduler.Delay(ctx, time.Until(next)); err != nil {
				return err
			}
			if err := out.Send(ctx, next); err != nil {
				return err
			}
		}
	}, scheduler.WithName("ticker"))
}
