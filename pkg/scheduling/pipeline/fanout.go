package pipeline

import (
	"context"

	"github.com/vnykmshr/coflow/pkg/common/validation"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// FanOut starts consumers jobs that compete for the values of in. Every value
// is handled by exactly one consumer. Each Deferred yields the number of
// values its consumer handled once in is closed and drained.
func FanOut[T any](ctx context.Context, s *scheduler.Scheduler, in *channel.Channel[T], consumers int, handle func(ctx context.Context, v T) error) ([]*scheduler.Deferred[int], error) {
	if err := validation.ValidatePositive("pipeline", "consumers", consumers); err != nil {
		return nil, err
	}

	out := make([]*scheduler.Deferred[int], 0, consumers)
	for i := 0; i < consumers; i++ {
		d, err := scheduler.SubmitWithResult(ctx, s, func(ctx context.Context) (int, error) {
			n := 0
			it := in.Iterator(ctx)
			for it.Next() {
				if err := handle(ctx, it.Value()); err != nil {
					return n, err
				}
				n++
			}
			return n, it.Err()
		})
		if err != nil {
			return out, err
		}
		out = append(out, d)
	}
	return out, nil
}
