package pipeline

import (
	"context"

	"github.com/vnykmshr/coflow/pkg/common/validation"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// Produce starts a job that owns a new output channel. The channel is closed
// when the job finishes, whatever the outcome and even if the job was
// cancelled before body ran; the job reports the body error.
func Produce[T any](ctx context.Context, s *scheduler.Scheduler, capacity channel.Capacity, body func(ctx context.Context, out *channel.Channel[T]) error, opts ...scheduler.Option) (*channel.Channel[T], *scheduler.Job, error) {
	if err := validation.ValidateRequired("pipeline", "body", body); err != nil {
		return nil, nil, err
	}
	out := channel.New[T](capacity)
	opts = append(opts, scheduler.OnDone(func(error) { _ = out.Close() }))
	job, err := s.Submit(ctx, func(ctx context.Context) error {
		return body(ctx, out)
	}, opts...)
	if err != nil {
		return nil, nil, err
	}
	return out, job, nil
}
