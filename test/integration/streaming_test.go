package integration

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/coflow/internal/testutil"
	"github.com/vnykmshr/coflow/pkg/actor"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/scheduling/pipeline"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
	"github.com/vnykmshr/coflow/pkg/streaming/stream"
	"github.com/vnykmshr/coflow/pkg/streaming/writer"
)

// TestPingPong bounces a counter between two jobs over rendezvous channels
// on a single worker.
func TestPingPong(t *testing.T) {
	const rounds = 100
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	u1u2 := channel.New[int64](channel.Rendezvous)
	u2u1 := channel.New[int64](channel.Rendezvous)

	user := func(in, out *channel.Channel[int64]) func(context.Context) error {
		return func(ctx context.Context) error {
			for m := range in.All(ctx) {
				if m >= rounds {
					return out.Close()
				}
				if err := out.Send(ctx, m+1); err != nil {
					return err
				}
			}
			return out.Close()
		}
	}

	u1, err := s.Submit(ctx, user(u2u1, u1u2), scheduler.WithName("user-1"))
	require.NoError(t, err)
	u2, err := s.Submit(ctx, user(u1u2, u2u1), scheduler.WithName("user-2"))
	require.NoError(t, err)

	require.NoError(t, u2u1.Send(ctx, 0))
	require.NoError(t, u1.Join(ctx))
	require.NoError(t, u2.Join(ctx))
	assert.Equal(t, scheduler.StateCompleted, u1.State())
	assert.Equal(t, scheduler.StateCompleted, u2.State())
}

// TestSelectUntilClosingProducer selects over two endless producers and one
// that closes, stopping when the closing producer reports closed.
func TestSelectUntilClosingProducer(t *testing.T) {
	s := newScheduler(t, 2)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	letters := func(from, to rune) func(context.Context, *channel.Channel[string]) error {
		return func(ctx context.Context, out *channel.Channel[string]) error {
			for c := from; ; c++ {
				if c > to {
					c = from
				}
				if err := scheduler.Delay(ctx, time.Millisecond); err != nil {
					return err
				}
				if err := out.Send(ctx, string(c)); err != nil {
					return err
				}
			}
		}
	}
	first, firstJob, err := pipeline.Produce(ctx, s, channel.Rendezvous, letters('a', 'z'))
	require.NoError(t, err)
	second, secondJob, err := pipeline.Produce(ctx, s, channel.Rendezvous, letters('A', 'Z'))
	require.NoError(t, err)
	closing, _, err := pipeline.Produce(ctx, s, channel.Rendezvous, func(ctx context.Context, out *channel.Channel[string]) error {
		for c := '1'; c <= '9'; c++ {
			if err := out.Send(ctx, string(c)); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	var digits []string
	for {
		received, err := channel.Select(ctx,
			channel.OnReceive(first, func(v string) (string, error) { return v, nil }),
			channel.OnReceive(second, func(v string) (string, error) { return v, nil }),
			channel.OnReceiveOrClosed(closing, func(r channel.Result[string]) (string, error) {
				if r.Closed {
					return "closed", nil
				}
				return r.Value, nil
			}),
		)
		require.NoError(t, err)
		if received == "closed" {
			break
		}
		if received[0] >= '1' && received[0] <= '9' {
			digits = append(digits, received)
		}
	}

	assert.Equal(t, strings.Split("123456789", ""), digits)
	firstJob.Cancel()
	secondJob.Cancel()
	require.NoError(t, firstJob.Join(ctx))
	require.NoError(t, secondJob.Join(ctx))
}

// TestFanInThroughActorWriter collects two producers into one channel,
// consumes it as a stream and serializes the output through an actor writer.
func TestFanInThroughActorWriter(t *testing.T) {
	s := newScheduler(t, 2)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	worker := func(name string) func(context.Context, *pipeline.Sender[string]) error {
		return func(ctx context.Context, out *pipeline.Sender[string]) error {
			for i := 0; i < 10; i++ {
				if err := scheduler.Delay(ctx, time.Duration(i%3)*time.Millisecond); err != nil {
					return err
				}
				if err := out.Send(ctx, name); err != nil {
					return err
				}
			}
			return nil
		}
	}
	collector, _, err := pipeline.FanIn(ctx, s, channel.Rendezvous, worker("Result1"), worker("Result2"))
	require.NoError(t, err)

	sink := testutil.NewMockWriter()
	w, err := writer.NewWithConfig(ctx, s, sink, writer.Config{BlockOnFull: true, Logger: logging.Discard()})
	require.NoError(t, err)

	err = stream.FromChannel(collector).Collect(ctx, func(r string) error {
		return w.WriteString(fmt.Sprintf("Got result: %s\n", r))
	})
	require.NoError(t, err)
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimSpace(sink.String()), "\n")
	assert.Len(t, lines, 20)
	assert.Equal(t, 10, strings.Count(sink.String(), "Result1"))
	assert.Equal(t, 10, strings.Count(sink.String(), "Result2"))
}

// TestActorDisciplinesAgree feeds the alphabet to one actor per discipline.
func TestActorDisciplinesAgree(t *testing.T) {
	s := newScheduler(t, 2)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	for _, d := range []actor.Discipline{actor.CheckClosed, actor.ReceiveOrNil, actor.Iterate} {
		t.Run(d.String(), func(t *testing.T) {
			var out strings.Builder
			a, err := actor.Spawn(ctx, s, actor.Config{Discipline: d, Logger: logging.Discard()},
				func(_ context.Context, task string) error {
					out.WriteString(task)
					return nil
				})
			require.NoError(t, err)

			for c := 'a'; c <= 'z'; c++ {
				require.NoError(t, a.Send(ctx, string(c)))
			}
			require.NoError(t, a.Close())
			require.NoError(t, a.Job().Join(ctx))

			assert.Equal(t, "abcdefghijklmnopqrstuvwxyz", out.String())
			assert.Equal(t, int64(26), a.Processed())
		})
	}
}
