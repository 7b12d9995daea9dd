package actor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/coflow/internal/testutil"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/metrics"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

func newScheduler(t *testing.T, workers int) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.NewWithConfig(scheduler.Config{Workers: workers, Logger: logging.Discard()})
	t.Cleanup(func() {
		testutil.WaitClosed(t, s.Shutdown(), testutil.TestTimeout)
	})
	return s
}

type task struct {
	description string
}

func TestDisciplinesAreEquivalent(t *testing.T) {
	for _, capacity := range []channel.Capacity{channel.Rendezvous, channel.Bounded(4), channel.Unbounded} {
		for _, d := range []Discipline{CheckClosed, ReceiveOrNil, Iterate} {
			t.Run(capacity.String()+"/"+d.String(), func(t *testing.T) {
				s := newScheduler(t, 2)
				ctx, cancel := testutil.WithTimeout(t)
				defer cancel()

				var seen []string
				a, err := Spawn(ctx, s, Config{Capacity: capacity, Discipline: d, Logger: logging.Discard()},
					func(ctx context.Context, tk task) error {
						seen = append(seen, strings.Repeat(tk.description, 2))
						return nil
					})
				require.NoError(t, err)

				for c := 'a'; c <= 'z'; c++ {
					require.NoError(t, a.Send(ctx, task{description: string(c)}))
				}
				require.NoError(t, a.Close())
				require.NoError(t, a.Job().Join(ctx))

				assert.Equal(t, scheduler.StateCompleted, a.Job().State())
				assert.Equal(t, int64(26), a.Processed())
				require.Len(t, seen, 26)
				assert.Equal(t, "aa", seen[0])
				assert.Equal(t, "zz", seen[25])
			})
		}
	}
}

func TestSendAfterCloseFails(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	a, err := Spawn(ctx, s, Config{Name: "closed"}, func(ctx context.Context, n int) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "closed", a.Name())

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.Send(ctx, 1), channel.ErrChannelClosed)
	require.NoError(t, a.Job().Join(ctx))
}

func TestHandlerErrorStopsActor(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	boom := errors.New("bad message")
	a, err := Spawn(ctx, s, Config{Capacity: channel.Bounded(8)}, func(ctx context.Context, n int) error {
		if n == 3 {
			return boom
		}
		return nil
	})
	require.NoError(t, err)

	for i := 1; i <= 5; i++ {
		if err := a.Send(ctx, i); err != nil {
			assert.ErrorIs(t, err, channel.ErrChannelClosed)
		}
	}
	require.NoError(t, a.Job().Join(ctx))

	assert.Equal(t, scheduler.StateCancelled, a.Job().State())
	assert.ErrorIs(t, a.Job().Err(), boom)
	assert.Equal(t, int64(2), a.Processed())
	assert.ErrorIs(t, a.Send(ctx, 6), channel.ErrChannelClosed)
}

func TestCancelStopsParkedActor(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	a, err := Spawn(ctx, s, Config{Discipline: Iterate}, func(ctx context.Context, n int) error { return nil })
	require.NoError(t, err)
	testutil.AssertEventually(t, func() bool { return a.Job().TaskState() == scheduler.Parked })

	a.Job().Cancel()
	require.NoError(t, a.Job().Join(ctx))
	assert.Equal(t, scheduler.StateCancelled, a.Job().State())
	assert.ErrorIs(t, a.Send(ctx, 1), channel.ErrChannelClosed)
}

func TestStateIsSerialized(t *testing.T) {
	s := newScheduler(t, 4)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	// No lock: the actor is the only writer.
	counter := 0
	a, err := Spawn(ctx, s, Config{Capacity: channel.Bounded(16)}, func(ctx context.Context, n int) error {
		counter += n
		return nil
	})
	require.NoError(t, err)

	var wg conc.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Go(func() {
			for i := 0; i < 100; i++ {
				assert.NoError(t, a.Send(ctx, 1))
			}
		})
	}
	wg.Wait()

	require.NoError(t, a.Close())
	require.NoError(t, a.Job().Join(ctx))
	assert.Equal(t, 1000, counter)
}

type counterMsg struct {
	add   int
	reply *channel.Channel[int]
}

func TestAsk(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	total := 0
	a, err := Spawn(ctx, s, Config{}, func(ctx context.Context, m counterMsg) error {
		if m.reply != nil {
			return m.reply.Send(ctx, total)
		}
		total += m.add
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.Send(ctx, counterMsg{add: 2}))
	}
	got, err := Ask(ctx, a, func(reply *channel.Channel[int]) counterMsg {
		return counterMsg{reply: reply}
	})
	require.NoError(t, err)
	assert.Equal(t, 20, got)

	require.NoError(t, a.Close())
	require.NoError(t, a.Job().Join(ctx))
}

func TestSpawnFunc(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	var mu sync.Mutex
	var got []string
	a, err := SpawnFunc(ctx, s, Config{Capacity: channel.Unbounded}, func(ctx context.Context, mailbox *channel.Channel[string]) error {
		for msg := range mailbox.All(ctx) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		}
		return nil
	})
	require.NoError(t, err)

	for _, m := range []string{"x", "y"} {
		ok, err := a.TrySend(m)
		require.NoError(t, err)
		require.True(t, ok)
	}
	require.NoError(t, a.Close())
	require.NoError(t, a.Job().Join(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestMetrics(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	reg := metrics.For(prometheus.NewRegistry())
	a, err := Spawn(ctx, s, Config{Name: "metered", Metrics: reg, Capacity: channel.Bounded(4)},
		func(ctx context.Context, n int) error {
			if n < 0 {
				return errors.New("negative")
			}
			return nil
		})
	require.NoError(t, err)

	require.NoError(t, a.Send(ctx, 1))
	require.NoError(t, a.Send(ctx, 2))
	require.NoError(t, a.Send(ctx, -1))
	require.NoError(t, a.Job().Join(ctx))

	assert.Equal(t, float64(2), promtestutil.ToFloat64(reg.ActorMessages.WithLabelValues("metered")))
	assert.Equal(t, float64(1), promtestutil.ToFloat64(reg.ActorFailures.WithLabelValues("metered")))
	assert.True(t, gferrors.IsCancellation(a.Job().Err()))
}

func TestSpawnRequiresHandler(t *testing.T) {
	s := newScheduler(t, 1)

	_, err := Spawn[int](context.Background(), s, Config{}, nil)
	assert.ErrorIs(t, err, gferrors.ErrInvalidConfiguration)

	_, err = SpawnFunc[int](context.Background(), s, Config{}, nil)
	assert.True(t, gferrors.IsValidationError(err))
}

func TestActorCancelledBeforeStartClosesMailbox(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var handled bool
	a, err := Spawn(ctx, s, Config{Capacity: channel.Bounded(4), Logger: logging.Discard()},
		func(ctx context.Context, msg int) error {
			handled = true
			return nil
		})
	require.NoError(t, err)

	jctx, jcancel := testutil.WithTimeout(t)
	defer jcancel()
	require.NoError(t, a.Job().Join(jctx))
	assert.Equal(t, scheduler.StateCancelled, a.Job().State())
	assert.False(t, handled)

	ok, err := a.TrySend(1)
	assert.False(t, ok)
	assert.ErrorIs(t, err, channel.ErrChannelClosed)
	assert.ErrorIs(t, a.Send(jctx, 2), channel.ErrChannelClosed)
}

func TestQueuedMessagesGoToOnUndelivered(t *testing.T) {
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	dropped := testutil.NewCallbackTracker()
	boom := errors.New("boom")
	gate := make(chan struct{})
	a, err := Spawn(ctx, s, Config{
		Capacity:      channel.Bounded(4),
		Logger:        logging.Discard(),
		OnUndelivered: func(msg any) { dropped.Mark(msg) },
	}, func(ctx context.Context, msg int) error {
		<-gate
		return boom
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, a.Send(ctx, i))
	}
	close(gate)
	require.NoError(t, a.Job().Join(ctx))

	assert.ErrorIs(t, a.Job().Err(), boom)
	// The first message was taken by the handler; the other two were queued.
	dropped.AssertCallCount(t, 2)
	assert.Equal(t, 2, dropped.Value())
}
