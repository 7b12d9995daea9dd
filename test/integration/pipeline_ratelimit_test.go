// Package integration contains integration tests that verify cross-package functionality.
// These tests ensure that different components work together correctly in realistic scenarios.
package integration

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/coflow/internal/testutil"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/ratelimit/bucket"
	"github.com/vnykmshr/coflow/pkg/ratelimit/concurrency"
	"github.com/vnykmshr/coflow/pkg/scheduling/pipeline"
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

// TestThrottledFanOut runs produce -> throttle -> fan-out on a small pool and
// checks the rate limit and the permit cap hold across stages.
func TestThrottledFanOut(t *testing.T) {
	const items = 20
	s := newScheduler(t, 2)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	source, _, err := pipeline.Produce(ctx, s, channel.Rendezvous, func(ctx context.Context, out *channel.Channel[int]) error {
		for i := 0; i < items; i++ {
			if err := out.Send(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	// 200/s with a burst of 5: the remaining 15 items need about 75ms.
	limiter, err := bucket.NewSafe(200, 5)
	require.NoError(t, err)
	start := time.Now()
	throttled, _, err := pipeline.Throttle(ctx, s, source, limiter, pipeline.ThrottleConfig{Name: "ingest"})
	require.NoError(t, err)

	permits := concurrency.New(2)
	var active, peak atomic.Int32
	consumers, err := pipeline.FanOut(ctx, s, throttled, 5, func(ctx context.Context, _ int) error {
		return concurrency.WithPermit(ctx, permits, func(ctx context.Context) error {
			n := active.Add(1)
			defer active.Add(-1)
			for p := peak.Load(); n > p && !peak.CompareAndSwap(p, n); p = peak.Load() {
			}
			return scheduler.Delay(ctx, time.Millisecond)
		})
	})
	require.NoError(t, err)

	total := 0
	for _, c := range consumers {
		n, err := c.Await(ctx)
		require.NoError(t, err)
		total += n
	}

	assert.Equal(t, items, total)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

// TestManyParkedJobsOnOneWorker parks far more jobs than workers on channel
// receives and releases them all.
func TestManyParkedJobsOnOneWorker(t *testing.T) {
	const jobs = 200
	s := newScheduler(t, 1)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()

	gate := channel.New[struct{}](channel.Rendezvous)
	done := make([]*scheduler.Job, jobs)
	for i := range done {
		var err error
		done[i], err = s.Submit(ctx, func(ctx context.Context) error {
			_, err := gate.ReceiveOrClosed(ctx)
			return err
		})
		require.NoError(t, err)
	}

	testutil.AssertEventually(t, func() bool {
		for _, j := range done {
			if j.TaskState() != scheduler.Parked {
				return false
			}
		}
		return true
	})

	require.NoError(t, gate.Close())
	for _, j := range done {
		require.NoError(t, j.Join(ctx))
		assert.Equal(t, scheduler.StateCompleted, j.State())
	}
}
