package bucket

import (
	"context"
	"fmt"
	"math"
	"time"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
)

// Allow reports whether an event may happen now.
func (tb *tokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN reports whether n events may happen now.
func (tb *tokenBucket) AllowN(n int) bool {
	_, ok := tb.reserve(n, false)
	return ok
}

// Wait parks until an event can happen.
func (tb *tokenBucket) Wait(ctx context.Context) error {
	return tb.WaitN(ctx, 1)
}

// WaitN parks until n events can happen. Tokens reserved for a wait that is
// cancelled are returned to the bucket. The wait goes through the configured
// clock when it implements Sleeper, and real time otherwise.
func (tb *tokenBucket) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return gfcontext.Cause(ctx)
	}

	delay, ok := tb.reserve(n, true)
	if !ok {
		return fmt.Errorf("bucket: %d tokens can never be served at rate %v burst %d: %w",
			n, tb.Limit(), tb.Burst(), gferrors.ErrCapacityExceeded)
	}
	if delay <= 0 {
		return nil
	}

	sleep := gfcontext.Sleep
	if s, ok := tb.clock.(Sleeper); ok {
		sleep = s.Sleep
	}
	if err := sleep(ctx, delay); err != nil {
		tb.refund(n)
		return err
	}
	return nil
}

// Limit returns the current rate limit.
func (tb *tokenBucket) Limit() Limit {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limit
}

// Burst returns the current burst size.
func (tb *tokenBucket) Burst() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.burst
}

// Tokens returns the number of tokens currently available.
func (tb *tokenBucket) Tokens() float64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	return tb.tokens
}

// reserve takes n tokens. With borrow set the bucket may go negative and the
// caller must wait for the returned delay.
func (tb *tokenBucket) reserve(n int, borrow bool) (time.Duration, bool) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	if n <= 0 || tb.limit == Inf {
		return 0, true
	}

	tb.refill(tb.clock.Now())
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return 0, true
	}
	if !borrow || tb.limit == 0 || n > tb.burst {
		return 0, false
	}

	missing := float64(n) - tb.tokens
	tb.tokens -= float64(n)
	return time.Duration(float64(time.Second) * missing / float64(tb.limit)), true
}

func (tb *tokenBucket) refund(n int) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill(tb.clock.Now())
	tb.tokens = math.Min(tb.tokens+float64(n), float64(tb.burst))
}

// refill adds tokens for the time elapsed since the last update.
func (tb *tokenBucket) refill(now time.Time) {
	if tb.limit == Inf {
		tb.tokens = float64(tb.burst)
		tb.lastUpdate = now
		return
	}

	elapsed := now.Sub(tb.lastUpdate)
	if elapsed <= 0 {
		return
	}
	tb.tokens = math.Min(tb.tokens+elapsed.Seconds()*float64(tb.limit), float64(tb.burst))
	tb.lastUpdate = now
}
