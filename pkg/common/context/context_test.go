package context

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSuspender struct {
	mu      sync.Mutex
	reasons []Reason
	resumed int
}

func (r *recordingSuspender) Suspend(reason Reason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reasons = append(r.reasons, reason)
}

func (r *recordingSuspender) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resumed++
}

func TestAwaitReadyFastPath(t *testing.T) {
	s := &recordingSuspender{}
	ctx := WithSuspender(context.Background(), s)

	ready := make(chan struct{})
	close(ready)

	require.NoError(t, Await(ctx, ready, ReasonChannel))
	assert.Empty(t, s.reasons, "an already-ready wait must not suspend")
}

func TestAwaitSuspendsWhileWaiting(t *testing.T) {
	s := &recordingSuspender{}
	ctx := WithSuspender(context.Background(), s)

	ready := make(chan struct{})
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(ready)
	}()

	require.NoError(t, Await(ctx, ready, ReasonJoin))
	assert.Equal(t, []Reason{ReasonJoin}, s.reasons)
	assert.Equal(t, 1, s.resumed)
}

func TestAwaitReturnsCause(t *testing.T) {
	cause := errors.New("stop")
	ctx, cancel := context.WithCancelCause(context.Background())
	cancel(cause)

	err := Await(ctx, make(chan struct{}), ReasonChannel)
	assert.ErrorIs(t, err, cause)
}

func TestDetachDropsSuspender(t *testing.T) {
	s := &recordingSuspender{}
	ctx := WithSuspender(context.Background(), s)

	_, ok := SuspenderFrom(ctx)
	assert.True(t, ok)

	_, ok = SuspenderFrom(Detach(ctx))
	assert.False(t, ok)
}

func TestSleep(t *testing.T) {
	start := time.Now()
	require.NoError(t, Sleep(context.Background(), 20*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := Sleep(ctx, time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
