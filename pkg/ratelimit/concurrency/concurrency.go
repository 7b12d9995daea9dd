package concurrency

import (
	"context"
	"slices"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
)

func (cl *concurrencyLimiter) Acquire() bool {
	return cl.AcquireN(1)
}

func (cl *concurrencyLimiter) AcquireN(n int) bool {
	if n <= 0 {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// Queued waiters go first.
	if len(cl.waiters) == 0 && cl.available >= n {
		cl.take(n)
		return true
	}
	return false
}

func (cl *concurrencyLimiter) Wait(ctx context.Context) error {
	return cl.WaitN(ctx, 1)
}

func (cl *concurrencyLimiter) WaitN(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return gfcontext.Cause(ctx)
	}

	cl.mu.Lock()
	if len(cl.waiters) == 0 && cl.available >= n {
		cl.take(n)
		cl.mu.Unlock()
		return nil
	}

	w := &waiter{n: n, ready: make(chan struct{})}
	cl.waiters = append(cl.waiters, w)
	cl.mu.Unlock()

	err := gfcontext.Await(ctx, w.ready, gfcontext.ReasonPermit)
	if err == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()
	if i := slices.Index(cl.waiters, w); i >= 0 {
		cl.waiters = slices.Delete(cl.waiters, i, i+1)
		// A large waiter leaving may unblock smaller ones behind it.
		cl.notifyWaiters()
		return err
	}
	// Granted while being cancelled: the grant wins.
	return nil
}

func (cl *concurrencyLimiter) Release() {
	cl.ReleaseN(1)
}

func (cl *concurrencyLimiter) ReleaseN(n int) {
	if n <= 0 {
		return
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if cl.inUse < n {
		panic("concurrency: released more permits than acquired")
	}

	cl.available += n
	cl.inUse -= n
	cl.notifyWaiters()
}

func (cl *concurrencyLimiter) SetCapacity(newCapacity int) {
	if newCapacity <= 0 {
		panic("capacity must be positive")
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	// available goes negative when permits in use exceed the new capacity;
	// releases pay the difference back before anything is granted.
	cl.capacity = newCapacity
	cl.available = newCapacity - cl.inUse
	cl.notifyWaiters()
}

func (cl *concurrencyLimiter) Capacity() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.capacity
}

func (cl *concurrencyLimiter) Available() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return max(0, cl.available)
}

func (cl *concurrencyLimiter) InUse() int {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.inUse
}

func (cl *concurrencyLimiter) take(n int) {
	cl.available -= n
	cl.inUse += n
}

// notifyWaiters grants permits to waiters in arrival order, stopping at the
// first one that cannot be satisfied. Must be called with cl.mu held.
func (cl *concurrencyLimiter) notifyWaiters() {
	granted := 0
	for _, w := range cl.waiters {
		if cl.available < w.n {
			break
		}
		cl.take(w.n)
		close(w.ready)
		granted++
	}
	cl.waiters = slices.Delete(cl.waiters, 0, granted)
}
