/*
Package concurrency provides a semaphore for jobs and goroutines.

A Limiter hands out a fixed number of permits. Acquire never blocks; Wait
parks until a permit is free, and inside a scheduler job the wait releases
the worker, so hundreds of jobs can queue on a limiter of capacity 2 without
pinning the pool.

	limiter := concurrency.New(2)

	err := concurrency.WithPermit(ctx, limiter, func(ctx context.Context) error {
		return download(ctx, url)
	})

Waiters are served in arrival order. A waiter cancelled at the moment it was
granted keeps the permit and must release it.

Capacity can change at runtime with SetCapacity.
*/
package concurrency
