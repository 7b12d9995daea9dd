/*
Package ratelimit provides the limiters used by coflow pipelines.

  - bucket: Token bucket rate limiter allowing bursts
  - concurrency: Semaphore capping concurrent sections

Both limiters wait through the scheduler's suspension hook, so a job waiting
for a token or a permit does not hold a worker:

	limiter := bucket.New(10, 5) // 10 per second, burst of 5
	throttled, _, _ := pipeline.Throttle(ctx, s, in, limiter, pipeline.ThrottleConfig{Name: "api"})
*/
package ratelimit
