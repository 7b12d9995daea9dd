// Package bucket implements a token bucket rate limiter.
//
// The bucket holds up to Burst tokens and refills at Rate tokens per second.
// Allow takes a token if one is available; Wait parks until one is. When
// called from a scheduler job, Wait hands the worker back while it sleeps.
//
//	limiter := bucket.New(10, 5) // 10 tokens/sec, burst of 5
//	if err := limiter.Wait(ctx); err != nil {
//		return err
//	}
package bucket
