package concurrency

import (
	"context"
	"sync"

	"github.com/vnykmshr/coflow/pkg/common/errors"
)

// Limiter controls the number of concurrent operations that can happen
// at any given time. It acts as a semaphore whose waiters park their job
// without holding a scheduler worker.
type Limiter interface {
	// Acquire attempts to acquire a permit for one operation.
	// It returns true if a permit was available, false otherwise.
	// This method does not block.
	Acquire() bool

	// AcquireN attempts to acquire n permits for operations.
	// It returns true if all permits were available, false otherwise.
	// This method does not block.
	AcquireN(n int) bool

	// Wait parks until a permit is available for one operation.
	// It returns the cancellation cause if ctx is done first.
	Wait(ctx context.Context) error

	// WaitN parks until n permits are available. Waiters are served in
	// arrival order.
	WaitN(ctx context.Context, n int) error

	// Release releases one permit back to the limiter.
	// It panics if more permits are released than were acquired.
	Release()

	// ReleaseN releases n permits back to the limiter.
	// It panics if more permits are released than were acquired.
	ReleaseN(n int)

	// SetCapacity changes the maximum number of concurrent operations allowed.
	// If the new capacity is less than current usage, it will take effect
	// as operations complete and permits are released.
	SetCapacity(capacity int)

	// Capacity returns the maximum number of concurrent operations allowed.
	Capacity() int

	// Available returns the number of permits currently available.
	Available() int

	// InUse returns the number of permits currently in use.
	InUse() int
}

// Config holds configuration options for creating a new concurrency Limiter.
type Config struct {
	// Capacity is the maximum number of concurrent operations allowed.
	Capacity int

	// InitialAvailable is the initial number of available permits.
	// If negative or greater than Capacity, defaults to Capacity.
	InitialAvailable int
}

type concurrencyLimiter struct {
	mu        sync.Mutex
	capacity  int
	available int
	inUse     int
	waiters   []*waiter
}

// waiter is a parked WaitN call. ready is closed once its permits are granted.
type waiter struct {
	n     int
	ready chan struct{}
}

// New creates a concurrency limiter with the given capacity.
// It panics if capacity is not positive.
func New(capacity int) Limiter {
	l, err := NewSafe(capacity)
	if err != nil {
		panic(err)
	}
	return l
}

// NewWithConfig creates a concurrency limiter from config.
// It panics if the configuration is invalid.
func NewWithConfig(config Config) Limiter {
	l, err := NewWithConfigSafe(config)
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a new concurrency limiter with validation that returns an error instead of panicking.
func NewSafe(capacity int) (Limiter, error) {
	return NewWithConfigSafe(Config{
		Capacity:         capacity,
		InitialAvailable: -1,
	})
}

// NewWithConfigSafe creates a new concurrency limiter with validation that returns an error instead of panicking.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if config.Capacity <= 0 {
		return nil, errors.NewValidationError("concurrency", "capacity", config.Capacity, "capacity must be positive").
			WithHint("capacity determines how many concurrent operations are allowed")
	}

	initialAvailable := config.InitialAvailable
	if config.InitialAvailable < 0 || config.InitialAvailable > config.Capacity {
		initialAvailable = config.Capacity
	}

	return &concurrencyLimiter{
		capacity:  config.Capacity,
		available: initialAvailable,
		inUse:     config.Capacity - initialAvailable,
	}, nil
}

// WithPermit runs fn while holding one permit of l.
func WithPermit(ctx context.Context, l Limiter, fn func(ctx context.Context) error) error {
	if err := l.Wait(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}
