package bucket

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/vnykmshr/coflow/pkg/common/validation"
)

// Limit is the refill rate in tokens per second. Inf never limits.
type Limit float64

// Inf is the infinite rate limit; it allows all events.
var Inf = Limit(math.Inf(1))

// Every converts a minimum interval between events to a Limit.
func Every(interval time.Duration) Limit {
	if interval <= 0 {
		return Inf
	}
	return Limit(time.Second) / Limit(interval)
}

// Limiter is a token bucket. Wait releases the scheduler worker while it
// sleeps, so a throttled job does not pin a worker.
type Limiter interface {
	// Allow reports whether one token is available now and takes it.
	Allow() bool

	// AllowN reports whether n tokens are available now and takes them.
	AllowN(n int) bool

	// Wait parks until one token is available.
	Wait(ctx context.Context) error

	// WaitN parks until n tokens are available.
	WaitN(ctx context.Context, n int) error

	// Limit returns the refill rate.
	Limit() Limit

	// Burst returns the bucket size.
	Burst() int

	// Tokens returns the number of tokens currently available.
	Tokens() float64
}

// Clock provides the current time. It can be mocked for testing.
//
// A Clock drives refill accounting only. WaitN waits in real time unless the
// clock also implements Sleeper.
type Clock interface {
	Now() time.Time
}

// Sleeper is implemented by clocks that also control how long WaitN parks.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock implements Clock using the system time.
type SystemClock struct{}

// Now returns the current system time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Config holds configuration options for creating a new Limiter.
type Config struct {
	// Rate is the number of tokens added per second.
	Rate Limit

	// Burst is the maximum number of tokens that can be stored.
	Burst int

	// Clock provides the current time. If nil, SystemClock is used. See
	// Sleeper for how waits follow the clock.
	Clock Clock

	// InitialTokens is the number of tokens to start with.
	// If negative, starts with full capacity.
	InitialTokens int
}

type tokenBucket struct {
	mu         sync.Mutex
	limit      Limit
	burst      int
	tokens     float64
	lastUpdate time.Time
	clock      Clock
}

// New creates a full token bucket. It panics on invalid parameters.
func New(rate Limit, burst int) Limiter {
	l, err := NewSafe(rate, burst)
	if err != nil {
		panic(err)
	}
	return l
}

// NewSafe creates a full token bucket, returning an error on invalid parameters.
func NewSafe(rate Limit, burst int) (Limiter, error) {
	return NewWithConfigSafe(Config{Rate: rate, Burst: burst, InitialTokens: -1})
}

// NewWithConfigSafe creates a token bucket from config.
func NewWithConfigSafe(config Config) (Limiter, error) {
	if err := validation.ValidateNonNegativeFloat("bucket", "rate", float64(config.Rate)); err != nil {
		return nil, err
	}
	if err := validation.ValidatePositive("bucket", "burst", config.Burst); err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}

	initialTokens := float64(config.InitialTokens)
	if config.InitialTokens < 0 {
		initialTokens = float64(config.Burst)
	}

	return &tokenBucket{
		limit:      config.Rate,
		burst:      config.Burst,
		tokens:     initialTokens,
		lastUpdate: config.Clock.Now(),
		clock:      config.Clock,
	}, nil
}
