package channel

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/validation"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// ErrChannelClosed is returned by sends on a closed channel and by strict
// receives on a channel that is closed and drained.
var ErrChannelClosed = fmt.Errorf("channel is closed: %w", gferrors.ErrClosed)

// Capacity selects the buffering mode of a channel.
type Capacity int

const (
	// Rendezvous channels have no buffer: every send waits for a receiver.
	Rendezvous Capacity = 0

	// Unbounded channels buffer without limit; sends never park.
	Unbounded Capacity = -1
)

// Bounded returns a capacity of n buffered values. n must be positive.
func Bounded(n int) Capacity {
	if n <= 0 {
		panic(gferrors.NewValidationError("channel", "capacity", n, "must be positive").
			WithHint("use Rendezvous for an unbuffered channel"))
	}
	return Capacity(n)
}

func (c Capacity) String() string {
	switch {
	case c == Rendezvous:
		return "rendezvous"
	case c == Unbounded:
		return "unbounded"
	default:
		return "bounded(" + strconv.Itoa(int(c)) + ")"
	}
}

// Config holds configuration for a Channel.
type Config struct {
	// Capacity selects rendezvous, bounded or unbounded buffering.
	Capacity Capacity

	// Name labels metrics. Defaults to "channel-<id>".
	Name string

	// Metrics receives channel series when non-nil.
	Metrics *metrics.Registry

	// OnUndelivered is called with every value that was accepted by Send but
	// dropped before any receiver got it: values discarded by Cancel and
	// values of parked sends that were cancelled.
	OnUndelivered func(v any)
}

// Result is the tagged outcome of ReceiveOrClosed.
type Result[T any] struct {
	Value  T
	Closed bool
}

// Stats holds statistics about channel traffic.
type Stats struct {
	// SendCount is the total number of values accepted.
	SendCount int64

	// ReceiveCount is the total number of values delivered.
	ReceiveCount int64

	// ParkedSends is the total number of sends that had to park.
	ParkedSends int64

	// ParkedReceives is the total number of receives that had to park.
	ParkedReceives int64

	// UndeliveredCount is the total number of values dropped by Cancel or by
	// cancelled parked sends.
	UndeliveredCount int64

	// Buffered is the current number of buffered values.
	Buffered int

	// Closed reports whether Close or Cancel has been called.
	Closed bool

	// LastSendTime is the timestamp of the last accepted value.
	LastSendTime time.Time

	// LastReceiveTime is the timestamp of the last delivered value.
	LastReceiveTime time.Time
}

var nextID atomic.Uint64

// Channel is a typed FIFO conduit between tasks. Blocking operations take a
// context; when the context belongs to a scheduler task the task hands its
// worker back while parked.
type Channel[T any] struct {
	id            uint64
	name          string
	capacity      Capacity
	onUndelivered func(any)
	metrics       *metrics.Registry

	mu     sync.Mutex
	buf    queue[T]
	sendq  queue[*waiter[T]]
	recvq  queue[*waiter[T]]
	closed bool
	stats  Stats
}

// New creates a channel with the given capacity.
func New[T any](capacity Capacity) *Channel[T] {
	return NewWithConfig[T](Config{Capacity: capacity})
}

// NewWithConfig creates a channel with the specified configuration.
// It panics if the configuration is invalid.
func NewWithConfig[T any](config Config) *Channel[T] {
	if err := validation.ValidateAtLeast("channel", "capacity", int(config.Capacity), int(Unbounded)); err != nil {
		panic(err)
	}

	id := nextID.Add(1)
	name := config.Name
	if name == "" {
		name = "channel-" + strconv.FormatUint(id, 10)
	}

	return &Channel[T]{
		id:            id,
		name:          name,
		capacity:      config.Capacity,
		onUndelivered: config.OnUndelivered,
		metrics:       config.Metrics,
	}
}

// Name returns the channel name.
func (c *Channel[T]) Name() string {
	return c.name
}

// Send delivers v to the channel. It parks while a rendezvous channel has no
// waiting receiver or a bounded channel is full. It returns ErrChannelClosed
// once the channel is closed, or the cancellation cause of ctx.
func (c *Channel[T]) Send(ctx context.Context, v T) error {
	if ctx.Err() != nil {
		return gfcontext.Cause(ctx)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	if c.trySendLocked(v) {
		c.mu.Unlock()
		return nil
	}

	w := &waiter[T]{sel: newSelState(), value: v}
	c.sendq.push(w)
	c.stats.ParkedSends++
	c.observeLocked()
	c.mu.Unlock()

	err := gfcontext.Await(ctx, w.sel.ready, gfcontext.ReasonChannel)
	if err != nil && w.sel.cancel() {
		c.withdraw(&c.sendq, w)
		c.undelivered(v)
		return err
	}

	// Claimed: the handoff happened even if ctx was cancelled meanwhile.
	<-w.sel.ready
	if w.closed {
		return ErrChannelClosed
	}
	return nil
}

// TrySend delivers v if that is possible without parking. It reports whether
// the value was accepted.
func (c *Channel[T]) TrySend(v T) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, ErrChannelClosed
	}
	return c.trySendLocked(v), nil
}

// Receive takes the next value. It returns ErrChannelClosed once the channel
// is closed and drained.
func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	v, ok, err := c.receive(ctx)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrChannelClosed
	}
	return v, nil
}

// ReceiveOrNil takes the next value, returning nil once the channel is closed
// and drained.
func (c *Channel[T]) ReceiveOrNil(ctx context.Context) (*T, error) {
	v, ok, err := c.receive(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// ReceiveOrClosed takes the next value, reporting closure in the result
// instead of as an error.
func (c *Channel[T]) ReceiveOrClosed(ctx context.Context) (Result[T], error) {
	v, ok, err := c.receive(ctx)
	if err != nil {
		return Result[T]{}, err
	}
	return Result[T]{Value: v, Closed: !ok}, nil
}

// TryReceive takes a value if one is available without parking. It returns
// ErrChannelClosed once the channel is closed and drained.
func (c *Channel[T]) TryReceive() (T, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok, handled := c.tryReceiveLocked()
	switch {
	case !handled:
		return v, false, nil
	case !ok:
		return v, false, ErrChannelClosed
	default:
		return v, true, nil
	}
}

func (c *Channel[T]) receive(ctx context.Context) (T, bool, error) {
	var zero T
	if ctx.Err() != nil {
		return zero, false, gfcontext.Cause(ctx)
	}

	c.mu.Lock()
	if v, ok, handled := c.tryReceiveLocked(); handled {
		c.mu.Unlock()
		return v, ok, nil
	}

	w := &waiter[T]{sel: newSelState()}
	c.recvq.push(w)
	c.stats.ParkedReceives++
	c.observeLocked()
	c.mu.Unlock()

	err := gfcontext.Await(ctx, w.sel.ready, gfcontext.ReasonChannel)
	if err != nil && w.sel.cancel() {
		c.withdraw(&c.recvq, w)
		return zero, false, err
	}

	<-w.sel.ready
	return w.value, !w.closed, nil
}

// Close marks the channel closed. Buffered values and parked senders are still
// delivered; receivers observe closure once both are exhausted. Close is
// idempotent.
func (c *Channel[T]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.stats.Closed = true

	// A parked receiver implies an empty buffer and no live senders.
	for _, w := range c.recvq.drain() {
		if w.sel.claim() {
			w.closed = true
			w.sel.fire(w.index)
		}
	}
	c.observeLocked()
	return nil
}

// Cancel closes the channel and discards everything not yet received:
// buffered values and the values of parked senders, which fail with
// ErrChannelClosed. Discarded values go to OnUndelivered.
func (c *Channel[T]) Cancel() {
	c.mu.Lock()
	c.closed = true
	c.stats.Closed = true

	dropped := c.buf.drain()
	for _, w := range c.sendq.drain() {
		if w.sel.claim() {
			dropped = append(dropped, w.value)
			w.closed = true
			w.sel.fire(w.index)
		}
	}
	for _, w := range c.recvq.drain() {
		if w.sel.claim() {
			w.closed = true
			w.sel.fire(w.index)
		}
	}
	c.stats.UndeliveredCount += int64(len(dropped))
	c.observeLocked()
	c.mu.Unlock()

	if c.onUndelivered != nil {
		for _, v := range dropped {
			c.onUndelivered(v)
		}
	}
}

// IsClosedForSend reports whether Close has been called.
func (c *Channel[T]) IsClosedForSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// IsClosedForReceive reports whether the channel is closed with nothing left
// to deliver.
func (c *Channel[T]) IsClosedForReceive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed && c.buf.len() == 0 && !hasLive(&c.sendq)
}

// Len returns the number of buffered values.
func (c *Channel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Cap returns the buffer capacity: 0 for rendezvous, -1 for unbounded.
func (c *Channel[T]) Cap() int {
	return int(c.capacity)
}

// Stats returns a snapshot of the channel statistics.
func (c *Channel[T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Buffered = c.buf.len()
	return s
}

// trySendLocked hands v to a parked receiver or buffers it.
func (c *Channel[T]) trySendLocked(v T) bool {
	if w := claimFirst(&c.recvq); w != nil {
		w.value = v
		w.sel.fire(w.index)
		c.sentLocked()
		c.receivedLocked()
		return true
	}
	if c.capacity == Unbounded || c.buf.len() < int(c.capacity) {
		c.buf.push(v)
		c.sentLocked()
		return true
	}
	return false
}

// tryReceiveLocked takes a value from the buffer or a parked sender. handled
// is false when the caller would have to park; ok is false when the channel
// is closed and drained.
func (c *Channel[T]) tryReceiveLocked() (v T, ok, handled bool) {
	if item, found := c.buf.pop(); found {
		// Refill the slot from the oldest parked sender.
		if w := claimFirst(&c.sendq); w != nil {
			c.buf.push(w.value)
			w.sel.fire(w.index)
			c.sentLocked()
		}
		c.receivedLocked()
		return item, true, true
	}
	if w := claimFirst(&c.sendq); w != nil {
		w.sel.fire(w.index)
		c.sentLocked()
		c.receivedLocked()
		return w.value, true, true
	}
	if c.closed {
		return v, false, true
	}
	return v, false, false
}

func (c *Channel[T]) sentLocked() {
	c.stats.SendCount++
	c.stats.LastSendTime = time.Now()
	if c.metrics != nil {
		c.metrics.ChannelSends.WithLabelValues(c.name).Inc()
	}
	c.observeLocked()
}

func (c *Channel[T]) receivedLocked() {
	c.stats.ReceiveCount++
	c.stats.LastReceiveTime = time.Now()
	if c.metrics != nil {
		c.metrics.ChannelReceives.WithLabelValues(c.name).Inc()
	}
	c.observeLocked()
}

func (c *Channel[T]) observeLocked() {
	if c.metrics == nil {
		return
	}
	c.metrics.ChannelBuffered.WithLabelValues(c.name).Set(float64(c.buf.len()))
	c.metrics.ChannelParked.WithLabelValues(c.name, "send").Set(float64(c.sendq.len()))
	c.metrics.ChannelParked.WithLabelValues(c.name, "receive").Set(float64(c.recvq.len()))
}

// withdraw removes a cancelled waiter from q.
func (c *Channel[T]) withdraw(q *queue[*waiter[T]], w *waiter[T]) {
	c.mu.Lock()
	q.removeFunc(func(other *waiter[T]) bool { return other == w })
	c.observeLocked()
	c.mu.Unlock()
}

func (c *Channel[T]) undelivered(v T) {
	c.mu.Lock()
	c.stats.UndeliveredCount++
	c.mu.Unlock()

	if c.onUndelivered != nil {
		c.onUndelivered(v)
	}
}

// claimFirst pops waiters until one is claimed, discarding those that were
// cancelled or already won elsewhere.
func claimFirst[T any](q *queue[*waiter[T]]) *waiter[T] {
	for {
		w, ok := q.pop()
		if !ok {
			return nil
		}
		if w.sel.claim() {
			return w
		}
	}
}

func hasLive[T any](q *queue[*waiter[T]]) bool {
	live := false
	q.each(func(w *waiter[T]) {
		if w.sel.live() {
			live = true
		}
	})
	return live
}
