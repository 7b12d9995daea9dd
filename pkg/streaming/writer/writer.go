package writer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vnykmshr/coflow/pkg/actor"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/common/logging"
	"github.com/vnykmshr/coflow/pkg/common/validation"
	"github.com/vnykmshr/coflow/pkg/metrics"
	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

// ErrWriterClosed is returned when attempting to write to a closed writer.
var ErrWriterClosed = errors.New("writer is closed")

// ErrBufferFull is returned by non-blocking writers when the request queue is
// full.
var ErrBufferFull = errors.New("buffer is full")

// AsyncWriter serializes writes from any number of jobs or goroutines through
// one actor that owns the buffer and the underlying writer.
type AsyncWriter interface {
	// Write queues data. With BlockOnFull it waits until the data is buffered.
	Write(data []byte) error

	// WriteString queues a string.
	WriteString(s string) error

	// WriteContext queues data, giving up when ctx is done.
	WriteContext(ctx context.Context, data []byte) error

	// Flush writes everything buffered so far to the underlying writer.
	Flush(ctx context.Context) error

	// Close flushes what is left and stops the actor. Later writes fail with
	// ErrWriterClosed.
	Close() error

	// Stats returns a snapshot of the writer statistics.
	Stats() Stats

	// IsClosed reports whether Close was called.
	IsClosed() bool

	// BufferSize returns the number of buffered bytes.
	BufferSize() int

	// BufferCapacity returns the buffer size that triggers a flush.
	BufferCapacity() int
}

// Stats holds statistics about async writer performance.
type Stats struct {
	// BytesWritten is the total number of bytes accepted into the buffer.
	BytesWritten int64

	// WriteCount is the total number of write operations.
	WriteCount int64

	// FlushCount is the total number of flush operations.
	FlushCount int64

	// ErrorCount is the total number of failed flushes.
	ErrorCount int64

	// BufferOverflows is the number of writes rejected with ErrBufferFull.
	BufferOverflows int64

	// AverageWriteTime is the average time per write operation.
	AverageWriteTime time.Duration

	// TotalWriteTime is the total time spent writing.
	TotalWriteTime time.Duration

	// LastWriteTime is the timestamp of the last write operation.
	LastWriteTime time.Time

	// BufferUtilization is the current buffer utilization (0.0 to 1.0).
	BufferUtilization float64
}

// Config holds configuration options for AsyncWriter.
type Config struct {
	// BufferSize is the number of bytes buffered before a flush.
	// Default: 64KB
	BufferSize int

	// QueueSize is the capacity of the actor mailbox.
	// Default: 100
	QueueSize int

	// FlushInterval is how often to flush the buffer automatically.
	// Set to 0 to disable automatic flushing.
	// Default: 1 second
	FlushInterval time.Duration

	// BlockOnFull determines behavior when the mailbox is full.
	// If true, writes park until the actor has buffered them.
	// If false, writes return ErrBufferFull immediately.
	// Default: true
	BlockOnFull bool

	// MaxRetries is the number of times to retry failed write operations.
	// Default: 3
	MaxRetries int

	// RetryDelay is the delay between retries. The actor parks without a
	// worker while it waits.
	// Default: 100ms
	RetryDelay time.Duration

	// Name labels the actor, logs and metrics.
	Name string

	// Logger receives flush failures. Nil uses the package default.
	Logger logrus.FieldLogger

	// Metrics counts flushed bytes when non-nil.
	Metrics *metrics.Registry

	// OnError is called when write errors occur.
	OnError func(error)

	// OnFlush is called after each flush operation.
	OnFlush func(bytesWritten int, duration time.Duration)

	// OnBufferFull is called when a write is rejected with ErrBufferFull.
	OnBufferFull func()
}

// DefaultConfig returns a default configuration.
func DefaultConfig() Config {
	return Config{
		BufferSize:    64 * 1024,
		QueueSize:     100,
		FlushInterval: time.Second,
		BlockOnFull:   true,
		MaxRetries:    3,
		RetryDelay:    100 * time.Millisecond,
		Name:          "writer",
	}
}

// request is one mailbox message: data to buffer, or a flush when flush is set.
// reply is nil for fire-and-forget requests.
type request struct {
	data  []byte
	flush bool
	reply *channel.Channel[error]
}

type asyncWriter struct {
	underlying io.Writer
	config     Config
	logger     logrus.FieldLogger

	actor       *actor.Actor[request]
	flusher     *scheduler.Job
	stopFlusher context.CancelFunc

	// buffer is touched only by the actor.
	buffer   []byte
	buffered atomic.Int64

	closed   atomic.Bool
	closeMu  sync.Mutex
	finalErr error

	stats   Stats
	statsMu sync.RWMutex
}

// New creates an AsyncWriter on s with default configuration.
func New(ctx context.Context, s *scheduler.Scheduler, w io.Writer) (AsyncWriter, error) {
	return NewWithConfig(ctx, s, w, DefaultConfig())
}

// NewWithConfig creates an AsyncWriter on s. The actor and the optional
// flusher run as jobs of s, so s must outlive the writer.
func NewWithConfig(ctx context.Context, s *scheduler.Scheduler, w io.Writer, config Config) (AsyncWriter, error) {
	if err := validation.ValidateRequired("writer", "writer", w); err != nil {
		return nil, err
	}
	defaults := DefaultConfig()
	if config.BufferSize <= 0 {
		config.BufferSize = defaults.BufferSize
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = defaults.MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = defaults.RetryDelay
	}
	if config.Name == "" {
		config.Name = defaults.Name
	}

	aw := &asyncWriter{
		underlying: w,
		config:     config,
		logger:     logging.Component(config.Logger, "writer", config.Name),
		buffer:     make([]byte, 0, config.BufferSize),
	}

	a, err := actor.SpawnFunc(ctx, s, actor.Config{
		Capacity: channel.Bounded(config.QueueSize),
		Name:     config.Name,
		Logger:   config.Logger,
		Metrics:  config.Metrics,
		// Requests still queued when the actor stops are answered so no
		// caller waits on a reply that never comes.
		OnUndelivered: func(msg any) {
			if req, ok := msg.(request); ok {
				reply(req, ErrWriterClosed)
			}
		},
	}, aw.run)
	if err != nil {
		return nil, err
	}
	aw.actor = a

	if config.FlushInterval > 0 {
		fctx, stop := context.WithCancel(ctx)
		aw.stopFlusher = stop
		aw.flusher, err = s.Submit(fctx, aw.flushLoop, scheduler.WithName(config.Name+"-flush"))
		if err != nil {
			stop()
			_ = aw.actor.Close()
			return nil, err
		}
	}

	return aw, nil
}

func (aw *asyncWriter) Write(data []byte) error {
	return aw.WriteContext(context.Background(), data)
}

func (aw *asyncWriter) WriteString(s string) error {
	return aw.WriteContext(context.Background(), []byte(s))
}

func (aw *asyncWriter) WriteContext(ctx context.Context, data []byte) error {
	if aw.IsClosed() {
		return ErrWriterClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	req := request{data: append([]byte(nil), data...)}

	if !aw.config.BlockOnFull {
		ok, err := aw.actor.TrySend(req)
		if err != nil {
			return ErrWriterClosed
		}
		if !ok {
			aw.updateStats(func(s *Stats) {
				s.BufferOverflows++
			})
			if aw.config.OnBufferFull != nil {
				aw.config.OnBufferFull()
			}
			return ErrBufferFull
		}
		return nil
	}

	return aw.call(ctx, req)
}

func (aw *asyncWriter) Flush(ctx context.Context) error {
	if aw.IsClosed() {
		return ErrWriterClosed
	}
	return aw.call(ctx, request{flush: true})
}

// call sends req and waits for the actor's reply.
func (aw *asyncWriter) call(ctx context.Context, req request) error {
	req.reply = channel.New[error](channel.Bounded(1))
	if err := aw.actor.Send(ctx, req); err != nil {
		if errors.Is(err, channel.ErrChannelClosed) {
			return ErrWriterClosed
		}
		return err
	}

	err, rerr := req.reply.Receive(ctx)
	if rerr != nil {
		return rerr
	}
	return err
}

func (aw *asyncWriter) Close() error {
	aw.closeMu.Lock()
	defer aw.closeMu.Unlock()

	if !aw.closed.CompareAndSwap(false, true) {
		return aw.finalErr
	}

	ctx := context.Background()
	if aw.flusher != nil {
		aw.stopFlusher()
		_ = aw.flusher.Join(ctx)
	}

	_ = aw.actor.Close()
	_ = aw.actor.Job().Join(ctx)
	return aw.finalErr
}

func (aw *asyncWriter) Stats() Stats {
	aw.statsMu.RLock()
	stats := aw.stats
	aw.statsMu.RUnlock()

	stats.BufferUtilization = float64(aw.buffered.Load()) / float64(aw.config.BufferSize)
	if stats.WriteCount > 0 {
		stats.AverageWriteTime = time.Duration(int64(stats.TotalWriteTime) / stats.WriteCount)
	}
	return stats
}

func (aw *asyncWriter) IsClosed() bool {
	return aw.closed.Load()
}

func (aw *asyncWriter) BufferSize() int {
	return int(aw.buffered.Load())
}

func (aw *asyncWriter) BufferCapacity() int {
	return aw.config.BufferSize
}

// run is the actor body. Once the mailbox is closed and drained it flushes
// what is left.
func (aw *asyncWriter) run(ctx context.Context, mailbox *channel.Channel[request]) error {
	it := mailbox.Iterator(ctx)
	for it.Next() {
		aw.handle(ctx, it.Value())
	}

	aw.finalErr = aw.flushBuffer(ctx)

	if err := it.Err(); err != nil {
		return err
	}
	return aw.finalErr
}

func (aw *asyncWriter) handle(ctx context.Context, req request) {
	if req.flush {
		reply(req, aw.flushBuffer(ctx))
		return
	}

	start := time.Now()
	if len(aw.buffer)+len(req.data) > aw.config.BufferSize {
		if err := aw.flushBuffer(ctx); err != nil {
			reply(req, err)
			return
		}
	}

	aw.buffer = append(aw.buffer, req.data...)
	aw.buffered.Store(int64(len(aw.buffer)))

	duration := time.Since(start)
	aw.updateStats(func(s *Stats) {
		s.WriteCount++
		s.BytesWritten += int64(len(req.data))
		s.TotalWriteTime += duration
		s.LastWriteTime = time.Now()
	})
	reply(req, nil)
}

func reply(req request, err error) {
	if req.reply != nil {
		_, _ = req.reply.TrySend(err)
	}
}

// flushLoop asks the actor for a flush every FlushInterval.
func (aw *asyncWriter) flushLoop(ctx context.Context) error {
	for {
		if err := scheduler.Delay(ctx, aw.config.FlushInterval); err != nil {
			return nil
		}
		if err := aw.actor.Send(ctx, request{flush: true}); err != nil {
			return nil
		}
	}
}

// flushBuffer writes the buffer to the underlying writer. Data that cannot be
// written after the retries is dropped.
func (aw *asyncWriter) flushBuffer(ctx context.Context) error {
	if len(aw.buffer) == 0 {
		return nil
	}

	start := time.Now()
	written, err := aw.writeWithRetries(ctx, aw.buffer)
	duration := time.Since(start)

	aw.buffer = aw.buffer[:0]
	aw.buffered.Store(0)

	aw.updateStats(func(s *Stats) {
		s.FlushCount++
		if err != nil {
			s.ErrorCount++
		}
	})
	if written > 0 && aw.config.Metrics != nil {
		aw.config.Metrics.WriterBytesWritten.WithLabelValues(aw.config.Name).Add(float64(written))
	}

	if aw.config.OnFlush != nil {
		aw.config.OnFlush(written, duration)
	}
	if err != nil {
		aw.logger.WithError(err).WithField("bytes", written).Warn("flush failed")
		if aw.config.OnError != nil {
			aw.config.OnError(err)
		}
	}
	return err
}

func (aw *asyncWriter) writeWithRetries(ctx context.Context, data []byte) (int, error) {
	var totalWritten int
	var lastErr error

	for attempt := 0; attempt <= aw.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := scheduler.Delay(ctx, aw.config.RetryDelay); err != nil {
				return totalWritten, err
			}
		}

		written, err := aw.underlying.Write(data[totalWritten:])
		totalWritten += written

		if err != nil {
			lastErr = err
			continue
		}

		if totalWritten >= len(data) {
			return totalWritten, nil
		}
	}

	if lastErr == nil {
		return totalWritten, nil
	}
	return totalWritten, gferrors.NewOperationError("writer", "flush", lastErr).
		WithContext(fmt.Sprintf("%d of %d bytes after %d attempts", totalWritten, len(data), aw.config.MaxRetries+1))
}

func (aw *asyncWriter) updateStats(updater func(*Stats)) {
	aw.statsMu.Lock()
	defer aw.statsMu.Unlock()
	updater(&aw.stats)
}
