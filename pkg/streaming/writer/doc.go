/*
Package writer provides a buffered writer driven by an actor.

Every write becomes a message in the actor's mailbox, and only the actor
touches the buffer and the underlying io.Writer, so writes from many jobs or
goroutines never interleave. The buffer is flushed when it would overflow, on
Flush, every FlushInterval, and on Close.

	w, _ := writer.New(ctx, sched, file)
	defer w.Close()

	w.WriteString("Hello, async world!")
	w.Flush(ctx)

Retries of a failed flush wait with scheduler.Delay, so the actor parks
without holding a worker.

With BlockOnFull (the default) a write returns once the actor has buffered it.
Without it a write returns ErrBufferFull when the mailbox is full.
*/
package writer
