/*
Package channel provides typed channels whose blocking operations cooperate
with the coflow scheduler.

A Channel carries values of one type between tasks in FIFO order. Three
buffering modes are available:

	ch := channel.New[int](channel.Rendezvous)  // every Send waits for a Receive
	ch := channel.New[int](channel.Bounded(10)) // Send parks while 10 values are buffered
	ch := channel.New[int](channel.Unbounded)   // Send never parks

Blocking operations take a context.Context. When the context belongs to a
scheduler task the task releases its worker while parked, so thousands of
tasks can wait on channels while only a handful of workers exist. From a plain
goroutine the same calls simply block.

Receiving:

Three receive flavours differ only in how they report a closed channel:

	v, err := ch.Receive(ctx)           // ErrChannelClosed once closed and drained
	p, err := ch.ReceiveOrNil(ctx)      // nil pointer once closed and drained
	r, err := ch.ReceiveOrClosed(ctx)   // r.Closed once closed and drained

TrySend and TryReceive never park. Iteration runs until the channel closes:

	for v := range ch.All(ctx) {
		fmt.Println(v)
	}

Closing:

Close is idempotent. After Close every Send fails with ErrChannelClosed, but
values already buffered and sends already parked are still delivered before
receivers observe closure. Cancel closes the channel and discards everything
not yet received, passing discarded values to Config.OnUndelivered.

Cancellation:

When ctx is cancelled while an operation is parked the operation is withdrawn
and the cancellation cause is returned. If a counterpart completed the
operation first, the completed result wins: no value is lost or duplicated.

Select:

Select waits on several operations at once and runs the continuation of
exactly one:

	msg, err := channel.Select(ctx,
		channel.OnReceive(fizz, func(s string) (string, error) { return "fizz: " + s, nil }),
		channel.OnReceive(buzz, func(s string) (string, error) { return "buzz: " + s, nil }),
	)

Registration on all channels is atomic. When several cases are ready the first
in argument order wins; SelectUnbiased polls in random order instead.

Metrics:

Set Config.Metrics to record sends, receives, parked operations and buffered
values per channel name.
*/
package channel
