/*
Package stream provides lazy, single-use sequences with a fluent API.

A Stream is built from a Source (a slice, a generator, an iter.Seq or a
channel.Channel) and a chain of intermediate operations. Nothing is pulled
from the source until a terminal operation such as ToSlice, Count or Collect
runs; a terminal operation consumes the stream and closes its source.

	evens, err := stream.FromSlice([]int{1, 2, 3, 4}).
		Filter(func(x int) bool { return x%2 == 0 }).
		ToSlice(ctx)

FromChannel consumes a channel: when the stream finishes or is closed early,
the channel is cancelled and producers still sending to it fail with
channel.ErrChannelClosed. Inside a scheduler job every receive parks the job
without holding a worker.

Launch runs the opposite direction, collecting a stream inside a job that
sends into a new channel.
*/
package stream
