// Package actor provides mailbox-driven sequential processors on top of the
// coflow scheduler and channels.
//
// An Actor owns one mailbox channel and one job that drains it. Because a
// single job handles messages strictly one after another, state captured by
// the handler needs no locking:
//
//	var total int
//	counter, err := actor.Spawn(ctx, s, actor.Config{Capacity: channel.Bounded(16)},
//		func(ctx context.Context, n int) error {
//			total += n
//			return nil
//		})
//
//	_ = counter.Send(ctx, 5)
//	_ = counter.Close()
//	_ = counter.Job().Join(ctx)
//
// The three Discipline values differ only in how the loop notices that the
// mailbox is closed; they process identical message sequences identically.
package actor
