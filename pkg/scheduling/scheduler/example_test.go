package scheduler_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/coflow/pkg/scheduling/scheduler"
	"github.com/vnykmshr/coflow/pkg/streaming/channel"
)

func Example() {
	ctx := context.Background()
	s := scheduler.New(1)
	defer func() { <-s.Shutdown() }()

	ch := channel.New[string](channel.Rendezvous)

	// With one worker the receiver must release it while parked, or the
	// sender could never run.
	receiver, _ := scheduler.SubmitWithResult(ctx, s, func(ctx context.Context) (string, error) {
		return ch.Receive(ctx)
	})
	_, _ = s.Submit(ctx, func(ctx context.Context) error {
		return ch.Send(ctx, "hello")
	})

	msg, err := receiver.Await(ctx)
	fmt.Println(msg, err)

	// Output:
	// hello <nil>
}

func ExampleYield() {
	ctx := context.Background()
	s := scheduler.New(1)
	defer func() { <-s.Shutdown() }()

	out := channel.New[string](channel.Unbounded)
	worker := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			for i := 0; i < 2; i++ {
				_ = out.Send(ctx, name)
				if err := scheduler.Yield(ctx); err != nil {
					return err
				}
			}
			return nil
		}
	}

	parent, _ := s.Submit(ctx, func(ctx context.Context) error {
		_, _ = s.Submit(ctx, worker("ping"))
		_, _ = s.Submit(ctx, worker("pong"))
		return nil
	})
	_ = parent.Join(ctx)
	_ = out.Close()

	for v := range out.All(ctx) {
		fmt.Println(v)
	}

	// Output:
	// ping
	// pong
	// ping
	// pong
}
