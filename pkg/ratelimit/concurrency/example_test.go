package concurrency_test

import (
	"context"
	"fmt"

	"github.com/vnykmshr/coflow/pkg/ratelimit/concurrency"
)

func Example() {
	limiter := concurrency.New(3)

	if limiter.Acquire() {
		fmt.Println("Operation permitted")
		limiter.Release()
	}

	// Output: Operation permitted
}

func ExampleWithPermit() {
	limiter := concurrency.New(1)

	_ = concurrency.WithPermit(context.Background(), limiter, func(context.Context) error {
		fmt.Println("in use:", limiter.InUse())
		return nil
	})
	fmt.Println("in use:", limiter.InUse())

	// Output:
	// in use: 1
	// in use: 0
}
