package bucket_test

import (
	"fmt"

	"github.com/vnykmshr/coflow/pkg/ratelimit/bucket"
)

func Example() {
	limiter := bucket.New(1, 3)

	for i := 0; i < 4; i++ {
		fmt.Println(limiter.Allow())
	}

	// Output:
	// true
	// true
	// true
	// false
}
