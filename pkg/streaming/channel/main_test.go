package channel

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// Parked senders and receivers must never outlive a test.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
