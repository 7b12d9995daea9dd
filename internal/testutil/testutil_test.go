package testutil

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestEventually(t *testing.T) {
	var counter int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		atomic.StoreInt32(&counter, 1)
	}()

	Eventually(t, func() bool {
		return atomic.LoadInt32(&counter) == 1
	}, 500*time.Millisecond, 5*time.Millisecond)
}

func TestWaitForInt64(t *testing.T) {
	var value int64
	go func() {
		time.Sleep(10 * time.Millisecond)
		atomic.StoreInt64(&value, 100)
	}()

	WaitForInt64(t, &value, 100, 500*time.Millisecond)
}

func TestWaitClosed(t *testing.T) {
	ch := make(chan struct{})
	AssertNotClosed(t, ch, 10*time.Millisecond)
	close(ch)
	WaitClosed(t, ch, 10*time.Millisecond)
}

func TestCallbackTracker(t *testing.T) {
	tracker := NewCallbackTracker()
	if tracker.Called() {
		t.Error("tracker should not be called initially")
	}

	tracker.Mark("first")
	tracker.Mark("second")

	tracker.AssertCallCount(t, 2)
	if tracker.Value() != "second" {
		t.Errorf("value = %v, want second", tracker.Value())
	}
}

func TestMockClock(t *testing.T) {
	start := time.Unix(1000, 0)
	clock := NewMockClock(start)
	clock.Advance(time.Second)
	AssertEqual(t, clock.Now(), start.Add(time.Second))
}

func TestMockWriter(t *testing.T) {
	w := NewMockWriter()
	w.SetErrorOnNth(2)

	_, err := w.Write([]byte("a"))
	AssertNoError(t, err)
	_, err = w.Write([]byte("b"))
	AssertError(t, err)

	AssertEqual(t, w.String(), "a")
	AssertEqual(t, w.WriteCount(), 2)
}
