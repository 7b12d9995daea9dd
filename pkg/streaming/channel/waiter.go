package channel

import "sync/atomic"

const (
	stateWaiting int32 = iota
	stateDone
	stateCancelled
)

// selState is the completion latch shared by every waiter that one parked
// operation registered. A single operation owns one; a select shares one
// across all of its cases, so whichever counterpart claims it first wins.
type selState struct {
	state  atomic.Int32
	winner int
	ready  chan struct{}
}

func newSelState() *selState {
	return &selState{ready: make(chan struct{})}
}

// claim moves the state from waiting to done. Only the caller that wins the
// claim may fill in the waiter and fire it.
func (s *selState) claim() bool {
	return s.state.CompareAndSwap(stateWaiting, stateDone)
}

// fire publishes the result of a successful claim to the parked side.
func (s *selState) fire(index int) {
	s.winner = index
	close(s.ready)
}

// cancel withdraws the parked side. It fails if a counterpart already claimed.
func (s *selState) cancel() bool {
	return s.state.CompareAndSwap(stateWaiting, stateCancelled)
}

func (s *selState) live() bool {
	return s.state.Load() == stateWaiting
}

// waiter is one parked send or receive on one channel.
type waiter[T any] struct {
	sel   *selState
	index int

	// value carries the item to send, or the item received once fired.
	value T

	// closed reports that the waiter was woken by close instead of a handoff.
	closed bool
}
