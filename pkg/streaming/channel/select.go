package channel

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"

	gfcontext "github.com/vnykmshr/coflow/pkg/common/context"
	gferrors "github.com/vnykmshr/coflow/pkg/common/errors"
	"github.com/vnykmshr/coflow/pkg/metrics"
)

// ErrNoCases is returned by Select when called without cases.
var ErrNoCases = errors.New("select: no cases")

// Case is one pending channel operation of a Select. Build cases with
// OnReceive, OnReceiveOrClosed and OnSend.
type Case[R any] struct {
	op selectOp[R]
}

// selectOp is implemented per channel element type so a single Select can mix
// channels of different types.
type selectOp[R any] interface {
	id() uint64
	lock()
	unlock()
	registry() *metrics.Registry

	// fresh returns a copy without registration state, so a Case can be
	// passed to several Select calls.
	fresh() selectOp[R]

	// poll runs with the channel locked. It returns the continuation to run
	// once every lock is released, or false if the case would have to park.
	poll() (func() (R, error), bool)

	// register parks the case on its channel under sel.
	register(sel *selState, index int)

	// withdraw removes the registered waiter. It locks the channel itself.
	withdraw()

	// complete runs the continuation of the winning case.
	complete() (R, error)
}

// OnReceive selects the next value of ch. If ch is closed and drained the
// case resolves with ErrChannelClosed.
func OnReceive[T, R any](ch *Channel[T], fn func(T) (R, error)) Case[R] {
	return Case[R]{op: &recvOp[T, R]{ch: ch, onValue: fn}}
}

// OnReceiveOrClosed selects the next value of ch or its closure.
func OnReceiveOrClosed[T, R any](ch *Channel[T], fn func(Result[T]) (R, error)) Case[R] {
	return Case[R]{op: &recvOp[T, R]{ch: ch, onResult: fn}}
}

// OnSend selects delivering v to ch. If ch is closed the case resolves with
// ErrChannelClosed.
func OnSend[T, R any](ch *Channel[T], v T, fn func() (R, error)) Case[R] {
	return Case[R]{op: &sendOp[T, R]{ch: ch, value: v, fn: fn}}
}

// Select waits until exactly one of cases can proceed, runs its continuation
// and returns the result. All other cases are withdrawn. When several cases
// are ready at once the first in argument order wins.
func Select[R any](ctx context.Context, cases ...Case[R]) (R, error) {
	return doSelect(ctx, cases)
}

// SelectUnbiased is Select with the cases polled in random order.
func SelectUnbiased[R any](ctx context.Context, cases ...Case[R]) (R, error) {
	shuffled := slices.Clone(cases)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return doSelect(ctx, shuffled)
}

func doSelect[R any](ctx context.Context, cases []Case[R]) (R, error) {
	var zero R
	if len(cases) == 0 {
		return zero, ErrNoCases
	}
	if ctx.Err() != nil {
		return zero, gfcontext.Cause(ctx)
	}

	ops := make([]selectOp[R], len(cases))
	for i, c := range cases {
		if c.op == nil {
			return zero, gferrors.NewValidationError("channel", "case", i, "zero Case")
		}
		ops[i] = c.op.fresh()
	}
	reg := registryOf(ops)

	locks := lockOrder(ops)
	for _, op := range locks {
		op.lock()
	}
	unlockAll := func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].unlock()
		}
	}

	for _, op := range ops {
		if cont, ok := op.poll(); ok {
			unlockAll()
			resolved(reg, "immediate")
			return cont()
		}
	}

	sel := newSelState()
	for i, op := range ops {
		op.register(sel, i)
	}
	unlockAll()

	err := gfcontext.Await(ctx, sel.ready, gfcontext.ReasonSelect)
	if err != nil && sel.cancel() {
		for _, op := range ops {
			op.withdraw()
		}
		resolved(reg, "cancelled")
		return zero, err
	}

	<-sel.ready
	for i, op := range ops {
		if i != sel.winner {
			op.withdraw()
		}
	}
	resolved(reg, "parked")
	return ops[sel.winner].complete()
}

// lockOrder returns one op per distinct channel, sorted by channel id.
func lockOrder[R any](ops []selectOp[R]) []selectOp[R] {
	out := make([]selectOp[R], 0, len(ops))
	seen := make(map[uint64]bool, len(ops))
	for _, op := range ops {
		if !seen[op.id()] {
			seen[op.id()] = true
			out = append(out, op)
		}
	}
	slices.SortFunc(out, func(a, b selectOp[R]) int {
		switch {
		case a.id() < b.id():
			return -1
		case a.id() > b.id():
			return 1
		}
		return 0
	})
	return out
}

func registryOf[R any](ops []selectOp[R]) *metrics.Registry {
	for _, op := range ops {
		if r := op.registry(); r != nil {
			return r
		}
	}
	return nil
}

func resolved(reg *metrics.Registry, outcome string) {
	if reg != nil {
		reg.SelectResolved.WithLabelValues(outcome).Inc()
	}
}

type recvOp[T, R any] struct {
	ch       *Channel[T]
	onValue  func(T) (R, error)
	onResult func(Result[T]) (R, error)
	w        *waiter[T]
}

func (o *recvOp[T, R]) fresh() selectOp[R] {
	return &recvOp[T, R]{ch: o.ch, onValue: o.onValue, onResult: o.onResult}
}

func (o *recvOp[T, R]) id() uint64                  { return o.ch.id }
func (o *recvOp[T, R]) lock()                       { o.ch.mu.Lock() }
func (o *recvOp[T, R]) unlock()                     { o.ch.mu.Unlock() }
func (o *recvOp[T, R]) registry() *metrics.Registry { return o.ch.metrics }

func (o *recvOp[T, R]) poll() (func() (R, error), bool) {
	v, ok, handled := o.ch.tryReceiveLocked()
	if !handled {
		return nil, false
	}
	return func() (R, error) { return o.deliver(v, !ok) }, true
}

func (o *recvOp[T, R]) register(sel *selState, index int) {
	o.w = &waiter[T]{sel: sel, index: index}
	o.ch.recvq.push(o.w)
	o.ch.stats.ParkedReceives++
	o.ch.observeLocked()
}

func (o *recvOp[T, R]) withdraw() {
	o.ch.withdraw(&o.ch.recvq, o.w)
}

func (o *recvOp[T, R]) complete() (R, error) {
	return o.deliver(o.w.value, o.w.closed)
}

func (o *recvOp[T, R]) deliver(v T, closed bool) (R, error) {
	if o.onResult != nil {
		return o.onResult(Result[T]{Value: v, Closed: closed})
	}
	if closed {
		var zero R
		return zero, ErrChannelClosed
	}
	return o.onValue(v)
}

type sendOp[T, R any] struct {
	ch    *Channel[T]
	value T
	fn    func() (R, error)
	w     *waiter[T]
}

func (o *sendOp[T, R]) fresh() selectOp[R] {
	return &sendOp[T, R]{ch: o.ch, value: o.value, fn: o.fn}
}

func (o *sendOp[T, R]) id() uint64                  { return o.ch.id }
func (o *sendOp[T, R]) lock()                       { o.ch.mu.Lock() }
func (o *sendOp[T, R]) unlock()                     { o.ch.mu.Unlock() }
func (o *sendOp[T, R]) registry() *metrics.Registry { return o.ch.metrics }

func (o *sendOp[T, R]) poll() (func() (R, error), bool) {
	if o.ch.closed {
		return func() (R, error) {
			var zero R
			return zero, ErrChannelClosed
		}, true
	}
	if !o.ch.trySendLocked(o.value) {
		return nil, false
	}
	return o.fn, true
}

func (o *sendOp[T, R]) register(sel *selState, index int) {
	o.w = &waiter[T]{sel: sel, index: index, value: o.value}
	o.ch.sendq.push(o.w)
	o.ch.stats.ParkedSends++
	o.ch.observeLocked()
}

func (o *sendOp[T, R]) withdraw() {
	o.ch.withdraw(&o.ch.sendq, o.w)
}

func (o *sendOp[T, R]) complete() (R, error) {
	if o.w.closed {
		var zero R
		return zero, ErrChannelClosed
	}
	return o.fn()
}
