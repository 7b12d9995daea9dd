package channel

// queue is a FIFO backed by a slice that compacts once its consumed prefix
// dominates the backing array.
type queue[E any] struct {
	items []E
	head  int
}

func (q *queue[E]) len() int {
	return len(q.items) - q.head
}

func (q *queue[E]) push(e E) {
	q.items = append(q.items, e)
}

func (q *queue[E]) pop() (E, bool) {
	var zero E
	if q.len() == 0 {
		return zero, false
	}
	e := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.compact()
	return e, true
}

// removeFunc deletes the first element matching fn.
func (q *queue[E]) removeFunc(fn func(E) bool) bool {
	for i := q.head; i < len(q.items); i++ {
		if fn(q.items[i]) {
			var zero E
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = zero
			q.items = q.items[:len(q.items)-1]
			q.compact()
			return true
		}
	}
	return false
}

func (q *queue[E]) each(fn func(E)) {
	for i := q.head; i < len(q.items); i++ {
		fn(q.items[i])
	}
}

// drain empties the queue, returning its elements in order.
func (q *queue[E]) drain() []E {
	out := make([]E, q.len())
	copy(out, q.items[q.head:])
	q.items = nil
	q.head = 0
	return out
}

func (q *queue[E]) compact() {
	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head > 32 && q.head*2 > len(q.items):
		n := copy(q.items, q.items[q.head:])
		var zero E
		for i := n; i < len(q.items); i++ {
			q.items[i] = zero
		}
		q.items = q.items[:n]
		q.head = 0
	}
}
