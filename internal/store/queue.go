package store

import (
	cring "github.com/cloudwego/gopkg/container/ring"
)

// resultQueue is a fixed-capacity FIFO of kernel result values, built on the
// preallocated ring container so a full multishot stream costs a single
// allocation up front and no per-push allocations after that.
type resultQueue struct {
	ring *cring.Ring[int32]
	head int
	size int
}

func newResultQueue(capacity int) *resultQueue {
	return &resultQueue{
		ring: cring.NewFromSlice(make([]int32, capacity)),
	}
}

// push appends v and reports whether there was room.
func (q *resultQueue) push(v int32) bool {
	if q.size == q.ring.Len() {
		return false
	}
	it, _ := q.ring.Move(q.head, q.size)
	*it.Pointer() = v
	q.size++
	return true
}

// pop removes and returns the oldest value.
func (q *resultQueue) pop() (int32, bool) {
	if q.size == 0 {
		return 0, false
	}
	it, _ := q.ring.Get(q.head)
	v := it.Value()
	q.head = (q.head + 1) % q.ring.Len()
	q.size--
	return v, true
}

func (q *resultQueue) len() int {
	return q.size
}
