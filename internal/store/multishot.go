package store

import (
	"fmt"

	"github.com/ehrlich-b/go-reactor/internal/slotmap"
)

// QueueCapacity bounds the number of undelivered results a single multishot
// stream may accumulate. Overflow means the collaborator broke the
// outstanding-depth contract, and the store aborts rather than silently
// dropping kernel results.
const QueueCapacity = 1024

// PopStatus describes the outcome of MultishotStore.PopResult.
type PopStatus uint8

const (
	// PopValue means a result value was returned.
	PopValue PopStatus = iota
	// PopPending means the queue is empty but the stream is still live.
	PopPending
	// PopFinished means the queue is empty and the kernel has ended the
	// stream; no further values will ever arrive.
	PopFinished
)

type multishotSlot struct {
	queue    *resultQueue
	dropped  bool
	finished bool
}

// MultishotStore keeps a bounded result queue plus drop/finished markers per
// in-flight multishot submission. It is not safe for concurrent use.
type MultishotStore struct {
	slots *slotmap.Slab[multishotSlot]
}

// NewMultishotStore creates an empty store.
func NewMultishotStore() *MultishotStore {
	return &MultishotStore{slots: slotmap.New[multishotSlot]()}
}

// CreateSlot allocates a fresh slot with an empty queue and returns its id.
func (s *MultishotStore) CreateSlot() int {
	return s.slots.Insert(multishotSlot{queue: newResultQueue(QueueCapacity)})
}

// PushResult appends a stream value. Values arriving after the handle was
// dropped are discarded: cancellation is synchronous, but completions
// already posted to the CQ at cancel time must still be tolerated.
func (s *MultishotStore) PushResult(id int, v int32) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: push result on missing multishot slot %d", id))
	}
	if slot.dropped {
		return
	}
	if !slot.queue.push(v) {
		panic(fmt.Sprintf("store: multishot slot %d overflowed %d results", id, QueueCapacity))
	}
}

// PopResult returns the oldest undelivered value, or reports why there is
// none: the stream is either still producing or permanently finished.
func (s *MultishotStore) PopResult(id int) (int32, PopStatus) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: pop result on missing multishot slot %d", id))
	}
	if slot.dropped {
		panic(fmt.Sprintf("store: pop result on dropped multishot slot %d", id))
	}
	if v, ok := slot.queue.pop(); ok {
		return v, PopValue
	}
	if slot.finished {
		return 0, PopFinished
	}
	return 0, PopPending
}

// SetFinished records the kernel's end-of-stream mark. If the handle was
// already dropped the slot is torn down here; the mark was the last event
// the stream will ever produce.
func (s *MultishotStore) SetFinished(id int) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: set finished on missing multishot slot %d", id))
	}
	if slot.dropped {
		s.slots.Remove(id)
		return
	}
	slot.finished = true
}

// RemoveSlot releases a slot whose stream the reader has fully consumed.
func (s *MultishotStore) RemoveSlot(id int) {
	if _, ok := s.slots.Remove(id); !ok {
		panic(fmt.Sprintf("store: remove of missing multishot slot %d", id))
	}
}

// DropResult is called when the owning handle is discarded. A finished slot
// is removed outright; a live one is marked dropped and survives until the
// end-of-stream mark arrives. The caller must have cancelled the in-kernel
// submission before calling this.
func (s *MultishotStore) DropResult(id int) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: drop result on missing multishot slot %d", id))
	}
	if slot.finished {
		s.slots.Remove(id)
		return
	}
	slot.dropped = true
}

// Len returns the number of live slots.
func (s *MultishotStore) Len() int {
	return s.slots.Len()
}
