// Package store holds per-submission result slots for in-flight io_uring
// operations. Two stores exist: one for oneshot submissions (exactly one
// completion) and one for multishot submissions (a stream of completions
// ended by an end-of-stream mark).
//
// Both stores exist to resolve the race between the kernel delivering a
// completion and the owning handle being discarded. The state tables are
// strict: any access outside them indicates state-machine corruption and
// panics rather than limping on.
package store

import (
	"fmt"

	"github.com/ehrlich-b/go-reactor/internal/slotmap"
)

type oneshotState uint8

const (
	oneshotPending oneshotState = iota // no result yet
	oneshotSet                         // kernel delivered, reader hasn't collected
	oneshotDropped                     // handle discarded, kernel still owes a completion
)

type oneshotSlot struct {
	state oneshotState
	value int32
}

// OneshotStore keeps one three-state cell per in-flight oneshot submission.
// It is not safe for concurrent use.
type OneshotStore struct {
	slots *slotmap.Slab[oneshotSlot]
}

// NewOneshotStore creates an empty store.
func NewOneshotStore() *OneshotStore {
	return &OneshotStore{slots: slotmap.New[oneshotSlot]()}
}

// CreateSlot allocates a fresh pending cell and returns its id.
func (s *OneshotStore) CreateSlot() int {
	return s.slots.Insert(oneshotSlot{state: oneshotPending})
}

// SetResult records the kernel result for a slot. Called from the completion
// path. A pending slot transitions to set; a dropped slot is torn down here,
// since the completion was the last thing keeping it alive.
func (s *OneshotStore) SetResult(id int, v int32) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: set result on missing oneshot slot %d", id))
	}
	switch slot.state {
	case oneshotPending:
		slot.state = oneshotSet
		slot.value = v
	case oneshotDropped:
		s.slots.Remove(id)
	default:
		// Oneshot fires at most once, so a second set is impossible.
		panic(fmt.Sprintf("store: duplicate result for oneshot slot %d", id))
	}
}

// GetResult collects the result if the kernel has delivered it. Collecting
// removes the slot. Reading a dropped slot is forbidden: the owning handle
// no longer exists, so nothing legitimate can be asking.
func (s *OneshotStore) GetResult(id int) (int32, bool) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: get result on missing oneshot slot %d", id))
	}
	switch slot.state {
	case oneshotPending:
		return 0, false
	case oneshotSet:
		v := slot.value
		s.slots.Remove(id)
		return v, true
	default:
		panic(fmt.Sprintf("store: get result on dropped oneshot slot %d", id))
	}
}

// DropResult is called when the owning handle is discarded. A delivered-but-
// uncollected slot is simply removed; a pending slot is marked dropped so the
// eventual completion can dispose of it.
func (s *OneshotStore) DropResult(id int) {
	slot, ok := s.slots.Get(id)
	if !ok {
		panic(fmt.Sprintf("store: drop result on missing oneshot slot %d", id))
	}
	switch slot.state {
	case oneshotSet:
		s.slots.Remove(id)
	case oneshotPending:
		slot.state = oneshotDropped
	default:
		panic(fmt.Sprintf("store: double drop of oneshot slot %d", id))
	}
}

// Len returns the number of live slots.
func (s *OneshotStore) Len() int {
	return s.slots.Len()
}
