// Package uring provides the ring driver for the reactor: ownership of the
// kernel SQ/CQ pair, submission with user_data tagging, and completion
// draining.
package uring

import (
	"errors"

	"github.com/pawelgaczynski/giouring"
)

// ErrRingFull is returned by Push when the submission queue has no free
// entry. The reactor treats this as over-subscription beyond ring capacity,
// which is a programmer error at the collaborator.
var ErrRingFull = errors.New("submission queue full")

// PrepFunc fills in a submission queue entry. The user_data field is
// overwritten by the driver after the callback returns; everything else is
// up to the caller.
type PrepFunc func(*giouring.SubmissionQueueEntry)

// Completion is one harvested CQE.
type Completion struct {
	UserData uint64
	Value    int32
	Flags    uint32
}

// More reports whether the kernel will post further completions for this
// submission. A multishot completion without this flag is the end-of-stream
// mark.
func (c Completion) More() bool {
	return c.Flags&giouring.CQEFMore != 0
}

// Ring is the driver interface for one kernel SQ/CQ pair.
//
// Implementations are single-threaded: the reactor confines each ring to
// the goroutine that created it.
type Ring interface {
	// Push places an entry on the submission queue with its user_data set
	// to userData. The entry is not visible to the kernel until the next
	// SubmitAndWait. Returns ErrRingFull when the queue has no room.
	Push(prep PrepFunc, userData uint64) error

	// SubmitAndWait flushes all pushed entries to the kernel and, when
	// waitNr > 0, blocks until at least that many completions are
	// available. This is the only blocking operation in the system.
	SubmitAndWait(waitNr uint32) error

	// Drain invokes fn for each available completion exactly once and
	// advances the CQ consumer cursor. Returns the number drained.
	Drain(fn func(Completion)) uint32

	// Close releases the ring.
	Close() error
}
