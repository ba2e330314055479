package uring

import (
	"fmt"
	"syscall"

	"github.com/pawelgaczynski/giouring"
)

// FakeRing is a deterministic in-memory Ring for tests. Pushed entries are
// staged until SubmitAndWait moves them in flight; tests script completions
// with Complete/CompleteMore, either directly or from an OnSubmit hook.
//
// Async-cancel entries are emulated: a staged cancel removes its target from
// the in-flight set, posts the target's terminal -ECANCELED completion, and
// posts the cancel's own result (0, or -ENOENT when the target is unknown).
type FakeRing struct {
	entries   int
	staged    []*giouring.SubmissionQueueEntry
	inflight  map[uint64]*giouring.SubmissionQueueEntry
	completed []Completion

	// OnSubmit, if set, runs on every SubmitAndWait after staged entries
	// have moved in flight.
	OnSubmit func(*FakeRing)
}

// NewFakeRing creates a fake ring with the given SQ capacity.
func NewFakeRing(entries int) *FakeRing {
	return &FakeRing{
		entries:  entries,
		inflight: make(map[uint64]*giouring.SubmissionQueueEntry),
	}
}

func (f *FakeRing) Push(prep PrepFunc, userData uint64) error {
	if len(f.staged) >= f.entries {
		return ErrRingFull
	}
	sqe := &giouring.SubmissionQueueEntry{}
	prep(sqe)
	sqe.UserData = userData
	f.staged = append(f.staged, sqe)
	return nil
}

func (f *FakeRing) SubmitAndWait(waitNr uint32) error {
	staged := f.staged
	f.staged = nil
	for _, sqe := range staged {
		if sqe.OpCode == uint8(giouring.OpAsyncCancel) {
			f.cancel(sqe)
			continue
		}
		f.inflight[sqe.UserData] = sqe
	}
	if f.OnSubmit != nil {
		f.OnSubmit(f)
	}
	if waitNr > 0 && uint32(len(f.completed)) < waitNr {
		panic(fmt.Sprintf("fake ring: waiting for %d completions but only %d scripted", waitNr, len(f.completed)))
	}
	return nil
}

// cancel emulates IORING_OP_ASYNC_CANCEL keyed by user_data (the target tag
// is carried in the SQE addr field, as prepared by PrepareCancel64).
func (f *FakeRing) cancel(sqe *giouring.SubmissionQueueEntry) {
	target := sqe.Addr
	if _, ok := f.inflight[target]; ok {
		delete(f.inflight, target)
		f.completed = append(f.completed, Completion{
			UserData: target,
			Value:    -int32(syscall.ECANCELED),
		})
		f.completed = append(f.completed, Completion{UserData: sqe.UserData})
		return
	}
	f.completed = append(f.completed, Completion{
		UserData: sqe.UserData,
		Value:    -int32(syscall.ENOENT),
	})
}

func (f *FakeRing) Drain(fn func(Completion)) uint32 {
	completed := f.completed
	f.completed = nil
	for _, c := range completed {
		fn(c)
	}
	return uint32(len(completed))
}

func (f *FakeRing) Close() error {
	return nil
}

// Complete posts a final completion for userData and retires the
// submission.
func (f *FakeRing) Complete(userData uint64, res int32) {
	delete(f.inflight, userData)
	f.completed = append(f.completed, Completion{UserData: userData, Value: res})
}

// CompleteMore posts a completion carrying the more flag; the submission
// stays in flight.
func (f *FakeRing) CompleteMore(userData uint64, res int32) {
	f.completed = append(f.completed, Completion{
		UserData: userData,
		Value:    res,
		Flags:    giouring.CQEFMore,
	})
}

// InFlight reports whether a submission with userData has been submitted
// and not yet retired.
func (f *FakeRing) InFlight(userData uint64) bool {
	_, ok := f.inflight[userData]
	return ok
}

// InFlightCount returns the number of live submissions.
func (f *FakeRing) InFlightCount() int {
	return len(f.inflight)
}
