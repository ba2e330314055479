package uring

import (
	"os"
	"syscall"

	"github.com/pawelgaczynski/giouring"

	"github.com/ehrlich-b/go-reactor/internal/logging"
)

// cqBatchSize bounds how many CQEs are peeked per pass when draining.
const cqBatchSize = 128

// kernelRing implements Ring on a real io_uring instance.
type kernelRing struct {
	ring   *giouring.Ring
	logger *logging.Logger
}

// NewKernelRing creates an io_uring instance with the given SQ depth.
func NewKernelRing(entries uint32) (Ring, error) {
	logger := logging.Default()
	logger.Debug("creating io_uring", "entries", entries)

	ring, err := giouring.CreateRing(entries)
	if err != nil {
		logger.Error("failed to create io_uring", "error", err)
		return nil, err
	}

	return &kernelRing{ring: ring, logger: logger}, nil
}

func (r *kernelRing) Push(prep PrepFunc, userData uint64) error {
	sqe := r.ring.GetSQE()
	if sqe == nil {
		return ErrRingFull
	}
	prep(sqe)
	sqe.UserData = userData
	return nil
}

func (r *kernelRing) SubmitAndWait(waitNr uint32) error {
	for {
		_, err := r.ring.SubmitAndWait(waitNr)
		if err != nil && temporaryError(err) {
			continue
		}
		return err
	}
}

func (r *kernelRing) Drain(fn func(Completion)) uint32 {
	var cqes [cqBatchSize]*giouring.CompletionQueueEvent
	var drained uint32
	for {
		peeked := r.ring.PeekBatchCQE(cqes[:])
		for _, cqe := range cqes[:peeked] {
			fn(Completion{
				UserData: cqe.UserData,
				Value:    cqe.Res,
				Flags:    cqe.Flags,
			})
		}
		r.ring.CQAdvance(peeked)
		drained += peeked
		if peeked < uint32(len(cqes)) {
			return drained
		}
	}
}

func (r *kernelRing) Close() error {
	r.ring.QueueExit()
	return nil
}

// temporaryError reports whether an io_uring_enter error should be retried.
// Errors that can be returned by [io_uring_enter].
//
// [io_uring_enter]: https://manpages.debian.org/unstable/liburing-dev/io_uring_enter.2.en.html#ERRORS
func temporaryError(err error) bool {
	if errno, ok := err.(syscall.Errno); ok {
		return errno == syscall.EINTR || errno == syscall.EAGAIN || errno == syscall.EBUSY
	}
	return os.IsTimeout(err)
}
