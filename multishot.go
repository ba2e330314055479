package reactor

import "github.com/ehrlich-b/go-reactor/internal/store"

// Multishot wraps one logical submission that produces a stream of
// completions, ended either by the kernel's end-of-stream mark or by
// cancellation at Close.
//
// The zero value is not usable; obtain handles from Reactor.NewMultishot.
// Handles are confined to the reactor's goroutine.
type Multishot[T any] struct {
	r     *Reactor[T]
	state multishotHandleState
	slot  int
	tag   uint64
}

type multishotHandleState uint8

const (
	multishotNew multishotHandleState = iota
	multishotSubmitted
	multishotFinished
	multishotClosed
)

// Poll drives the stream forward.
//
// The first call stages the submission (as for Oneshot.Poll) and returns
// StatusPending. Later calls return the stream values in arrival order,
// StatusPending while the queue is empty and the stream live, and
// StatusFinished forever once the kernel has ended the stream and every
// value has been consumed.
func (m *Multishot[T]) Poll(prep PrepareFunc, token TokenFunc[T]) (Result, Status) {
	switch m.state {
	case multishotNew:
		slot, tag := m.r.submitIO(prep, token(), kindMultishot)
		m.slot = slot
		m.tag = tag
		m.state = multishotSubmitted
		return Result{}, StatusPending

	case multishotSubmitted:
		v, status := m.r.multishot.PopResult(m.slot)
		switch status {
		case store.PopValue:
			return makeResult("io", v), StatusReady
		case store.PopFinished:
			m.r.multishot.RemoveSlot(m.slot)
			m.state = multishotFinished
			return Result{}, StatusFinished
		default:
			return Result{}, StatusPending
		}

	case multishotFinished:
		return Result{}, StatusFinished

	default:
		panic("reactor: poll of closed multishot handle")
	}
}

// Close releases the handle. If the stream is still live the in-kernel
// submission is cancelled synchronously first: the kernel would otherwise
// keep posting completions against a tag about to be recycled. Close does
// not return until the cancel is confirmed and the tag retired.
func (m *Multishot[T]) Close() error {
	if m.state == multishotSubmitted {
		m.r.syncCancel(m.tag)
		m.r.multishot.DropResult(m.slot)
		m.r.metrics.Drops.Add(1)
	}
	m.state = multishotClosed
	return nil
}
