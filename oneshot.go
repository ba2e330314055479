package reactor

// Oneshot wraps one logical submission that produces exactly one
// completion.
//
// The zero value is not usable; obtain handles from Reactor.NewOneshot.
// Handles are confined to the reactor's goroutine.
type Oneshot[T any] struct {
	r     *Reactor[T]
	state oneshotHandleState
	slot  int
	value int32
}

type oneshotHandleState uint8

const (
	oneshotNew oneshotHandleState = iota
	oneshotSubmitted
	oneshotFinished
	oneshotClosed
)

// Poll drives the submission forward.
//
// On the first call the two callbacks produce the submission descriptor and
// the wake token, the entry is staged on the SQ, and StatusPending is
// returned; the descriptor reaches the kernel on the next React. Later
// calls return StatusPending until the completion has been dispatched, then
// StatusReady with the decoded result. Once ready, Poll is idempotent and
// the callbacks are not invoked again.
func (o *Oneshot[T]) Poll(prep PrepareFunc, token TokenFunc[T]) (Result, Status) {
	switch o.state {
	case oneshotNew:
		slot, _ := o.r.submitIO(prep, token(), kindOneshot)
		o.slot = slot
		o.state = oneshotSubmitted
		return Result{}, StatusPending

	case oneshotSubmitted:
		v, ok := o.r.oneshot.GetResult(o.slot)
		if !ok {
			return Result{}, StatusPending
		}
		o.value = v
		o.state = oneshotFinished
		return makeResult("io", o.value), StatusReady

	case oneshotFinished:
		return makeResult("io", o.value), StatusReady

	default:
		panic("reactor: poll of closed oneshot handle")
	}
}

// Close releases the handle. A submission still in flight is not
// cancelled: the slot is marked so the eventual completion tears it down,
// and the wake token is still delivered to the executor, which discards
// it. Closing before the first Poll or after collecting the result is a
// no-op.
func (o *Oneshot[T]) Close() error {
	if o.state == oneshotSubmitted {
		o.r.oneshot.DropResult(o.slot)
		o.r.metrics.Drops.Add(1)
	}
	o.state = oneshotClosed
	return nil
}
