// Package reactor multiplexes asynchronous I/O submissions from many
// suspended tasks over one io_uring instance on a single thread.
//
// Tasks obtain an I/O handle from the reactor, poll it with a submission
// descriptor and a wake token, and suspend. The executor calls React, which
// blocks for at least one kernel completion, routes every available
// completion to its handle's result slot, and hands back the wake tokens so
// the executor can reschedule the owning tasks.
//
// A reactor and every handle derived from it are confined to one goroutine;
// nothing here takes locks. The only blocking call is React.
package reactor

import (
	"fmt"
	"syscall"
	"time"

	"github.com/pawelgaczynski/giouring"

	"github.com/ehrlich-b/go-reactor/internal/logging"
	"github.com/ehrlich-b/go-reactor/internal/slotmap"
	"github.com/ehrlich-b/go-reactor/internal/store"
	"github.com/ehrlich-b/go-reactor/internal/uring"
)

// DefaultEntries is the default SQ/CQ depth.
const DefaultEntries = 1024

// cancelBit marks the user_data of internal async-cancel submissions so
// their completions are never confused with I/O tags.
const cancelBit = uint64(1) << 63

type ioKind uint8

const (
	kindOneshot ioKind = iota
	kindMultishot
)

// pendingIO ties a live submission tag to its wake token and result slot.
type pendingIO[T any] struct {
	token T
	slot  int
	kind  ioKind
}

// Options configures a reactor.
type Options struct {
	// Entries is the SQ depth; 0 means DefaultEntries.
	Entries uint32
	// Logger overrides the default logger.
	Logger *logging.Logger
}

// Reactor owns one kernel SQ/CQ pair plus the pending table and result
// stores for every submission in flight. Not safe for concurrent use: the
// reactor and its handles belong to a single goroutine.
type Reactor[T any] struct {
	ring      uring.Ring
	pending   *slotmap.Slab[pendingIO[T]]
	oneshot   *store.OneshotStore
	multishot *store.MultishotStore

	// ready buffers wake tokens harvested outside React, during a
	// drop-time cancellation drain. The next React delivers them first.
	ready []T

	reacting bool
	metrics  *Metrics
	logger   *logging.Logger
}

// New creates a reactor backed by a real io_uring instance.
func New[T any](opts Options) (*Reactor[T], error) {
	entries := opts.Entries
	if entries == 0 {
		entries = DefaultEntries
	}
	ring, err := uring.NewKernelRing(entries)
	if err != nil {
		return nil, WrapError("setup", ErrCodeRingSetup, err)
	}
	return newReactor[T](ring, opts.Logger), nil
}

// newReactor wires a reactor over any ring driver; tests inject a fake.
func newReactor[T any](ring uring.Ring, logger *logging.Logger) *Reactor[T] {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reactor[T]{
		ring:      ring,
		pending:   slotmap.New[pendingIO[T]](),
		oneshot:   store.NewOneshotStore(),
		multishot: store.NewMultishotStore(),
		metrics:   NewMetrics(),
		logger:    logger,
	}
}

// NewOneshot returns a handle for a submission producing exactly one
// completion.
func (r *Reactor[T]) NewOneshot() *Oneshot[T] {
	return &Oneshot[T]{r: r}
}

// NewMultishot returns a handle for a submission producing a stream of
// completions ended by an end-of-stream mark.
func (r *Reactor[T]) NewMultishot() *Multishot[T] {
	return &Multishot[T]{r: r}
}

// Metrics returns the reactor's counters.
func (r *Reactor[T]) Metrics() *Metrics {
	return r.metrics
}

// Close releases the ring. Submissions still in flight are abandoned; the
// caller is expected to have quiesced first.
func (r *Reactor[T]) Close() error {
	if n := r.pending.Len(); n > 0 {
		r.logger.Warn("closing reactor with submissions in flight", "pending", n)
	}
	return r.ring.Close()
}

// React blocks until the kernel has delivered at least one completion, then
// drains all available completions, routing each result to its handle's
// slot and passing the wake token to deliver.
//
// Wake tokens buffered by a drop-time cancellation are delivered first;
// when any exist, React flushes the SQ without blocking so the executor can
// run the woken tasks immediately.
//
// The reactor must not be re-entered from inside deliver: no polls, no
// handle creation, no nested React.
func (r *Reactor[T]) React(deliver func(T)) error {
	if r.reacting {
		panic("reactor: React re-entered")
	}
	r.reacting = true
	defer func() { r.reacting = false }()

	start := time.Now()
	var wakes uint64

	buffered := r.ready
	r.ready = nil
	for _, token := range buffered {
		wakes++
		deliver(token)
	}

	waitNr := uint32(1)
	if len(buffered) > 0 {
		waitNr = 0
	}
	if err := r.ring.SubmitAndWait(waitNr); err != nil {
		return WrapError("react", ErrCodeWait, err)
	}

	r.ring.Drain(func(c uring.Completion) {
		if token, ok := r.dispatch(c); ok {
			wakes++
			deliver(token)
		}
	})

	r.metrics.RecordReact(uint64(time.Since(start).Nanoseconds()), wakes)
	return nil
}

// submitIO allocates a result slot and a pending-table tag, then stages the
// submission on the SQ. Called by handles on their first poll.
func (r *Reactor[T]) submitIO(prep PrepareFunc, token T, kind ioKind) (slot int, tag uint64) {
	if r.reacting {
		panic("reactor: submission during React")
	}

	if kind == kindOneshot {
		slot = r.oneshot.CreateSlot()
		r.metrics.OneshotSubmissions.Add(1)
	} else {
		slot = r.multishot.CreateSlot()
		r.metrics.MultishotSubmissions.Add(1)
	}

	key := r.pending.Insert(pendingIO[T]{token: token, slot: slot, kind: kind})
	tag = uint64(key)

	if err := r.ring.Push(uring.PrepFunc(prep), tag); err != nil {
		// Over-subscription beyond ring capacity is a bug in the
		// collaborator, not a runtime condition.
		r.logger.Error("submission queue overflow", "tag", tag, "pending", r.pending.Len())
		panic(fmt.Sprintf("reactor: %v (tag %d)", err, tag))
	}

	r.logger.Debug("submitted", "tag", tag, "slot", slot, "multishot", kind == kindMultishot)
	return slot, tag
}

// dispatch routes one completion to its store slot and returns the wake
// token to deliver. Completions without a pending entry are tolerated:
// late multishot events can already be in the CQ when their stream is
// cancelled.
func (r *Reactor[T]) dispatch(c uring.Completion) (T, bool) {
	var zero T

	if c.UserData&cancelBit != 0 {
		// Cancel confirmations are consumed by syncCancel, which waits for
		// its own confirmation and intercepts it before dispatch; this
		// branch only guards against one reaching the I/O path.
		r.logger.Debug("stray cancel completion", "tag", c.UserData&^cancelBit, "res", c.Value)
		return zero, false
	}

	key := int(c.UserData)
	entry, ok := r.pending.Get(key)
	if !ok {
		r.metrics.UnknownTags.Add(1)
		r.logger.Debug("completion for unknown tag", "tag", c.UserData, "res", c.Value)
		return zero, false
	}

	token := entry.token
	switch entry.kind {
	case kindOneshot:
		r.oneshot.SetResult(entry.slot, c.Value)
		r.pending.Remove(key)
	case kindMultishot:
		if c.More() {
			r.multishot.PushResult(entry.slot, c.Value)
			r.metrics.MultishotEvents.Add(1)
		} else {
			// The end-of-stream mark retires the tag: nothing further
			// will be posted against it.
			r.multishot.SetFinished(entry.slot)
			r.pending.Remove(key)
			r.metrics.StreamsFinished.Add(1)
		}
	}

	r.metrics.Completions.Add(1)
	return token, true
}

// syncCancel cancels the in-kernel submission with the given tag and does
// not return until the kernel has confirmed the cancel and the tag's
// terminal completion has been consumed. Only then is tag reuse safe.
//
// Completions for other tags harvested while waiting are dispatched
// normally; their wake tokens are buffered for the next React.
func (r *Reactor[T]) syncCancel(tag uint64) {
	if r.reacting {
		panic("reactor: cancellation during React")
	}

	cancelData := cancelBit | tag
	err := r.ring.Push(func(sqe *giouring.SubmissionQueueEntry) {
		sqe.PrepareCancel64(tag, 0)
	}, cancelData)
	if err != nil {
		r.logger.Error("cannot stage cancel", "tag", tag, "error", err)
		panic(fmt.Sprintf("reactor: %v (cancel of tag %d)", err, tag))
	}

	var confirmed bool
	var cancelRes int32
	for !confirmed || r.pending.Contains(int(tag)) {
		if err := r.ring.SubmitAndWait(1); err != nil {
			panic(fmt.Sprintf("reactor: wait during cancel of tag %d: %v", tag, err))
		}
		r.ring.Drain(func(c uring.Completion) {
			if c.UserData == cancelData {
				confirmed = true
				cancelRes = c.Value
				return
			}
			if token, ok := r.dispatch(c); ok {
				r.ready = append(r.ready, token)
			}
		})
	}

	switch {
	case cancelRes == 0:
	case cancelRes == -int32(syscall.ENOENT), cancelRes == -int32(syscall.EALREADY):
		// Already finished or finishing; the terminal completion has been
		// consumed by the loop condition either way.
	default:
		panic(fmt.Sprintf("reactor: cancel of tag %d failed: %d", tag, cancelRes))
	}

	r.metrics.Cancels.Add(1)
	r.logger.Debug("cancelled", "tag", tag, "res", cancelRes)
}
