// Package executor provides a minimal single-threaded cooperative executor
// for tasks suspended on reactor I/O.
//
// Tasks are plain poll functions: return true when done, false to suspend.
// A suspended task reschedules itself by handing its *Task to a reactor
// handle as the wake token; when the submission completes, React returns
// the token and the executor re-queues the task.
package executor

import (
	"github.com/ehrlich-b/go-reactor"
	"github.com/ehrlich-b/go-reactor/internal/logging"
)

// Task is one unit of cooperatively scheduled work. Its pointer doubles as
// the reactor wake token.
type Task struct {
	poll   func() bool
	queued bool
	done   bool
}

// Executor drives tasks and the reactor on one goroutine.
type Executor struct {
	reactor *reactor.Reactor[*Task]
	queue   []*Task
	live    int
	logger  *logging.Logger
}

// New creates an executor with its own reactor.
func New(opts reactor.Options) (*Executor, error) {
	r, err := reactor.New[*Task](opts)
	if err != nil {
		return nil, err
	}
	return &Executor{reactor: r, logger: logging.Default()}, nil
}

// Reactor exposes the underlying reactor so tasks can create I/O handles.
func (e *Executor) Reactor() *reactor.Reactor[*Task] {
	return e.reactor
}

// Spawn registers a task and queues it for its first poll. The task's poll
// function receives its own *Task to use as a wake token.
func (e *Executor) Spawn(fn func(t *Task) bool) *Task {
	t := &Task{}
	t.poll = func() bool { return fn(t) }
	e.live++
	e.enqueue(t)
	return t
}

// Token returns a TokenFunc yielding t, for passing to handle polls.
func Token(t *Task) reactor.TokenFunc[*Task] {
	return func() *Task { return t }
}

func (e *Executor) enqueue(t *Task) {
	if t.queued || t.done {
		return
	}
	t.queued = true
	e.queue = append(e.queue, t)
}

// Run polls runnable tasks and reacts on the I/O ring until every spawned
// task has finished.
func (e *Executor) Run() error {
	for e.live > 0 {
		if len(e.queue) == 0 {
			err := e.reactor.React(func(t *Task) {
				e.enqueue(t)
			})
			if err != nil {
				return err
			}
			continue
		}

		batch := e.queue
		e.queue = nil
		for _, t := range batch {
			t.queued = false
			if t.done {
				// A wake can arrive for a task that finished or was
				// abandoned in the meantime; discard it.
				e.logger.Debug("discarding wake for finished task")
				continue
			}
			if t.poll() {
				t.done = true
				e.live--
			}
		}
	}
	return nil
}

// Close releases the executor's reactor.
func (e *Executor) Close() error {
	return e.reactor.Close()
}
