// Package dispatch implements the single-consumer event loop that
// serializes every producer touching a session's state: USB transfer
// completions and the public Activate/Deactivate API. Spec §4.1
// calls for FIFO-per-producer delivery with no cross-producer fairness
// guarantee; a buffered channel drained by one goroutine gives exactly
// that. Grounded on `internal/queue/runner.go`'s one-worker-per-queue
// completion loop, generalised from io_uring CQEs to arbitrary closures.
package dispatch

import (
	"context"

	"github.com/swipesensor/fpdrv/internal/interfaces"
)

// Event is a unit of work executed serially by a Worker: an SSM state
// transition, a transport completion callback, or a public API call.
// Every mutation of SSM state is posted as an Event, even when the
// caller is itself running inside one — posting rather than calling
// through keeps the "enqueue the next handler invocation" semantics of
// spec §4.2 uniform regardless of call origin.
type Event func()

// Worker drains a single channel of Events on one goroutine. It is safe
// to Post from any number of concurrent goroutines.
type Worker struct {
	events chan Event
	done   chan struct{}
	logger interfaces.Logger
}

// NewWorker creates a Worker with the given event backlog capacity.
// A logger may be nil.
func NewWorker(logger interfaces.Logger, backlog int) *Worker {
	if backlog <= 0 {
		backlog = 64
	}
	return &Worker{
		events: make(chan Event, backlog),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the worker's loop goroutine. It runs until ctx is
// cancelled, draining any already-queued events before exiting.
func (w *Worker) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Done returns a channel closed once the worker's loop goroutine has
// exited, for callers that need to wait out a shutdown.
func (w *Worker) Done() <-chan struct{} {
	return w.done
}

// Post enqueues ev for serialized execution. It returns once ev is
// queued; while the backlog is full it blocks until the worker makes
// room, and it has no overflow error path. Safe to call concurrently; Posts from a single goroutine are delivered
// in order, but no ordering is guaranteed across distinct goroutines
// (spec §4.1 "FIFO-per-producer, no cross-producer fairness guarantee").
func (w *Worker) Post(ev Event) {
	w.events <- ev
}

// Wait blocks until every event posted before this call has run, giving
// a caller a barrier after which the worker has observed its earlier
// Posts.
func (w *Worker) Wait() {
	done := make(chan struct{})
	w.Post(func() { close(done) })
	<-done
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case ev := <-w.events:
			w.run(ev)
		}
	}
}

// drain runs every event already queued without blocking for more, so a
// cancelled worker still delivers completions posted just before shutdown.
func (w *Worker) drain() {
	for {
		select {
		case ev := <-w.events:
			w.run(ev)
		default:
			return
		}
	}
}

// FatalPanic is implemented by panic values that must crash the process
// rather than be contained to the one event that raised them. internal/ssm
// panics this way for its "fatal if violated" invariant checks (spec §4.2)
// that happen to run inside a posted event instead of synchronously at the
// call site; run must not let those be silently swallowed, or a violated
// invariant leaves the SSM stuck mid-transition forever instead of
// crashing loudly.
type FatalPanic interface {
	FatalInvariantViolation()
}

// run executes ev, containing an arbitrary event panic to this one event
// rather than killing the worker goroutine and every session it
// serializes. A FatalPanic is logged the same way but re-raised on this
// goroutine afterward, since it represents a programming error the spec
// requires to be fatal rather than recoverable.
func (w *Worker) run(ev Event) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if w.logger != nil {
			w.logger.Printf("dispatch: event panicked: %v", r)
		}
		if _, fatal := r.(FatalPanic); fatal {
			panic(r)
		}
	}()
	ev()
}
