// Package ssm implements the sequential state machine runtime shared by
// every driver phase (spec §4.2), grounded on
// original_source/libfprint/drv.c's fpi_ssm: a numbered sequence of
// states driven by a caller handler, a single completion callback, and
// asynchronous cancellation safe to call from any goroutine. Every
// mutating operation is posted onto a dispatch.Worker, so state
// transitions are data-race-free by construction rather than by locking
// discipline at each call site.
package ssm

import (
	"sync"

	"github.com/swipesensor/fpdrv/internal/dispatch"
)

// Handler is invoked once per state transition. It inspects State(),
// issues the phase's single outstanding transport operation for that
// state, and ends either with a transport completion that later calls a
// transition method, or with MarkIdle if it is parking without
// outstanding I/O. The runtime never invokes a handler re-entrantly.
type Handler func(s *SSM)

// CompletionFunc runs exactly once, when an SSM reaches its terminal
// state, whether by success or abort.
type CompletionFunc func(s *SSM)

// invariantPanic marks a panic value raised by one of this package's
// "fatal if violated" invariant checks (spec §4.2) that run inside a
// closure posted to a dispatch.Worker, rather than synchronously at the
// call site. It implements dispatch.FatalPanic's method set structurally
// (no import of dispatch needed for that) so Worker.run can tell these
// apart from an arbitrary event panic and let them crash the process
// instead of containing them to the one event that raised them.
type invariantPanic string

func (p invariantPanic) FatalInvariantViolation() {}

func (p invariantPanic) String() string { return string(p) }

// SSM is one running (or completed) instance of a state machine.
type SSM struct {
	worker   *dispatch.Worker
	handler  Handler
	nrStates int
	priv     any

	mu         sync.Mutex
	curState   int
	completed  bool
	err        error
	cancelling bool
	cancelErr  error
	idle       bool
	child      *SSM
	parent     *SSM
	onComplete CompletionFunc
}

// New creates an SSM in the post-completed state, so it may immediately
// be Start-ed (spec §4.2 "new"). worker is the dispatch.Worker every
// transition will be posted to; priv is opaque caller data retrievable
// via Priv, mirroring fpi_ssm's void *priv.
func New(worker *dispatch.Worker, handler Handler, nrStates int, priv any) *SSM {
	if nrStates <= 0 {
		panic("ssm: nrStates must be positive")
	}
	return &SSM{
		worker:    worker,
		handler:   handler,
		nrStates:  nrStates,
		priv:      priv,
		completed: true,
	}
}

// Priv returns the opaque data New was given.
func (s *SSM) Priv() any { return s.priv }

// State returns the current state index. Safe from any goroutine.
func (s *SSM) State() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.curState
}

// Err returns the terminal error, if the SSM has completed via abort.
func (s *SSM) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Completed reports whether the SSM has reached its terminal state.
func (s *SSM) Completed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}

// Parent returns the SSM this one was attached to via StartSubSM, or nil
// for a top-level SSM.
func (s *SSM) Parent() *SSM {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parent
}

// Start begins a fresh run at state 0 and arranges for onComplete to run
// once the SSM reaches its terminal state. Requires the SSM be currently
// completed; violating that is fatal (spec §4.2 invariant list).
func (s *SSM) Start(onComplete CompletionFunc) {
	s.worker.Post(func() {
		s.mu.Lock()
		if !s.completed {
			s.mu.Unlock()
			panic(invariantPanic("ssm: Start called on a non-completed SSM"))
		}
		s.completed = false
		s.err = nil
		s.curState = 0
		s.cancelling = false
		s.cancelErr = nil
		s.idle = false
		s.onComplete = onComplete
		s.mu.Unlock()
		s.invoke(0)
	})
}

// invoke runs the handler for state, unless the SSM has since completed
// or a child is attached (the parent's state is occupied while its
// child runs). Called only from within a posted Event, so this is the
// only place the handler is ever entered — never re-entrantly.
func (s *SSM) invoke(state int) {
	s.mu.Lock()
	if s.completed || s.child != nil {
		s.mu.Unlock()
		return
	}
	s.idle = false
	s.mu.Unlock()
	s.handler(s)
}

// NextState advances cur_state by one, completing the SSM if that was
// the last state (spec §4.2 "next_state").
func (s *SSM) NextState() {
	s.worker.Post(func() { s.advance(func(cur int) int { return cur + 1 }) })
}

// JumpToState moves directly to state target, which must be in range
// (fatal otherwise, per spec §4.2 "jump beyond nr_states").
func (s *SSM) JumpToState(target int) {
	if target < 0 || target >= s.nrStates {
		panic("ssm: JumpToState target out of range")
	}
	s.worker.Post(func() { s.advance(func(int) int { return target }) })
}

// advance computes the next state from the current one and either
// invokes the handler there or completes the SSM, honoring a pending
// async cancellation in place of the requested transition.
func (s *SSM) advance(next func(cur int) int) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		return
	}
	if s.child != nil {
		s.mu.Unlock()
		panic(invariantPanic("ssm: state transition requested while a child SSM is attached"))
	}
	if s.cancelling {
		cb := s.completeLocked(s.cancelErr)
		s.mu.Unlock()
		s.postCompletion(cb)
		return
	}

	target := next(s.curState)
	if target >= s.nrStates {
		cb := s.completeLocked(nil)
		s.mu.Unlock()
		s.postCompletion(cb)
		return
	}
	s.curState = target
	s.mu.Unlock()
	s.invoke(target)
}

// MarkCompleted ends the run successfully (spec §4.2 "mark_completed").
func (s *SSM) MarkCompleted() {
	s.worker.Post(func() { s.completeChecked(nil) })
}

// MarkAborted ends the run with err, which must be non-nil — fatal
// otherwise (spec §4.2 "mark_aborted with zero error").
func (s *SSM) MarkAborted(err error) {
	if err == nil {
		panic("ssm: MarkAborted requires a non-nil error")
	}
	s.worker.Post(func() { s.completeChecked(err) })
}

// completeChecked enforces the completion invariants (not already
// completed, no attached child) before terminating the run. A pending
// async cancellation pre-empts the handler-supplied error, matching
// spec §4.2's "the next transition observes cancelling and completes
// the SSM".
func (s *SSM) completeChecked(err error) {
	s.mu.Lock()
	if s.completed {
		s.mu.Unlock()
		panic(invariantPanic("ssm: completing an already-completed SSM"))
	}
	if s.child != nil {
		s.mu.Unlock()
		panic(invariantPanic("ssm: completing while a child SSM is attached"))
	}
	if s.cancelling {
		err = s.cancelErr
	}
	cb := s.completeLocked(err)
	s.mu.Unlock()
	s.postCompletion(cb)
}

// completeLocked marks s terminal and returns the completion callback to
// run, if any. Caller must hold s.mu and must not call it again.
func (s *SSM) completeLocked(err error) CompletionFunc {
	s.completed = true
	s.err = err
	return s.onComplete
}

// postCompletion enqueues cb, per spec §4.2's "enqueues it" rather than
// calling the completion handler inline from whatever triggered it.
func (s *SSM) postCompletion(cb CompletionFunc) {
	if cb != nil {
		s.worker.Post(func() { cb(s) })
	}
}

// MarkIdle declares that the current state has issued no outstanding
// transport operation and is parking. It lets AsyncAbort/AsyncComplete
// service a pending cancellation immediately instead of waiting for a
// completion callback that will never come (spec §4.2 "mark_idle").
func (s *SSM) MarkIdle() {
	s.worker.Post(func() {
		s.mu.Lock()
		s.idle = true
		if s.completed || !s.cancelling {
			s.mu.Unlock()
			return
		}
		cb := s.completeLocked(s.cancelErr)
		s.mu.Unlock()
		s.postCompletion(cb)
	})
}

// AsyncAbort requests cancellation with err as the terminal error. Safe
// to call from any goroutine. If a child is attached, the request is
// forwarded to the innermost descendant (spec §4.2 "async_abort").
func (s *SSM) AsyncAbort(err error) {
	if err == nil {
		panic("ssm: AsyncAbort requires a non-nil error")
	}
	s.asyncCancel(&err)
}

// AsyncComplete requests cancellation whose terminal state is a
// successful completion rather than an abort. Safe to call from any
// goroutine (spec §4.2 "async_complete").
func (s *SSM) AsyncComplete() {
	s.asyncCancel(nil)
}

func (s *SSM) asyncCancel(errp *error) {
	s.worker.Post(func() {
		target := s
		for {
			target.mu.Lock()
			child := target.child
			if child == nil {
				break
			}
			target.mu.Unlock()
			target = child
		}
		// target.mu is held here.
		if target.completed {
			target.mu.Unlock()
			return
		}

		if target.cancelling {
			target.mu.Unlock()
			return
		}

		var err error
		if errp != nil {
			err = *errp
		}
		target.cancelling = true
		target.cancelErr = err

		if !target.idle {
			target.mu.Unlock()
			return
		}
		cb := target.completeLocked(err)
		target.mu.Unlock()
		target.postCompletion(cb)
	})
}

// StartSubSM attaches child as this SSM's sub-machine and starts it.
// While a child is attached, every state-mutating operation on the
// parent is rejected; the parent occupies its current state. The
// child's successful completion causes exactly one NextState on the
// parent, its abort causes MarkAborted(parent, child.Err()); the child
// is detached as part of that transition (spec §4.2 "start_subsm").
// parent and child must share the same Worker.
func (s *SSM) StartSubSM(child *SSM) {
	s.worker.Post(func() {
		s.mu.Lock()
		if s.child != nil {
			s.mu.Unlock()
			panic(invariantPanic("ssm: StartSubSM called while a child SSM is already attached"))
		}
		s.child = child
		s.mu.Unlock()

		child.mu.Lock()
		child.parent = s
		child.mu.Unlock()

		child.Start(func(c *SSM) {
			err := c.Err()
			s.mu.Lock()
			s.child = nil
			s.mu.Unlock()
			if err != nil {
				s.MarkAborted(err)
			} else {
				s.NextState()
			}
		})
	})
}
