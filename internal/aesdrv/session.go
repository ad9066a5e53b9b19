package aesdrv

import (
	"context"

	"github.com/swipesensor/fpdrv/internal/dispatch"
	"github.com/swipesensor/fpdrv/internal/interfaces"
	"github.com/swipesensor/fpdrv/internal/protocol"
	"github.com/swipesensor/fpdrv/internal/reassembly"
	"github.com/swipesensor/fpdrv/internal/ssm"
	"github.com/swipesensor/fpdrv/internal/transport"
	"github.com/swipesensor/fpdrv/sink"
)

// Session is the per-device-open state every phase handler reads and
// mutates. It plays the role original_source/libfprint's struct
// aes_dev plays for the C driver: the one piece of shared state the
// phase-specific callbacks close over. Every field here is only ever
// touched from the dispatch.Worker goroutine, except Deactivate (called
// from an arbitrary caller goroutine) and the read/write completion
// goroutines spawned by internal/transport, both of which only ever post
// Events rather than mutate Session fields directly.
type Session struct {
	Worker    *dispatch.Worker
	Transport transport.Transport
	Family    Family
	Sink      sink.Sink
	Observer  interfaces.Observer
	Logger    interfaces.Logger

	decoder    *protocol.Decoder
	strips     [][]byte
	frameCount int

	// initIdx walks Family.InitCommands during activation; didInit marks
	// that the walk has completed once, so a second ID read that comes
	// back without AlreadyInitByte is a confirmed protocol failure
	// instead of a reason to walk the table again.
	initIdx int
	didInit bool

	// fingerPresent mirrors the last value reported via
	// Sink.OnFingerStatus, used by deactivate to decide whether a
	// trailing "finger removed" notification is owed.
	fingerPresent bool

	// deactivating is set by Deactivate and observed by every phase's
	// read-completion handler as a request to wind down to SET_IDLE
	// instead of continuing the phase's normal loop.
	deactivating bool

	// deactivateWaiters holds callbacks registered by Deactivate while a
	// phase is mid-run; each phase's Start completion callback drains
	// this list once it reaches its terminal state, so Deactivate never
	// needs to poll for phase completion.
	deactivateWaiters []func()

	// waitHandle/waitActive identify the single long-lived,
	// cancellable read each phase may have outstanding at a time (the
	// finger-detection phase's "wait for finger" read, or a capture
	// phase's strip read). Deactivate cancels it directly via
	// Transport.Cancel rather than through internal/ssm's own
	// cancellation primitives, since there is a concrete I/O operation
	// to tear down, not merely an idle SSM to park.
	waitHandle transport.Handle
	waitActive bool

	activate *ssm.SSM
	fdet     *ssm.SSM
	capture  *ssm.SSM
}

// NewSession creates a Session ready to run Activate. The caller owns
// starting and stopping worker.
func NewSession(worker *dispatch.Worker, tr transport.Transport, family Family, sk sink.Sink, observer interfaces.Observer, logger interfaces.Logger) *Session {
	if sk == nil {
		sk = sink.NoOp{}
	}
	s := &Session{
		Worker:    worker,
		Transport: tr,
		Family:    family,
		Sink:      sk,
		Observer:  observer,
		Logger:    logger,
		decoder:   protocol.NewDecoder(protocol.LittleEndian),
	}
	s.activate = ssm.New(worker, s.activateHandler, activateNumStates, s)
	s.fdet = ssm.New(worker, s.fingerDetectHandler, fdetNumStates, s)
	s.capture = ssm.New(worker, s.captureHandler, captureNumStates, s)
	return s
}

// sendCommand issues a fire-and-forget bulk-OUT write of cmd, invoking
// onDone on the Worker goroutine once the write completes.
func (s *Session) sendCommand(cmd Command, onDone func(err error)) {
	_, ch := s.Transport.SubmitOut(context.Background(), transport.EndpointOut, cmd)
	go func() {
		res := <-ch
		s.Worker.Post(func() { onDone(res.Err) })
	}()
}

// readResponse issues a bounded bulk-IN read of length bytes, invoking
// onDone on the Worker goroutine with the data once it completes. Used
// for every fixed-size request/response exchange (ID, init ack,
// calibrate, finger-detect poll); capture's stripe stream uses
// readCancellable instead since it classifies frames through the Decoder.
// The read is bounded by transport.DefaultTimeout.
func (s *Session) readResponse(length int, onDone func(data []byte, err error)) {
	ctx, cancel := context.WithTimeout(context.Background(), transport.DefaultTimeout)
	_, ch := s.Transport.SubmitIn(ctx, transport.EndpointIn, length)
	go func() {
		res := <-ch
		cancel()
		s.Worker.Post(func() { onDone(res.Data, res.Err) })
	}()
}

// readCancellable behaves like readResponse but remembers the issued
// Handle so Deactivate can cancel it while it is outstanding. It must
// only be used for the one read per phase that Deactivate is allowed to
// interrupt: finger detection's wait-for-finger poll, and capture's
// stripe stream.
func (s *Session) readCancellable(length int, onDone func(data []byte, err error)) {
	ctx, cancel := context.WithCancel(context.Background())
	h, ch := s.Transport.SubmitIn(ctx, transport.EndpointIn, length)
	s.waitHandle = h
	s.waitActive = true
	go func() {
		res := <-ch
		cancel()
		s.Worker.Post(func() {
			s.waitActive = false
			onDone(res.Data, res.Err)
		})
	}()
}

// cancelOutstandingRead cancels the currently tracked cancellable read,
// if any, via the transport. It reads waitActive and waitHandle, so it
// runs on the Worker goroutine (Deactivate calls it from a posted Event).
func (s *Session) cancelOutstandingRead() {
	if s.waitActive {
		s.Transport.Cancel(s.waitHandle)
	}
}

// resetCapture clears per-swipe state ahead of a new capture phase run.
func (s *Session) resetCapture() {
	s.strips = s.strips[:0]
	s.frameCount = 0
	s.decoder = protocol.NewDecoder(protocol.LittleEndian)
}

// reassembleAndEmit builds the final image from the accumulated strips
// and reports it via Sink, clearing the strip list afterward.
func (s *Session) reassembleAndEmit() error {
	img, err := reassembly.Reassemble(s.strips, s.Family.FrameWidth, s.Family.FrameHeight, s.Family.ColorsInverted)
	s.strips = s.strips[:0]
	if err != nil {
		return err
	}
	if s.Observer != nil {
		s.Observer.ObserveImage(img.Width, img.Height)
	}
	s.Sink.OnImageCaptured(img)
	return nil
}

// notifyPhaseTerminal runs on every phase's completion, after its own
// Sink callback, giving any Deactivate callers waiting on this phase a
// chance to finish the wind-down without Deactivate having to poll.
func (s *Session) notifyPhaseTerminal() {
	if len(s.deactivateWaiters) == 0 {
		return
	}
	waiters := s.deactivateWaiters
	s.deactivateWaiters = nil
	s.finishDeactivation()
	for _, w := range waiters {
		w()
	}
}

func (s *Session) finishDeactivation() {
	s.strips = s.strips[:0]
	s.deactivating = false
	if s.fingerPresent {
		s.setFingerPresent(false)
	}
}

func (s *Session) setFingerPresent(present bool) {
	if s.fingerPresent == present {
		return
	}
	s.fingerPresent = present
	s.Sink.OnFingerStatus(present)
}
