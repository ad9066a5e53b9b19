// Package fpdrv is the public API for driving an AES1660/AES2550-class
// USB swipe fingerprint sensor: open a session against a real device or
// an injected transport.Transport, run its activate/finger-detect/
// capture cycle, and receive decoded swipe images through a sink.Sink.
package fpdrv

import (
	"context"
	"fmt"

	"github.com/google/gousb"

	"github.com/swipesensor/fpdrv/internal/aesdrv"
	"github.com/swipesensor/fpdrv/internal/dispatch"
	"github.com/swipesensor/fpdrv/internal/interfaces"
	"github.com/swipesensor/fpdrv/internal/logging"
	"github.com/swipesensor/fpdrv/internal/transport"
	"github.com/swipesensor/fpdrv/internal/usbctrl"
	"github.com/swipesensor/fpdrv/sink"
)

// DeviceFamily selects which of the two supported chipset families a
// Session drives. Grounded on original_source/libfprint's two separate
// driver structs (aes1660_driver, aes2550_driver) reduced to a single
// enum, since both are just different internal/aesdrv.Family values
// consumed by the same generic phase state machines.
type DeviceFamily int

const (
	FamilyAES1660 DeviceFamily = iota
	FamilyAES2550
)

func (f DeviceFamily) resolve() (aesdrv.Family, error) {
	switch f {
	case FamilyAES1660:
		return aesdrv.AES1660, nil
	case FamilyAES2550:
		return aesdrv.AES2550, nil
	default:
		return aesdrv.Family{}, fmt.Errorf("fpdrv: unknown device family %d", f)
	}
}

// Params configures Open. Either Transport is supplied directly (tests,
// or a caller that already owns an open handle) or Family's built-in
// VIDPIDs are enumerated over USB via internal/usbctrl.
type Params struct {
	Family DeviceFamily

	// Transport, if non-nil, is used as-is and usbctrl enumeration is
	// skipped entirely; ClaimInterface is still called. Intended for
	// transport.NewFakeTransport() in tests.
	Transport transport.Transport

	// RetryPolicy bounds USB enumeration when Transport is nil. The zero
	// value uses usbctrl.DefaultRetryPolicy.
	RetryPolicy usbctrl.RetryPolicy

	Sink            sink.Sink
	Observer        interfaces.Observer
	Logger          interfaces.Logger
	EventQueueDepth int
}

// Session is an opened, claimed driver session ready to run its
// activate/finger-detect/capture cycle. Grounded on backend.go's Device:
// a handle owning a background worker and the resources behind it, with
// lifecycle methods (here Run/Deactivate/Close replacing
// StopAndDelete/State).
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	worker  *dispatch.Worker
	inner   *aesdrv.Session
	ctrl    *usbctrl.Controller // nil when Transport was injected
	tr      transport.Transport
	metrics *Metrics
	logger  interfaces.Logger

	running bool
	closed  bool
}

// Open claims a transport (enumerating over USB when params.Transport is
// nil) and returns a Session ready for Run. The caller must eventually
// call Close.
func Open(ctx context.Context, params Params) (*Session, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	family, err := params.Family.resolve()
	if err != nil {
		return nil, err
	}

	logger := params.Logger
	if logger == nil {
		logger = logging.Default()
	}

	queueDepth := params.EventQueueDepth
	if queueDepth <= 0 {
		queueDepth = DefaultEventQueueDepth
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	worker := dispatch.NewWorker(logger, queueDepth)
	worker.Start(sessionCtx)

	var ctrl *usbctrl.Controller
	tr := params.Transport
	if tr == nil {
		ids := make([]usbctrl.VIDPID, len(family.VIDPIDs))
		for i, v := range family.VIDPIDs {
			ids[i] = usbctrl.VIDPID{Vendor: gousb.ID(v.Vendor), Product: gousb.ID(v.Product)}
		}
		policy := params.RetryPolicy
		if policy.MaxAttempts <= 0 {
			policy = usbctrl.DefaultRetryPolicy
		}
		c, t, err := usbctrl.Open(sessionCtx, ids, policy, logger)
		if err != nil {
			cancel()
			return nil, WrapError("Open", "", err)
		}
		ctrl, tr = c, t
	} else if err := tr.ClaimInterface(sessionCtx); err != nil {
		cancel()
		return nil, WrapError("Open", "", err)
	}

	metrics := NewMetrics()
	var observer interfaces.Observer = NoOpObserver{}
	if params.Observer != nil {
		observer = params.Observer
	} else {
		observer = NewMetricsObserver(metrics)
	}

	sk := params.Sink
	if sk == nil {
		sk = sink.NoOp{}
	}

	inner := aesdrv.NewSession(worker, tr, family, sk, observer, logger)

	return &Session{
		ctx:     sessionCtx,
		cancel:  cancel,
		worker:  worker,
		inner:   inner,
		ctrl:    ctrl,
		tr:      tr,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// Run drives the full device cycle: Activate once, then repeatedly
// FingerDetect and, when a finger lands, Capture, until ctx is done or
// Deactivate/Close is called. Run blocks until the cycle ends and
// returns the error (if any) that ended it; a context cancellation or a
// graceful Deactivate both return nil.
func (s *Session) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	done := make(chan error, 1)
	s.running = true

	s.inner.Activate(func(err error) {
		if err != nil {
			done <- WrapError("Activate", "", err)
			return
		}
		s.runCycle(done)
	})

	select {
	case err := <-done:
		s.running = false
		return err
	case <-ctx.Done():
		s.Deactivate(nil)
		<-done
		s.running = false
		return nil
	case <-s.ctx.Done():
		s.running = false
		return nil
	}
}

func (s *Session) runCycle(done chan<- error) {
	s.inner.FingerDetect(func(present bool, err error) {
		if err != nil {
			werr := WrapError("FingerDetect", "", err)
			s.inner.Sink.OnSessionError(werr)
			done <- werr
			return
		}
		if !present {
			// Deactivate interrupted the wait; wind down cleanly.
			done <- nil
			return
		}
		s.inner.Capture(func(err error) {
			if err != nil {
				werr := WrapError("Capture", "", err)
				s.inner.Sink.OnSessionError(werr)
				done <- werr
				return
			}
			s.runCycle(done)
		})
	})
}

// Deactivate asynchronously winds the running cycle down to idle,
// invoking onDone (if non-nil) once the currently running phase has
// reached its terminal state. Safe to call whether or not Run is
// active. Deliberately non-blocking: sink.Sink's own contract
// (sink/sink.go) requires every callback to run on this session's
// single dispatch.Worker goroutine, and a synchronous wrapper here would
// deadlock a Sink implementation that calls Deactivate from inside one
// of its own callbacks, since the worker could never reach the very
// completion event such a call would be waiting on.
func (s *Session) Deactivate(onDone func()) {
	s.inner.Deactivate(onDone)
}

// Metrics returns this session's metrics collector.
func (s *Session) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of session metrics.
func (s *Session) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}

// Close asynchronously deactivates any running cycle, stops the
// session's worker, and releases the underlying transport (and, if
// usbctrl enumerated it, the USB controller), invoking onDone with any
// resulting error once finished. Non-blocking for the same reason
// Deactivate is: safe to call from inside a Sink callback as well as
// from an ordinary caller goroutine. Calling Close a second time invokes
// onDone with ErrAlreadyClosed immediately.
func (s *Session) Close(onDone func(error)) {
	if s.closed {
		if onDone != nil {
			onDone(ErrAlreadyClosed)
		}
		return
	}
	s.closed = true

	teardown := func() {
		s.metrics.Stop()
		s.cancel()
		<-s.worker.Done()

		var err error
		if s.tr != nil {
			err = s.tr.Close()
		}
		if s.ctrl != nil {
			if cerr := s.ctrl.Close(); err == nil {
				err = cerr
			}
		}
		if err != nil {
			err = WrapError("Close", "", err)
		}
		if onDone != nil {
			onDone(err)
		}
	}

	if s.running {
		s.inner.Deactivate(func() {
			s.running = false
			go teardown()
		})
		return
	}
	go teardown()
}
