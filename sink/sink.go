// Package sink defines the consumer-facing callback surface a driver
// session reports to: activation completion, finger presence, captured
// images and session errors. It plays the role the teacher's backend
// package plays for block storage — a small interface callers implement
// to plug their own consumer behind the runtime — but here the data flows
// out of the driver instead of in.
package sink

import "github.com/swipesensor/fpdrv/internal/reassembly"

// Sink receives the driver's asynchronous output. Every method is called
// from the session's single dispatch.Worker goroutine, so implementations
// must not block it for long and need no internal locking against
// concurrent calls from this runtime (spec §6 "sink callbacks").
type Sink interface {
	// OnActivateComplete reports the outcome of an Activate call. err is
	// nil on success.
	OnActivateComplete(err error)

	// OnFingerStatus reports a change in finger presence on the sensor
	// surface: true when a finger has been detected and capture is about
	// to begin, false once it has been removed or capture has ended.
	OnFingerStatus(present bool)

	// OnImageCaptured reports one fully reassembled swipe image.
	OnImageCaptured(img reassembly.Image)

	// OnSessionError reports a session-terminating error observed outside
	// the scope of a single Activate call (e.g. a protocol or I/O error
	// surfacing during finger detection or capture).
	OnSessionError(err error)
}

// NoOp is a Sink that discards every callback, usable as a zero-value
// default when a caller has not wired a real consumer.
type NoOp struct{}

func (NoOp) OnActivateComplete(error)         {}
func (NoOp) OnFingerStatus(bool)              {}
func (NoOp) OnImageCaptured(reassembly.Image) {}
func (NoOp) OnSessionError(error)             {}
