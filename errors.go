package fpdrv

import (
	"errors"
	"fmt"

	"github.com/swipesensor/fpdrv/internal/aesdrv"
)

// Kind classifies a driver error into one of the four categories spec §7
// distinguishes: I/O, Protocol, Resource and Cancelled.
type Kind string

const (
	// KindIO marks a transport-level failure: a short read, a write
	// error, or any other transfer failure not itself a cancellation.
	KindIO Kind = "I/O"

	// KindProtocol marks a response that failed a magic-byte, opcode or
	// length check.
	KindProtocol Kind = "Protocol"

	// KindResource marks a failure to acquire or use a resource the
	// driver needs but does not own the lifecycle of (the USB device
	// failing to enumerate or claim, the dispatch queue overflowing).
	KindResource Kind = "Resource"

	// KindCancelled marks an operation that ended because Deactivate or
	// Close interrupted it, not because of a protocol or I/O failure.
	KindCancelled Kind = "Cancelled"
)

// Error is a structured driver error carrying the operation that failed,
// the session it belongs to, an error Kind for programmatic handling, a
// human message and an optionally wrapped cause. Grounded on the
// teacher's *Error (Op/DevID/Queue context fields, Code category,
// Unwrap/Is for errors.Is/errors.As), with DevID/Queue replaced by a
// single Session field since this driver has no concept of queues.
type Error struct {
	Op      string // operation that failed, e.g. "Activate", "Capture"
	Session string // session identifier, empty if not applicable
	Kind    Kind
	Msg     string
	Inner   error
}

func (e *Error) Error() string {
	var parts []string
	if e.Op != "" {
		parts = append(parts, fmt.Sprintf("op=%s", e.Op))
	}
	if e.Session != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.Session))
	}

	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}

	if len(parts) > 0 {
		return fmt.Sprintf("fpdrv: %s (%s)", msg, parts[0])
	}
	return fmt.Sprintf("fpdrv: %s", msg)
}

// Unwrap returns the wrapped cause, for errors.Is/errors.As support.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Kind.
func (e *Error) Is(target error) bool {
	if target == nil {
		return false
	}
	if te, ok := target.(*Error); ok {
		return e.Kind == te.Kind
	}
	return false
}

// NewError creates a structured Error with no session context.
func NewError(op string, kind Kind, msg string) *Error {
	return &Error{Op: op, Kind: kind, Msg: msg}
}

// NewSessionError creates a structured Error scoped to a session.
func NewSessionError(op, session string, kind Kind, msg string) *Error {
	return &Error{Op: op, Session: session, Kind: kind, Msg: msg}
}

// WrapError wraps inner with Op and Session context, classifying it by
// Kind via classifyAesdrvErr when inner originates from internal/aesdrv,
// mirroring the teacher's mapErrnoToCode-style classification.
func WrapError(op, session string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if fe, ok := inner.(*Error); ok {
		return &Error{Op: op, Session: session, Kind: fe.Kind, Msg: fe.Msg, Inner: fe.Inner}
	}

	kind := classifyAesdrvErr(inner)
	return &Error{Op: op, Session: session, Kind: kind, Msg: inner.Error(), Inner: inner}
}

// classifyAesdrvErr maps an internal/aesdrv sentinel-wrapped error to its
// public Kind. Errors that match none of the sentinels default to
// KindIO, the most common failure mode for an unclassified transport
// problem.
func classifyAesdrvErr(err error) Kind {
	switch {
	case errors.Is(err, aesdrv.ErrProtocol):
		return KindProtocol
	case errors.Is(err, aesdrv.ErrCancelled):
		return KindCancelled
	case errors.Is(err, aesdrv.ErrIO):
		return KindIO
	default:
		return KindIO
	}
}

// IsKind reports whether err is a *Error of the given Kind.
func IsKind(err error, kind Kind) bool {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}

// Sentinel errors for conditions that have no session context to attach
// (rejected at the API boundary before a Session exists).
var (
	ErrNoTransport   = &Error{Kind: KindResource, Msg: "no transport or vendor/product IDs given"}
	ErrNotActivated  = &Error{Kind: KindResource, Msg: "session is not activated"}
	ErrAlreadyClosed = &Error{Kind: KindResource, Msg: "session is already closed"}
)
