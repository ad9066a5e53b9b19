// Package transport defines the USB bulk transport contract the driver
// phase state machines submit their I/O through (spec §4.1's "transport
// (external, ~10%)" collaborator). Submit and cancel are called from the
// dispatch worker only; completions arrive on whatever goroutine the
// concrete implementation uses to wait on the wire and must do nothing
// beyond delivering a Result, per spec §4.1's "restricted to enqueue-and-
// return" shared-resource policy.
package transport

import (
	"context"
	"time"
)

// Endpoint addresses match the AES1660/AES2550 family's fixed wiring
// (original_source/libfprint/drivers/aes2550.c: EP_OUT = 2 | OUT,
// EP_IN = 1 | IN); every family in this driver shares the same pair.
const (
	EndpointOut = 2
	EndpointIn  = 1
)

// DefaultTimeout is the default bulk transfer timeout (aes2550.c's
// BULK_TIMEOUT). The "wait for finger" read overrides this with an
// infinite timeout and relies on Cancel instead (spec §4.1 "Timeouts").
const DefaultTimeout = 4000 * time.Millisecond

// Result is what a submitted transfer resolves to: either the bytes read
// (SubmitIn) or nothing but a completion signal (SubmitOut), plus an
// error classifying how the transfer ended. N is the length field a
// caller compares against the requested length to detect a short
// transfer (spec §4.1 "length ≠ actual_length").
type Result struct {
	Data []byte
	N    int
	Err  error
}

// Handle identifies one in-flight transfer for Cancel. The zero Handle
// never refers to a real transfer.
type Handle uint64

// Transport submits bulk transfers and reports their completion
// asynchronously. Implementations must be safe for ClaimInterface/
// SubmitOut/SubmitIn/Cancel/Close to be called from a single goroutine
// (the dispatch worker) while completions are delivered from elsewhere.
type Transport interface {
	// ClaimInterface claims the device's USB interface in a single
	// attempt; it does not retry.
	ClaimInterface(ctx context.Context) error

	// SubmitOut writes payload to ep and reports completion on the
	// returned channel, which receives exactly one Result and is then
	// closed.
	SubmitOut(ctx context.Context, ep int, payload []byte) (Handle, <-chan Result)

	// SubmitIn reads up to length bytes from ep and reports them on the
	// returned channel, which receives exactly one Result and is then
	// closed.
	SubmitIn(ctx context.Context, ep int, length int) (Handle, <-chan Result)

	// Cancel aborts the transfer identified by h, if still outstanding.
	// The transfer's Result channel still receives exactly one Result,
	// with Err set to context.Canceled or an equivalent. Canceling an
	// already-completed or unknown handle is a no-op.
	Cancel(h Handle)

	// Close releases the claimed interface and the underlying device
	// handle. Outstanding transfers are cancelled as if individually.
	Close() error
}
