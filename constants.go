package fpdrv

import "time"

// Default configuration constants for opening and running a Session,
// re-exported at the root for callers who don't need to reach into
// internal packages directly, the same re-export role the teacher's
// constants.go plays over internal/constants.
const (
	// DefaultEventQueueDepth is the default buffered capacity of a
	// Session's dispatch.Worker event channel.
	DefaultEventQueueDepth = 64

	// DefaultMaxFrameSize bounds a single decoded protocol frame.
	DefaultMaxFrameSize = 8192
)

// Timing constants governing device enumeration retry and transport
// timeouts.
//
// A freshly plugged sensor can take a moment to enumerate (the kernel is
// still attaching usbfs nodes), so Open retries enumeration with a short,
// fixed delay rather than failing on the first attempt. The interface
// claim that follows is attempted once.
const (
	// DefaultEnumerateRetryDelay is the wait between enumeration
	// attempts in the default retry policy.
	DefaultEnumerateRetryDelay = 100 * time.Millisecond

	// DefaultEnumerateMaxAttempts is the default number of enumeration
	// attempts before Open gives up.
	DefaultEnumerateMaxAttempts = 50

	// DefaultIOTimeout is the default bulk transfer timeout for commands
	// that expect a prompt reply (everything except the finger-detect
	// wait-for-finger poll and capture's stripe stream, which block
	// indefinitely until data or cancellation arrives).
	DefaultIOTimeout = 4 * time.Second
)
