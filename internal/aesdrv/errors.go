package aesdrv

import (
	"errors"
	"fmt"
)

// Sentinel errors classify a phase failure the way the teacher's
// mapErrnoToCode classifies a syscall errno — by wrapping one of these
// with errors.Is/errors.As support, so the root package's Error can
// translate an aesdrv failure into its public Kind without aesdrv
// depending on the root package (which would be circular).
var (
	// ErrProtocol marks a response that failed a magic-byte or
	// opcode check (spec §4.3's "bogus magic byte" tie-break).
	ErrProtocol = errors.New("aesdrv: protocol violation")

	// ErrIO marks a transport-level failure: a short read, a write
	// error, or any other Result.Err not itself a cancellation (spec
	// §4.3's "length != actual_length" tie-break).
	ErrIO = errors.New("aesdrv: transport I/O failure")

	// ErrCancelled marks a transfer that ended because Deactivate
	// cancelled it, not because of a protocol or I/O failure.
	ErrCancelled = errors.New("aesdrv: cancelled")
)

func protocolErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrProtocol)...)
}

func ioErrorf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrIO)...)
}
