package dispatch

import "sync"

// Buffer size thresholds, sized for this family's frames: the largest
// strip payload is the AES2550's 192x8 frame, packed at 4 bits per pixel
// into 768 bytes (808 with its leading offset) plus header,
// comfortably under the 8KiB decoder cap (protocol.MaxFrameSize). Grounded
// on `internal/queue/pool.go`'s size-bucketed sync.Pool idiom, rescaled
// from block-IO buffer sizes (128KB-1MB) to this protocol's frame sizes.
const (
	size512 = 512
	size2k  = 2 * 1024
	size8k  = 8 * 1024
)

var globalPool = struct {
	pool512 sync.Pool
	pool2k  sync.Pool
	pool8k  sync.Pool
}{
	pool512: sync.Pool{New: func() any { b := make([]byte, size512); return &b }},
	pool2k:  sync.Pool{New: func() any { b := make([]byte, size2k); return &b }},
	pool8k:  sync.Pool{New: func() any { b := make([]byte, size8k); return &b }},
}

// GetBuffer returns a pooled buffer of at least the requested size.
// Callers must return it with PutBuffer once done.
func GetBuffer(size int) []byte {
	switch {
	case size <= size512:
		return (*globalPool.pool512.Get().(*[]byte))[:size]
	case size <= size2k:
		return (*globalPool.pool2k.Get().(*[]byte))[:size]
	default:
		return (*globalPool.pool8k.Get().(*[]byte))[:size]
	}
}

// PutBuffer returns buf to the pool matching its capacity. Buffers whose
// capacity doesn't match one of the standard tiers (e.g. grown past
// size8k by the decoder) are simply dropped for the GC to reclaim.
func PutBuffer(buf []byte) {
	c := cap(buf)
	buf = buf[:c]
	switch c {
	case size512:
		globalPool.pool512.Put(&buf)
	case size2k:
		globalPool.pool2k.Put(&buf)
	case size8k:
		globalPool.pool8k.Put(&buf)
	}
}
