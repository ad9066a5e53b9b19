package protocol

import "fmt"

// MaxFrameSize bounds the reassembly buffer. The largest frame the family
// produces is one image strip; this comfortably covers every known device
// (largest strip payload is well under 1KiB) while still catching a
// corrupt length field instead of allocating unbounded memory.
const MaxFrameSize = 8192

// Frame is one reassembled length-prefixed message: the magic byte plus
// its payload (the header's length bytes are not included).
type Frame struct {
	Magic   byte
	Payload []byte
}

// FrameKind classifies a decoded Frame for the capture state machine.
type FrameKind int

const (
	FrameKindStrip FrameKind = iota
	FrameKindHeartbeat
	FrameKindUnknown
)

// Classify determines whether a frame is an image strip or a
// heartbeat/status message, given the family's configured magic bytes
// (spec §4.4 "Frame classification").
func Classify(f Frame, stripMagic, heartbeatMagic byte) FrameKind {
	switch f.Magic {
	case stripMagic:
		return FrameKindStrip
	case heartbeatMagic:
		return FrameKindHeartbeat
	default:
		return FrameKindUnknown
	}
}

// Decoder reassembles a device's bulk-IN byte stream into framed messages,
// one at a time, following spec §4.4: a 3-byte header (magic, len_lo,
// len_hi) followed by len_lo+(len_hi<<8) payload bytes. It is safe to feed
// it chunks of arbitrary size, including chunks that span header and
// payload boundaries or contain more than one frame.
type Decoder struct {
	order ByteOrder

	buf          []byte
	size         int
	max          int
	headerParsed bool
}

// NewDecoder creates a Decoder using the given frame-length byte order.
func NewDecoder(order ByteOrder) *Decoder {
	return &Decoder{
		order: order,
		buf:   make([]byte, HeaderSize, 64),
		max:   HeaderSize,
	}
}

// Feed consumes one IN-transfer's worth of bytes and returns every frame
// completed as a result, in arrival order. Residual bytes belonging to a
// not-yet-complete frame are retained internally for the next call.
func (d *Decoder) Feed(data []byte) ([]Frame, error) {
	var frames []Frame

	for len(data) > 0 {
		n := d.max - d.size
		if n > len(data) {
			n = len(data)
		}
		if cap(d.buf) < d.max {
			grown := make([]byte, d.max)
			copy(grown, d.buf)
			d.buf = grown
		} else if len(d.buf) < d.max {
			d.buf = d.buf[:d.max]
		}
		copy(d.buf[d.size:d.size+n], data[:n])
		d.size += n
		data = data[n:]

		if d.size != d.max {
			continue
		}

		if !d.headerParsed {
			length := decodeLength(d.order, d.buf[1], d.buf[2])
			frameLen := HeaderSize + length
			if frameLen > MaxFrameSize {
				return frames, fmt.Errorf("protocol: frame length %d exceeds maximum %d", frameLen, MaxFrameSize)
			}
			d.max = frameLen
			d.headerParsed = true
			if length == 0 {
				frames = append(frames, d.yield())
			}
			continue
		}

		frames = append(frames, d.yield())
	}

	return frames, nil
}

// yield emits the buffered frame and resets the decoder to await the next
// header, per spec §4.4's "{max=3, size=0}" reset.
func (d *Decoder) yield() Frame {
	magic := d.buf[0]
	payload := make([]byte, d.max-HeaderSize)
	copy(payload, d.buf[HeaderSize:d.max])

	d.size = 0
	d.max = HeaderSize
	d.headerParsed = false

	return Frame{Magic: magic, Payload: payload}
}
