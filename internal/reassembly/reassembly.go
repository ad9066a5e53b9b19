// Package reassembly turns a sequence of narrow, overlapping swipe-sensor
// strips into a single contiguous fingerprint image. It implements spec
// §4.5 exactly: 4-bit-to-8-bit unpacking, directional assembly, overlap
// detection by L1 error minimisation, and scan-direction selection,
// grounded on the original driver's aes1660.c `process_stripe_data`
// (unpack) and aes2550.c `find_overlap`/`assemble`/`assemble_and_submit_image`
// (overlap detection and direction selection).
package reassembly

import "fmt"

// Image is a reassembled fingerprint image: an explicit width and height, a
// tightly-packed width*height pixel buffer, and the flags the family and
// the winning scan direction contribute (spec §4.5 "Emit", §6
// "on_image_captured").
type Image struct {
	Width          int
	Height         int
	Pixels         []byte
	ColorsInverted bool
	HFlipped       bool
	VFlipped       bool
}

// Unpack expands a 4-bit-packed strip into one byte per pixel using lut,
// a 16-entry monotone contrast-stretch table indexed by nibble value. The
// packed strip must contain width*height/2 bytes; the unpacked output has
// width*height bytes, one per pixel, matching aes1660.c's nibble-pair
// expansion of `process_stripe_data`.
func Unpack(packed []byte, width, height int, lut [16]byte) ([]byte, error) {
	want := width * height / 2
	if len(packed) != want {
		return nil, fmt.Errorf("reassembly: packed strip has %d bytes, want %d", len(packed), want)
	}

	out := make([]byte, width*height)
	for i, b := range packed {
		hi := lut[b>>4]
		lo := lut[b&0x0f]
		out[2*i] = hi
		out[2*i+1] = lo
	}
	return out, nil
}

// assemble lays n unpacked strips (each width*height bytes) into a single
// buffer, either forward or in reverse order, then walks consecutive pairs
// collapsing detected overlap. It returns the assembled pixel data trimmed
// to its final height and the summed overlap error, mirroring aes2550.c's
// `assemble`.
func assemble(strips [][]byte, width, height int, reverse bool) (pixels []byte, finalHeight int, errorsSum uint32) {
	n := len(strips)
	buf := make([]byte, n*width*height)

	for i := 0; i < n; i++ {
		var strip []byte
		if reverse {
			strip = strips[n-1-i]
		} else {
			strip = strips[i]
		}
		copy(buf[i*width*height:(i+1)*width*height], strip)
	}

	assembledEnd := width * height
	for i := 1; i < n; i++ {
		next := buf[i*width*height : (i+1)*width*height]
		prev := buf[assembledEnd-width*height : assembledEnd]

		dy, minErr := findOverlap(prev, next, width, height)
		errorsSum += minErr

		overlapStart := assembledEnd - width*(height-dy)
		copy(buf[overlapStart:overlapStart+width*height], next)
		assembledEnd = overlapStart + width*height
	}

	finalHeight = assembledEnd / width
	return buf[:assembledEnd], finalHeight, errorsSum
}

// findOverlap computes the non-overlap height dy between two consecutive
// strips by minimising the normalised L1 error over every candidate dy in
// [0, height), per spec §4.5 step 3 (grounded on aes2550.c's
// `find_overlap`). Ties resolve to the smaller dy since dy increases
// monotonically and a strictly-less comparison is used.
func findOverlap(first, second []byte, width, height int) (dy int, minError uint32) {
	minError = ^uint32(0)

	for candidate := 0; candidate < height; candidate++ {
		rows := height - candidate
		count := uint32(width * rows)

		var errSum uint32
		for i := 0; i < width*rows; i++ {
			a := first[candidate*width+i]
			b := second[i]
			if a > b {
				errSum += uint32(a - b)
			} else {
				errSum += uint32(b - a)
			}
		}
		errSum *= 15
		errSum /= count

		if errSum < minError {
			minError = errSum
			dy = candidate
		}
	}
	return dy, minError
}

// Reassemble runs assembly in both scan directions and keeps the one with
// the smaller total overlap error, setting flip flags when the reverse
// direction wins (spec §4.5 step 4). strips must be in capture order
// (oldest first), each already unpacked to width*height bytes by Unpack.
func Reassemble(strips [][]byte, width, height int, colorsInverted bool) (Image, error) {
	if len(strips) == 0 {
		return Image{}, fmt.Errorf("reassembly: no strips to assemble")
	}
	for i, s := range strips {
		if len(s) != width*height {
			return Image{}, fmt.Errorf("reassembly: strip %d has %d bytes, want %d", i, len(s), width*height)
		}
	}

	forwardPixels, forwardHeight, forwardErr := assemble(strips, width, height, false)
	if len(strips) == 1 {
		return Image{
			Width:          width,
			Height:         forwardHeight,
			Pixels:         forwardPixels,
			ColorsInverted: colorsInverted,
		}, nil
	}

	reversePixels, reverseHeight, reverseErr := assemble(strips, width, height, true)

	if reverseErr < forwardErr {
		return Image{
			Width:          width,
			Height:         reverseHeight,
			Pixels:         reversePixels,
			ColorsInverted: colorsInverted,
			HFlipped:       true,
			VFlipped:       true,
		}, nil
	}

	return Image{
		Width:          width,
		Height:         forwardHeight,
		Pixels:         forwardPixels,
		ColorsInverted: colorsInverted,
	}, nil
}
