package reassembly

import (
	"bytes"
	"testing"
)

// identity LUT keeps pixel values unchanged so test fixtures can be
// written directly in unpacked form without reasoning about nibble packing.
var identityLUT = func() [16]byte {
	var lut [16]byte
	for i := range lut {
		lut[i] = byte(i)
	}
	return lut
}()

func TestUnpackExpandsNibbles(t *testing.T) {
	lut := [16]byte{0x0, 0x1, 0x5, 0x9, 0xc, 0xe, 0xf, 0xf,
		0xf, 0xf, 0xf, 0xf, 0xf, 0xf, 0xf, 0xf}

	// width=2, height=2 => 4 pixels => 2 packed bytes.
	packed := []byte{0x12, 0x34}
	got, err := Unpack(packed, 2, 2, lut)
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	want := []byte{lut[0x1], lut[0x2], lut[0x3], lut[0x4]}
	if !bytes.Equal(got, want) {
		t.Errorf("Unpack = %v, want %v", got, want)
	}
}

func TestUnpackRejectsWrongSize(t *testing.T) {
	_, err := Unpack([]byte{0x01}, 4, 4, identityLUT)
	if err == nil {
		t.Fatal("expected error for undersized packed strip")
	}
}

// buildStrip fills a width*height strip with a constant value.
func buildStrip(width, height int, value byte) []byte {
	s := make([]byte, width*height)
	for i := range s {
		s[i] = value
	}
	return s
}

// overlapFixture builds two height=8 strips whose trailing 5 rows of strip0
// equal the leading 5 rows of strip1 exactly (row-for-row, strip0[3+i] ==
// strip1[i] for i in [0,5)), so the 5-row comparison window (non-overlap
// dy=3) has zero error. strip0's leading 3 rows and strip1's trailing 3
// rows are set far apart so every other window scores strictly higher
// (spec §8 scenario 5: dy=3, final height H+3).
func overlapFixture(width, height int) (strip0, strip1 []byte) {
	strip0 = make([]byte, width*height)
	strip1 = make([]byte, width*height)

	fill := func(buf []byte, row int, v byte) {
		for x := 0; x < width; x++ {
			buf[row*width+x] = v
		}
	}

	for row := 0; row < height-5; row++ {
		fill(strip0, row, 200)
	}
	for i := 0; i < 5; i++ {
		v := byte(10 + i)
		fill(strip0, height-5+i, v)
		fill(strip1, i, v)
	}
	for row := 5; row < height; row++ {
		fill(strip1, row, 250)
	}
	return strip0, strip1
}

func TestFindOverlapExactBoundary(t *testing.T) {
	const width, height = 4, 8

	strip0, strip1 := overlapFixture(width, height)

	dy, minErr := findOverlap(strip0, strip1, width, height)
	if dy != 3 {
		t.Errorf("dy = %d, want 3", dy)
	}
	if minErr != 0 {
		t.Errorf("minError = %d, want 0", minErr)
	}
}

func TestReassembleTwoStripsWithOverlap(t *testing.T) {
	const width, height = 4, 8

	strip0, strip1 := overlapFixture(width, height)

	img, err := Reassemble([][]byte{strip0, strip1}, width, height, false)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if img.Height != height+3 {
		t.Errorf("Height = %d, want %d", img.Height, height+3)
	}
	if len(img.Pixels) != width*img.Height {
		t.Errorf("len(Pixels) = %d, want %d", len(img.Pixels), width*img.Height)
	}
}

func TestReassembleScanDirectionFlip(t *testing.T) {
	// findOverlap is asymmetric in its two arguments (it compares the first
	// strip's tail to the second strip's head), so a 2-strip input can be
	// built where reading forward scores worse than reading in reverse
	// (spec §8 scenario 6). width=1 keeps the per-row arithmetic trivial.
	const width, height = 1, 4
	s0 := []byte{0, 0, 0, 100}
	s1 := []byte{0, 0, 0, 0}

	img, err := Reassemble([][]byte{s0, s1}, width, height, true)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if !img.ColorsInverted {
		t.Errorf("expected ColorsInverted to be carried through")
	}
	if !img.HFlipped || !img.VFlipped {
		t.Errorf("expected reverse direction to win and set both flip flags, got H=%v V=%v", img.HFlipped, img.VFlipped)
	}
	if img.Height != height+1 {
		t.Errorf("Height = %d, want %d", img.Height, height+1)
	}
}

func TestReassembleForwardWinsWhenLowerError(t *testing.T) {
	// Swapping the two strips from TestReassembleScanDirectionFlip makes
	// forward the lower-error direction, so no flip flags should be set.
	const width, height = 1, 4
	s0 := []byte{0, 0, 0, 0}
	s1 := []byte{0, 0, 0, 100}

	img, err := Reassemble([][]byte{s0, s1}, width, height, false)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if img.HFlipped || img.VFlipped {
		t.Errorf("expected forward direction to win, got H=%v V=%v", img.HFlipped, img.VFlipped)
	}
	if img.Height != height+1 {
		t.Errorf("Height = %d, want %d", img.Height, height+1)
	}
}

func TestReassembleSingleStrip(t *testing.T) {
	const width, height = 4, 8
	strip := buildStrip(width, height, 77)

	img, err := Reassemble([][]byte{strip}, width, height, false)
	if err != nil {
		t.Fatalf("Reassemble: %v", err)
	}
	if img.Height != height {
		t.Errorf("Height = %d, want %d", img.Height, height)
	}
	if img.HFlipped || img.VFlipped {
		t.Errorf("single strip should never flip")
	}
}

func TestReassembleRejectsEmptyInput(t *testing.T) {
	_, err := Reassemble(nil, 4, 8, false)
	if err == nil {
		t.Fatal("expected error for empty strip list")
	}
}

func TestReassembleRejectsMismatchedStripSize(t *testing.T) {
	_, err := Reassemble([][]byte{{1, 2, 3}}, 4, 8, false)
	if err == nil {
		t.Fatal("expected error for mis-sized strip")
	}
}
