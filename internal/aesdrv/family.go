// Package aesdrv implements the four driver-phase state machines shared by
// every AES16xx-class swipe sensor: activate, finger detection, capture and
// deactivate. Each phase is one generic internal/ssm.SSM whose steps are
// parameterised by a Family value rather than duplicated per device,
// mirroring how original_source/libfprint/drivers/aes1660.c and aes2550.c
// share the same overall phase shape while differing in byte layout,
// thresholds and command tables.
package aesdrv

// VIDPID identifies one USB vendor/product pair a family's id_table
// recognizes. Kept as plain uint16s, independent of internal/usbctrl's
// gousb-backed type, so this package stays buildable on platforms that
// exclude gousb (internal/usbctrl and internal/transport's USB-backed
// implementation are both build-tagged !mips && !mipsle; aesdrv itself
// only ever talks to the transport.Transport interface, so it carries no
// such restriction).
type VIDPID struct {
	Vendor  uint16
	Product uint16
}

// Family carries every per-device-family constant the generic phase state
// machines need. Two concrete values exist, family_aes1660.go and
// family_aes2550.go; command tables are intentionally small and
// representative rather than exhaustive device-accurate byte dumps (spec.md
// §1's instruction that register values are data, not protocol logic).
type Family struct {
	// Name identifies the family in logs and sink callbacks.
	Name string

	// FrameWidth and FrameHeight are the unpacked strip dimensions in
	// pixels (aes1660.c: 128x8, aes2550.c: 192x8).
	FrameWidth  int
	FrameHeight int

	// StripMagic and HeartbeatMagic classify a decoded protocol.Frame.
	StripMagic     byte
	HeartbeatMagic byte

	// StripPayloadOffset is the offset, measured from the frame's magic
	// byte, at which packed pixel data begins within a strip frame. Since
	// protocol.Frame.Payload already excludes the 3-byte header, index
	// into it at StripPayloadOffset-protocol.HeaderSize.
	StripPayloadOffset int

	// ColorLUT is the 16-entry nibble contrast-stretch table consumed by
	// reassembly.Unpack (aes1660.c's color_lut).
	ColorLUT [16]byte

	// ColorsInverted is stamped onto every reassembled image regardless of
	// scan direction (aes2550-class devices always set
	// FP_IMG_COLORS_INVERTED; aes1660-class devices do not).
	ColorsInverted bool

	// FrameSumThreshold, when non-zero, enables the "still scanning"
	// heuristic: after unpacking a strip, if its contrast-stretched pixel
	// sum exceeds this threshold and MaxFrames has not been reached,
	// capture loops back to read another strip instead of waiting purely
	// on a heartbeat frame (aes1660.c's `sum > 50` check). Zero disables
	// the heuristic, relying on the heartbeat frame alone (aes2550-class).
	FrameSumThreshold int

	// MaxFrames is the hard cap on strips captured in one swipe,
	// regardless of family (aes1660.c's `frames_cnt < 400`; 150 for the
	// AES2550 family per this implementation's supplemented bound).
	MaxFrames int

	// AlreadyInitByte, found at a fixed offset in the ID response, lets
	// activation short-circuit straight to completion without walking the
	// init command table (aes1660.c's `data[7] == 0x23` check). Zero means
	// the family has no such byte and never short-circuits.
	AlreadyInitByte byte

	// VerifyInitViaReadID re-reads the device ID after walking
	// InitCommands once, checking for AlreadyInitByte as confirmation
	// that initialization took (aes1660.c jumps back to
	// ACTIVATE_SEND_READ_ID_CMD after the last init command; a missing
	// confirmation byte on the second read is a protocol failure, not a
	// retry). Families without this confirmation step (aes2550-class)
	// proceed straight from the last init command to calibration.
	VerifyInitViaReadID bool

	// InitCommands is the ordered command table activation's init_idx
	// cursor walks once per activation (aes1660.c's init_cmds array,
	// wrapping back to re-read the device ID after the last entry).
	InitCommands []Command

	// CalibrateInFingerDetect and CalibrateInCapture gate the optional
	// [SEND_CALIBRATE -> READ_CALIBRATE] sub-steps in those two phases
	// (DESIGN.md Open Question #2: the two families disagree on how often
	// they recalibrate, modeled here as a per-family flag consumed by one
	// shared phase script rather than two divergent scripts).
	CalibrateInFingerDetect bool
	CalibrateInCapture      bool

	// Fixed-size command bytes sent at each phase step. Response lengths
	// are implied by the Decoder/protocol layer, not fixed sizes, except
	// for the ID/init/calibrate/finger-detect reads which use a bulk
	// request-response exchange with a known reply size.
	SetIdleCmd      Command
	ReadIDCmd       Command
	CalibrateCmd    Command
	LEDOnCmd        Command
	WaitForFingerCmd Command
	CaptureCmd      Command

	IDResponseLength        int
	InitAckResponseLength   int
	CalibrateResponseLength int
	FingerDetectRespLength  int

	// VIDPIDs lists the vendor/product pairs this family's id_table
	// recognizes (aes1660.c/aes2550.c's id_table).
	VIDPIDs []VIDPID
}

// Command is one scripted byte sequence written to the bulk-OUT endpoint.
type Command = []byte
