package aesdrv

// AES2550 is the Family for AuthenTec/AES2550-class sensors (this table
// also covers the AES2810 variant, which shares the same id_table vendor
// and a second product ID): 192x8 frames, no frame-sum heuristic (capture
// relies solely on the heartbeat frame), a 150-frame cap and images always
// flagged color-inverted, grounded on
// original_source/libfprint/drivers/aes2550.c.
var AES2550 = Family{
	Name:        "aes2550",
	FrameWidth:  192,
	FrameHeight: 8,

	StripMagic:         0x0D,
	HeartbeatMagic:     0xDB,
	StripPayloadOffset: 43,

	ColorLUT: [16]byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	},
	ColorsInverted: true,

	// AES2550-class devices did not expose the AES1660-style per-strip
	// sum heuristic in the original driver; capture relies entirely on
	// the heartbeat frame to terminate.
	FrameSumThreshold: 0,
	MaxFrames:         150,

	// AES2550-class devices have no ID-response short-circuit byte; every
	// activation walks the full init command table.
	AlreadyInitByte: 0x00,
	VerifyInitViaReadID: false,

	InitCommands: []Command{
		{0x40, 0x01, 0x00, 0x00},
		{0x40, 0x02, 0x00, 0x00},
	},

	// The original AES2550 activate state machine calibrates once during
	// activation but does not recalibrate on every finger-detection or
	// capture pass.
	CalibrateInFingerDetect: false,
	CalibrateInCapture:      false,

	SetIdleCmd:       Command{0x20, 0x00},
	ReadIDCmd:        Command{0x07, 0x00},
	CalibrateCmd:     Command{0x06, 0x00},
	LEDOnCmd:         Command{0x51, 0x01},
	WaitForFingerCmd: Command{0x83, 0x00},
	CaptureCmd:       Command{0x0D, 0x00},

	IDResponseLength:        16,
	InitAckResponseLength:   4,
	CalibrateResponseLength: 8,
	FingerDetectRespLength:  4,

	VIDPIDs: []VIDPID{
		{Vendor: 0x08ff, Product: 0x2550},
		{Vendor: 0x08ff, Product: 0x2810},
	},
}
