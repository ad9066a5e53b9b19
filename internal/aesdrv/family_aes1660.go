package aesdrv

// AES1660 is the Family for AuthenTec/AES1660-class sensors: 128x8 frames,
// a 0x49 strip magic, the frame-sum "still scanning" heuristic, a 400-frame
// hard cap and the already-initialized short-circuit byte 0x23, grounded on
// original_source/libfprint/drivers/aes1660.c.
var AES1660 = Family{
	Name:        "aes1660",
	FrameWidth:  128,
	FrameHeight: 8,

	StripMagic:         0x49,
	HeartbeatMagic:     0xDB,
	StripPayloadOffset: 41,

	// A monotone contrast-stretch table: low nibbles map to dark pixels,
	// high nibbles to light ones, spread across the full byte range
	// (aes1660.c's color_lut).
	ColorLUT: [16]byte{
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	},
	ColorsInverted: false,

	FrameSumThreshold: 50,
	MaxFrames:         400,

	AlreadyInitByte: 0x23,
	VerifyInitViaReadID: true,

	InitCommands: []Command{
		{0x40, 0x01, 0x00, 0x00},
		{0x40, 0x02, 0x00, 0x00},
		{0x40, 0x03, 0x00, 0x00},
	},

	CalibrateInFingerDetect: true,
	CalibrateInCapture:      true,

	SetIdleCmd:       Command{0x20, 0x00},
	ReadIDCmd:        Command{0x07, 0x00},
	CalibrateCmd:     Command{0x06, 0x00},
	LEDOnCmd:         Command{0x51, 0x01},
	WaitForFingerCmd: Command{0x01, 0x00},
	CaptureCmd:       Command{0x49, 0x00},

	IDResponseLength:        16,
	InitAckResponseLength:   4,
	CalibrateResponseLength: 8,
	FingerDetectRespLength:  4,

	VIDPIDs: []VIDPID{
		{Vendor: 0x08ff, Product: 0x1660},
		{Vendor: 0x08ff, Product: 0x1680},
		{Vendor: 0x08ff, Product: 0x1681},
		{Vendor: 0x08ff, Product: 0x1682},
		{Vendor: 0x08ff, Product: 0x1683},
		{Vendor: 0x08ff, Product: 0x1684},
		{Vendor: 0x08ff, Product: 0x1685},
		{Vendor: 0x08ff, Product: 0x1686},
		{Vendor: 0x08ff, Product: 0x1687},
		{Vendor: 0x08ff, Product: 0x1688},
		{Vendor: 0x08ff, Product: 0x1689},
		{Vendor: 0x08ff, Product: 0x168a},
		{Vendor: 0x08ff, Product: 0x168b},
		{Vendor: 0x08ff, Product: 0x168c},
		{Vendor: 0x08ff, Product: 0x168d},
		{Vendor: 0x08ff, Product: 0x168e},
		{Vendor: 0x08ff, Product: 0x168f},
	},
}
