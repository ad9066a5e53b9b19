package protocol

import "encoding/binary"

// ByteOrder selects how a device encodes the 2-byte frame length field.
// Most AES16xx devices are little-endian; the type exists because the
// framing format itself is device-configurable (spec §3 "Frame envelope").
type ByteOrder binary.ByteOrder

// LittleEndian and BigEndian are the two orders observed across the family.
var (
	LittleEndian ByteOrder = binary.LittleEndian
	BigEndian    ByteOrder = binary.BigEndian
)

// decodeLength reads the 2-byte payload length that follows the magic byte.
func decodeLength(order ByteOrder, lo, hi byte) int {
	return int(order.Uint16([]byte{lo, hi}))
}
