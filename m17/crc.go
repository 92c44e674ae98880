package m17

import "github.com/sigurn/crc16"

const CRCLen = 2

// M17 CRC polynomial
var m17CRCParams = crc16.Params{
	Poly: 0x5935,
	Init: 0xffff,
	Name: "CRC-16/M17",
}

var crcTable = crc16.MakeTable(m17CRCParams)

// CRC calculates the M17 CRC of in. The CRC of a buffer with its own
// big-endian CRC appended is 0.
func CRC(in []byte) uint16 {
	return crc16.Checksum(in, crcTable)
}

// AppendCRC appends the big-endian CRC of in to it.
func AppendCRC(in []byte) []byte {
	crc := CRC(in)
	return append(in, byte(crc>>8), byte(crc))
}
