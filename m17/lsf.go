package m17

import (
	"encoding/binary"
	"fmt"
	"math"
)

type LSFType byte
type LSFDataType byte

const (
	LSFTypePacket LSFType = iota
	LSFTypeStream
)

const (
	LSFDataTypeReserved LSFDataType = iota
	LSFDataTypeData
	LSFDataTypeVoice
	LSFDataTypeVoiceData
)

const (
	LSFLen     = 30
	AddressLen = 6
	MetaLen    = 112 / 8

	typeLen = 2

	dstPos  = 0
	srcPos  = dstPos + AddressLen
	typPos  = srcPos + AddressLen
	metaPos = typPos + typeLen
	crcPos  = metaPos + MetaLen
)

// Link Setup Frame
type LSF struct {
	Dst  [AddressLen]byte
	Src  [AddressLen]byte
	Type [typeLen]byte
	Meta [MetaLen]byte
	CRC  [CRCLen]byte
}

// NewLSF builds an LSF from encoded addresses and fills in the CRC.
func NewLSF(dst, src [AddressLen]byte, t LSFType, dt LSFDataType, can byte) LSF {
	lsf := LSF{
		Dst: dst,
		Src: src,
	}
	if t == LSFTypePacket {
		// Data Type is only defined for stream mode
		dt = 0
	}
	typ := uint16(t&0x1) | uint16(dt&0x3)<<1 | uint16(can&0xF)<<7
	binary.BigEndian.PutUint16(lsf.Type[:], typ)
	lsf.CalcCRC()
	return lsf
}

func NewLSFFromBytes(buf []byte) LSF {
	var lsf LSF
	copy(lsf.Dst[:], buf[dstPos:srcPos])
	copy(lsf.Src[:], buf[srcPos:typPos])
	copy(lsf.Type[:], buf[typPos:metaPos])
	copy(lsf.Meta[:], buf[metaPos:crcPos])
	copy(lsf.CRC[:], buf[crcPos:crcPos+CRCLen])
	return lsf
}

// Convert this LSF to a byte slice suitable for transmission
func (l *LSF) ToBytes() []byte {
	b := make([]byte, 0, LSFLen)

	b = append(b, l.Dst[:]...)
	b = append(b, l.Src[:]...)
	b = append(b, l.Type[:]...)
	b = append(b, l.Meta[:]...)
	b = append(b, l.CRC[:]...)

	return b
}

// Calculate CRC for this LSF
func (l *LSF) CalcCRC() uint16 {
	a := l.ToBytes()
	crc := CRC(a[:LSFLen-CRCLen])
	binary.BigEndian.PutUint16(l.CRC[:], crc)
	return crc
}

// Check if the CRC is correct
func (l *LSF) CheckCRC() bool {
	return CRC(l.ToBytes()) == 0
}

func (l *LSF) LSFType() LSFType {
	return LSFType(l.Type[1] & 0x1)
}

func (l *LSF) IsStream() bool {
	return l.LSFType() == LSFTypeStream
}

// CAN returns the channel access number.
func (l *LSF) CAN() byte {
	return byte(binary.BigEndian.Uint16(l.Type[:])>>7) & 0xF
}

func (l LSF) String() string {
	return fmt.Sprintf("{Dst: %X, Src: %X, Type: %04X, Meta: %X, CRC: %X}",
		l.Dst, l.Src, binary.BigEndian.Uint16(l.Type[:]), l.Meta, l.CRC)
}

// SetMeta replaces the META field and updates the CRC.
func (l *LSF) SetMeta(meta [MetaLen]byte) {
	l.Meta = meta
	l.CalcCRC()
}

type GNSSSource byte

const (
	GNSSSourceM17Client GNSSSource = 0
	GNSSSourceOpenRTX   GNSSSource = 1
	GNSSSourceOther     GNSSSource = 0xFF
)

type StationType byte

const (
	StationFixed StationType = iota
	StationMobile
	StationHandheld
)

// Position META flags. The hemisphere bits are derived from the sign of
// Lat and Lon.
const (
	MetaLatSouth           = 1 << 0
	MetaLonWest            = 1 << 1
	MetaAltitudeValid      = 1 << 2
	MetaSpeedBearingValid  = 1 << 3
	metaHemisphereMask     = MetaLatSouth | MetaLonWest
	minAltitude            = -1500
	maxAltitude            = math.MaxUint16 + minAltitude
	metaPositionFractional = 1 << 16
)

// Position is the GNSS position carried in the META field.
type Position struct {
	Source      GNSSSource
	StationType StationType
	// degrees, negative for south and west
	Lat, Lon float64
	// MetaAltitudeValid and MetaSpeedBearingValid
	Flags byte
	// feet
	Altitude int
	// degrees
	Bearing uint16
	// miles per hour
	Speed uint8
}

// SetMetaPosition encodes p into the META field and updates the CRC. The
// TYPE field is left alone.
func (l *LSF) SetMetaPosition(p Position) error {
	if math.IsNaN(p.Lat) || math.Abs(p.Lat) > 90 {
		return fmt.Errorf("latitude %v out of range", p.Lat)
	}
	if math.IsNaN(p.Lon) || math.Abs(p.Lon) > 180 {
		return fmt.Errorf("longitude %v out of range", p.Lon)
	}
	if p.Altitude < minAltitude || p.Altitude > maxAltitude {
		return fmt.Errorf("altitude %d out of range %d..%d", p.Altitude, minAltitude, maxAltitude)
	}

	var meta [MetaLen]byte
	meta[0] = byte(p.Source)
	meta[1] = byte(p.StationType)
	meta[2], meta[3], meta[4] = encodeDegrees(p.Lat)
	meta[5], meta[6], meta[7] = encodeDegrees(p.Lon)
	meta[8] = p.Flags &^ metaHemisphereMask
	if p.Lat < 0 {
		meta[8] |= MetaLatSouth
	}
	if p.Lon < 0 {
		meta[8] |= MetaLonWest
	}
	binary.BigEndian.PutUint16(meta[9:11], uint16(p.Altitude-minAltitude))
	binary.BigEndian.PutUint16(meta[11:13], p.Bearing)
	meta[13] = p.Speed
	l.SetMeta(meta)
	return nil
}

// encodeDegrees splits |deg| into whole degrees and a 16 bit fraction.
func encodeDegrees(deg float64) (whole, fracHi, fracLo byte) {
	whole64, frac := math.Modf(math.Abs(deg))
	f := uint16(math.Floor(frac * metaPositionFractional))
	return byte(whole64), byte(f >> 8), byte(f)
}

// MetaPosition decodes the META field as a position.
func (l *LSF) MetaPosition() Position {
	m := l.Meta
	p := Position{
		Source:      GNSSSource(m[0]),
		StationType: StationType(m[1]),
		Lat:         float64(m[2]) + float64(binary.BigEndian.Uint16(m[3:5]))/metaPositionFractional,
		Lon:         float64(m[5]) + float64(binary.BigEndian.Uint16(m[6:8]))/metaPositionFractional,
		Flags:       m[8] &^ metaHemisphereMask,
		Altitude:    int(binary.BigEndian.Uint16(m[9:11])) + minAltitude,
		Bearing:     binary.BigEndian.Uint16(m[11:13]),
		Speed:       m[13],
	}
	if m[8]&MetaLatSouth != 0 {
		p.Lat = -p.Lat
	}
	if m[8]&MetaLonWest != 0 {
		p.Lon = -p.Lon
	}
	return p
}
