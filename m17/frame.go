package m17

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	PacketChunkLen   = 25                 // data bytes per packet frame
	PacketFrameLen   = PacketChunkLen + 1 // plus the metadata byte, 6 bits of which are sent
	StreamPayloadLen = 16
	StreamFrameLen   = 2 + StreamPayloadLen // frame number and payload
	LICHBits         = 96                   // Golay coded LICH bits at the start of a stream frame
	MaxPacketFrames  = 33
	MaxPacketData    = MaxPacketFrames*PacketChunkLen - CRCLen
	maxStreamFN      = 0x7FFF
	streamEOSBit     = 0x8000
	packetEOFBit     = 0x80
)

var ErrBadCRC = errors.New("bad CRC")

// PacketFrame is one frame of a packet transmission. Counter is the frame
// number, or for the last frame the number of valid bytes in Data.
type PacketFrame struct {
	Data    [PacketChunkLen]byte
	Last    bool
	Counter int
}

func (f PacketFrame) metadata() byte {
	if f.Last {
		return packetEOFBit | byte(f.Counter&0x1F)<<2
	}
	return byte(f.Counter&0x1F) << 2
}

// StreamFrame is one frame of a stream transmission. LICH holds the raw
// coded LICH chunk; Golay coding it is left to the caller. A decoded frame
// carries the received soft bits so the caller can soft decode the Golay
// words. EncodeStreamFrame sends the hard decision of each bit, so values
// above SoftErasure go out as 1.
type StreamFrame struct {
	LICH        [LICHBits]SoftBit
	FrameNumber uint16
	Last        bool
	Payload     [StreamPayloadLen]byte
}

// encodePayload interleaves, randomizes and maps a full payload of type-2/3
// bits onto symbols.
func encodePayload(enc []Bit) ([]Symbol, error) {
	if len(enc) != BitsPerPayload {
		return nil, fmt.Errorf("encoded payload is %d bits, expected %d", len(enc), BitsPerPayload)
	}
	rf := InterleaveBits(NewBits(enc))
	RandomizeBits(rf)
	return AppendBits(make([]Symbol, 0, SymbolsPerPayload), rf), nil
}

// EncodeLSFFrame encodes an LSF into payload symbols, without syncword.
func EncodeLSFFrame(lsf LSF) ([]Symbol, error) {
	enc, err := ConvolutionalEncode(lsf.ToBytes(), LSFPuncturePattern, LSFFinalBit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode LSF: %w", err)
	}
	return encodePayload(enc)
}

// EncodePacketFrame encodes one packet frame into payload symbols.
func EncodePacketFrame(f PacketFrame) ([]Symbol, error) {
	b := make([]byte, 0, PacketFrameLen)
	b = append(b, f.Data[:]...)
	b = append(b, f.metadata())
	enc, err := ConvolutionalEncode(b, PacketPuncturePattern, PacketModeFinalBit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode packet frame: %w", err)
	}
	return encodePayload(enc)
}

// EncodeStreamFrame encodes one stream frame into payload symbols. The LICH
// bits are hard decided.
func EncodeStreamFrame(f StreamFrame) ([]Symbol, error) {
	if f.FrameNumber > maxStreamFN {
		return nil, fmt.Errorf("frame number %d out of range", f.FrameNumber)
	}
	fn := f.FrameNumber
	if f.Last {
		fn |= streamEOSBit
	}
	b := binary.BigEndian.AppendUint16(make([]byte, 0, StreamFrameLen), fn)
	b = append(b, f.Payload[:]...)
	data, err := ConvolutionalEncode(b, StreamPuncturePattern, StreamFinalBit)
	if err != nil {
		return nil, fmt.Errorf("failed to encode stream frame: %w", err)
	}
	enc := make([]Bit, 0, BitsPerPayload)
	for _, s := range f.LICH {
		enc = append(enc, s.HardBit())
	}
	return encodePayload(append(enc, data...))
}

// FrameCodec decodes frame payloads. It is not safe for concurrent use.
type FrameCodec struct {
	vd  *ViterbiDecoder
	out [(MaxDecodeSoftBits/2+ConvolutionK-1)/8 + 1]byte
}

func NewFrameCodec() *FrameCodec {
	return &FrameCodec{vd: NewViterbiDecoder()}
}

// softPayload turns received payload symbols into deinterleaved soft bits.
func softPayload(pld []Symbol) ([]SoftBit, error) {
	if len(pld) != SymbolsPerPayload {
		return nil, fmt.Errorf("payload is %d symbols, expected %d", len(pld), SymbolsPerPayload)
	}
	softBit := SliceSymbols(pld)

	//derandomize
	softBit = DerandomizeSoftBits(softBit)

	//deinterleave
	return DeinterleaveSoftBits(softBit), nil
}

func (c *FrameCodec) decode(pld []Symbol, pattern PuncturePattern, skip int) ([]byte, uint32, error) {
	softBit, err := softPayload(pld)
	if err != nil {
		return nil, DecodeFailed, err
	}
	cost, err := c.vd.DecodePunctured(c.out[:], softBit[skip:], pattern)
	if err != nil {
		return nil, DecodeFailed, err
	}
	// the first byte holds the encoder's initial state
	return c.out[1:], cost, nil
}

// DecodeLSF decodes the payload symbols of an LSF frame. A CRC mismatch is
// reported as ErrBadCRC together with the decoded LSF.
func (c *FrameCodec) DecodeLSF(pld []Symbol) (LSF, uint32, error) {
	b, cost, err := c.decode(pld, LSFPuncturePattern, 0)
	if err != nil {
		return LSF{}, cost, err
	}
	lsf := NewLSFFromBytes(b[:LSFLen])
	if !lsf.CheckCRC() {
		return lsf, cost, fmt.Errorf("LSF: %w: %04x", ErrBadCRC, CRC(lsf.ToBytes()))
	}
	return lsf, cost, nil
}

// DecodePacketFrame decodes the payload symbols of a packet frame.
func (c *FrameCodec) DecodePacketFrame(pld []Symbol) (PacketFrame, uint32, error) {
	var f PacketFrame
	b, cost, err := c.decode(pld, PacketPuncturePattern, 0)
	if err != nil {
		return f, cost, err
	}
	copy(f.Data[:], b[:PacketChunkLen])
	meta := b[PacketChunkLen]
	f.Last = meta&packetEOFBit != 0
	// If Last is true, this value is the byte count in the frame,
	// otherwise it's the frame number
	f.Counter = int(meta>>2) & 0x1F
	return f, cost, nil
}

// DecodeStreamFrame decodes the payload symbols of a stream frame. The LICH
// soft bits are returned as received.
func (c *FrameCodec) DecodeStreamFrame(pld []Symbol) (StreamFrame, uint32, error) {
	var f StreamFrame
	softBit, err := softPayload(pld)
	if err != nil {
		return f, DecodeFailed, err
	}
	copy(f.LICH[:], softBit[:LICHBits])
	cost, err := c.vd.DecodePunctured(c.out[:], softBit[LICHBits:], StreamPuncturePattern)
	if err != nil {
		return f, DecodeFailed, err
	}
	b := c.out[1:]
	fn := binary.BigEndian.Uint16(b[:2])
	f.Last = fn&streamEOSBit != 0
	f.FrameNumber = fn & maxStreamFN
	copy(f.Payload[:], b[2:StreamFrameLen])
	return f, cost, nil
}
