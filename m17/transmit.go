package m17

import (
	"fmt"
	"log"
)

// EncodePacket generates the complete symbol stream of a packet
// transmission: preamble, LSF, one frame per 25 bytes of data plus CRC,
// and EOT.
func EncodePacket(lsf LSF, data []byte) ([]Symbol, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty packet")
	}
	if len(data) > MaxPacketData {
		return nil, fmt.Errorf("packet too long: %d > %d bytes", len(data), MaxPacketData)
	}
	if lsf.LSFType() != LSFTypePacket {
		return nil, fmt.Errorf("LSF type must be packet")
	}
	full := AppendCRC(append(make([]byte, 0, len(data)+CRCLen), data...))
	frames := (len(full) + PacketChunkLen - 1) / PacketChunkLen

	out := make([]Symbol, 0, (frames+3)*SymbolsPerFrame)
	out = AppendPreamble(out, LSFPreamble)
	out = AppendSyncword(out, LSFSync)
	syms, err := EncodeLSFFrame(lsf)
	if err != nil {
		return nil, err
	}
	out = append(out, syms...)

	for fn := 0; len(full) > 0; fn++ {
		var f PacketFrame
		n := copy(f.Data[:], full)
		full = full[n:]
		if len(full) == 0 {
			f.Last = true
			f.Counter = n
		} else {
			f.Counter = fn
		}
		log.Printf("[DEBUG] Packet frame %d: %x, last: %v, counter: %d", fn, f.Data, f.Last, f.Counter)
		out = AppendSyncword(out, PacketSync)
		syms, err = EncodePacketFrame(f)
		if err != nil {
			return nil, err
		}
		out = append(out, syms...)
	}
	return AppendEOT(out), nil
}

// EncodeStream generates the complete symbol stream of a stream
// transmission. Frame numbers are assigned in order and the last frame is
// flagged as such.
func EncodeStream(lsf LSF, frames []StreamFrame) ([]Symbol, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no stream frames")
	}
	if lsf.LSFType() != LSFTypeStream {
		return nil, fmt.Errorf("LSF type must be stream")
	}
	out := make([]Symbol, 0, (len(frames)+3)*SymbolsPerFrame)
	out = AppendPreamble(out, LSFPreamble)
	out = AppendSyncword(out, LSFSync)
	syms, err := EncodeLSFFrame(lsf)
	if err != nil {
		return nil, err
	}
	out = append(out, syms...)

	for i, f := range frames {
		f.FrameNumber = uint16(i) & maxStreamFN
		f.Last = i == len(frames)-1
		out = AppendSyncword(out, StreamSync)
		syms, err = EncodeStreamFrame(f)
		if err != nil {
			return nil, err
		}
		out = append(out, syms...)
	}
	return AppendEOT(out), nil
}
