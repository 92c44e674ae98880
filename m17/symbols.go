package m17

import "math"

const (
	SymbolsPerSyncword = 8   //symbols per syncword
	SymbolsPerPayload  = 184 //symbols per payload in a frame
	SymbolsPerFrame    = 192 //symbols per whole 40 ms frame, 40ms * 4800 = 192
	BitsPerSymbol      = 2
	BitsPerPayload     = SymbolsPerPayload * BitsPerSymbol
)

const (
	LSFSync    = uint16(0x55F7)
	StreamSync = uint16(0xFF5D)
	PacketSync = uint16(0x75FF)
	BERTSync   = uint16(0xDF55)
	EOTMarker  = uint16(0x555D)
)

// Symbol is one 4FSK symbol, nominally one of SymbolList.
type Symbol float32

var (
	// TX symbols, indexed by dibit
	SymbolMap = []Symbol{+1, +3, -1, -3}

	// symbol list (RX)
	SymbolList = []Symbol{-3, -1, +1, +3}
)

var (
	LSFSyncSymbols    = AppendSyncword(nil, LSFSync)
	StreamSyncSymbols = AppendSyncword(nil, StreamSync)
	PacketSyncSymbols = AppendSyncword(nil, PacketSync)
	BERTSyncSymbols   = AppendSyncword(nil, BERTSync)
	EOTSymbols        = AppendSyncword(nil, EOTMarker)
)

// Preamble type (0 for LSF, 1 for BERT).
type Preamble byte

const (
	LSFPreamble Preamble = iota
	BERTPreamble
)

// AppendPreamble generates symbol stream for a preamble.
func AppendPreamble(out []Symbol, typ Preamble) []Symbol {
	if typ == BERTPreamble {
		for i := 0; i < SymbolsPerFrame/2; i++ {
			out = append(out, -3.0, +3.0)
		}
	} else {
		for i := 0; i < SymbolsPerFrame/2; i++ {
			out = append(out, +3.0, -3.0)
		}
	}
	return out
}

// AppendSyncword generates the symbol stream for a syncword.
func AppendSyncword(out []Symbol, syncword uint16) []Symbol {
	for i := 0; i < SymbolsPerSyncword*2; i += 2 {
		out = append(out, SymbolMap[(syncword>>(14-i))&3])
	}
	return out
}

// AppendBits maps a full payload of type-4 bits onto symbols.
func AppendBits(out []Symbol, data *Bits) []Symbol {
	for i := 0; i < SymbolsPerPayload; i++ { //40ms * 4800 - 8 (syncword)
		d := 0
		if data[2*i+1] {
			d += 1
		}
		if data[2*i] {
			d += 2
		}
		out = append(out, SymbolMap[d])
	}
	return out
}

// AppendEOT generates the symbol stream for the End of Transmission marker.
func AppendEOT(out []Symbol) []Symbol {
	for i := 0; i < SymbolsPerFrame; i++ { //40ms * 4800 = 192
		out = append(out, EOTSymbols[i%SymbolsPerSyncword])
	}
	return out
}

// EuclNorm calculates the L2 norm between two symbol vectors of equal length.
func EuclNorm(in1, in2 []Symbol) float32 {
	var tmp float64
	for i := range in1 {
		d := float64(in1[i] - in2[i])
		tmp += d * d
	}
	return float32(math.Sqrt(tmp))
}
