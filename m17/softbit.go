package m17

import "math"

// SoftBit is a confidence value for one coded bit. SoftZero and SoftOne are
// the two ideal values, anything in between is linearly interpolated.
type SoftBit uint16

const (
	// SoftZero represents a confident 0 bit
	SoftZero SoftBit = 0x0000
	// SoftOne represents a confident 1 bit
	SoftOne SoftBit = 0xFFFF
	// SoftErasure carries no information. Used in place of punctured bits.
	SoftErasure SoftBit = 0x7FFF
)

// QAbsDiff returns the absolute difference between two soft bits.
func QAbsDiff(v1, v2 SoftBit) uint32 {
	if v2 > v1 {
		return uint32(v2 - v1)
	}
	return uint32(v1 - v2)
}

// ToSoftBits converts hard bits to ideal soft bits.
func ToSoftBits(bits []Bit) []SoftBit {
	out := make([]SoftBit, len(bits))
	for i, b := range bits {
		if b {
			out[i] = SoftOne
		}
	}
	return out
}

// HardBit returns the hard decision for a soft bit.
func (s SoftBit) HardBit() Bit {
	return s > SoftErasure
}

// softRamp maps num/den in [0, 1] onto [SoftZero, SoftOne], truncating toward
// zero.
func softRamp(num, den float64) SoftBit {
	v := num / den * float64(SoftOne)
	switch {
	case v >= float64(SoftOne):
		return SoftOne
	case v > 0:
		return SoftBit(v)
	default:
		// also catches NaN
		return SoftZero
	}
}

// SliceSymbol converts one received symbol, normalized so the nominal levels
// are SymbolList, into the soft values of the two bits it carries. b1 is the
// more significant bit of the dibit.
func SliceSymbol(sym Symbol) (b1, b0 SoftBit) {
	x := float64(sym)
	l0, l1, l2, l3 := float64(SymbolList[0]), float64(SymbolList[1]), float64(SymbolList[2]), float64(SymbolList[3])

	if math.IsNaN(x) {
		return SoftErasure, SoftErasure
	}

	//bit 0
	switch {
	case x >= l3:
		b0 = SoftOne
	case x >= l2:
		b0 = softRamp(x-l2, l3-l2)
	case x >= l1:
		b0 = SoftZero
	case x >= l0:
		b0 = softRamp(l1-x, l1-l0)
	default:
		b0 = SoftOne
	}

	//bit 1
	switch {
	case x >= l2:
		b1 = SoftZero
	case x >= l1:
		b1 = softRamp(l2-x, l2-l1)
	default:
		b1 = SoftOne
	}
	return b1, b0
}

// SliceSymbols slices a payload into soft dibits, two per symbol.
func SliceSymbols(pld []Symbol) []SoftBit {
	softBits := make([]SoftBit, 2*len(pld))
	for i, sym := range pld {
		softBits[2*i], softBits[2*i+1] = SliceSymbol(sym)
	}
	return softBits
}
