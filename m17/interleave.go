package m17

// interleaveSequence is the quadratic permutation polynomial interleaver,
// pi(x) = (45x + 92x^2) mod 368. It is its own inverse.
var interleaveSequence = func() (seq [BitsPerPayload]uint16) {
	for x := range seq {
		seq[x] = uint16((45*x + 92*x*x) % BitsPerPayload)
	}
	return seq
}()

// Interleave payload bits.
func InterleaveBits(in *Bits) *Bits {
	var out Bits
	for i := range out {
		out[i] = in[interleaveSequence[i]]
	}
	return &out
}

// DeinterleaveSoftBits reverses InterleaveBits on a payload of soft bits.
func DeinterleaveSoftBits(in []SoftBit) []SoftBit {
	out := make([]SoftBit, BitsPerPayload)
	for i := range out {
		out[i] = in[interleaveSequence[i]]
	}
	return out
}

var randomizeSeq = []byte{
	0xD6, 0xB5, 0xE2, 0x30, 0x82, 0xFF, 0x84, 0x62, 0xBA, 0x4E,
	0x96, 0x90, 0xD8, 0x98, 0xDD, 0x5D, 0x0C, 0xC8, 0x52, 0x43,
	0x91, 0x1D, 0xF8, 0x6E, 0x68, 0x2F, 0x35, 0xDA, 0x14, 0xEA,
	0xCD, 0x76, 0x19, 0x8D, 0xD5, 0x80, 0xD1, 0x33, 0x87, 0x13,
	0x57, 0x18, 0x2D, 0x29, 0x78, 0xC3,
}

func randomizeBit(i int) bool {
	return (randomizeSeq[i/8]>>(7-(i%8)))&1 != 0
}

// RandomizeBits whitens a payload in place.
func RandomizeBits(bits *Bits) *Bits {
	for i := range bits {
		if randomizeBit(i) {
			// flip bit
			bits[i] = !bits[i]
		}
	}
	return bits
}

// DerandomizeSoftBits reverses RandomizeBits on soft bits, in place.
func DerandomizeSoftBits(softBits []SoftBit) []SoftBit {
	for i := range min(len(softBits), BitsPerPayload) {
		if randomizeBit(i) { //soft XOR. flip soft bit if "1"
			softBits[i] = SoftOne - softBits[i]
		}
	}
	return softBits
}
