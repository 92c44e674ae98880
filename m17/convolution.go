package m17

import (
	"errors"
)

const (
	ConvolutionK      = 5                         //constraint length K=5
	ConvolutionStates = (1 << (ConvolutionK - 1)) //number of states of the convolutional encoder
)

const (
	PacketModeFinalBit = 5 // use 6 bits of final byte
	LSFFinalBit        = 7 // use entire final byte
	StreamFinalBit     = 7
)

type Bit bool

func (b *Bit) Byte() byte {
	if *b {
		return 1
	}
	return 0
}
func (b *Bit) Set(by byte) {
	*b = by != 0
}

// Bits holds one frame payload worth of unpacked bits.
type Bits [BitsPerPayload]Bit

func NewBits(bs []Bit) *Bits {
	var bits Bits
	copy(bits[:], bs)
	return &bits
}

// trellis holds, for each of the 8 half-states, the ideal soft outputs of
// the encoder for input bit 0. Input bit 1 produces the complement.
//
// G1 = 1 + D^3 + D^4, G2 = 1 + D + D^2 + D^4
var trellis = [ConvolutionStates / 2][2]SoftBit{
	{SoftZero, SoftZero},
	{SoftZero, SoftOne},
	{SoftZero, SoftOne},
	{SoftZero, SoftZero},
	{SoftOne, SoftZero},
	{SoftOne, SoftOne},
	{SoftOne, SoftOne},
	{SoftOne, SoftZero},
}

// ConvolutionalEncode takes a slice of bytes and a puncture pattern and returns
// a slice of Bit with each element representing one bit in the encoded message.
// Four zero flushing bits are appended to the input.
//
// in 				Input bytes
// puncturePattern 	the puncture pattern to use, nil for none
// finalBit 		The last bit of the final byte to encode. A number between 0 and 7. (That is, the number of bits from the last byte to use minus one.)
func ConvolutionalEncode(in []byte, puncturePattern PuncturePattern, finalBit byte) ([]Bit, error) {
	if len(in) == 0 {
		return nil, errors.New("empty input not allowed")
	}
	if finalBit > 7 {
		return nil, errors.New("finalBit must be between 0 and 7")
	}
	if puncturePattern != nil && puncturePattern.Kept() == 0 {
		return nil, ErrInvalidPattern
	}
	unpackedBits := make([]byte, ConvolutionK-1, 8*len(in)+2*(ConvolutionK-1)) // leading history bits
	for i, byt := range in {
		for j := 0; j < 8; j++ {
			if i < len(in)-1 || j <= int(finalBit) {
				unpackedBits = append(unpackedBits, (byt>>(7-j))&1)
			}
		}
	}
	// tail bits
	for range ConvolutionK - 1 {
		unpackedBits = append(unpackedBits, 0)
	}

	p := 0
	ppLen := len(puncturePattern)
	out := make([]Bit, 0, 2*len(unpackedBits))
	keep := func() bool {
		k := puncturePattern == nil || bool(puncturePattern[p])
		if ppLen > 0 {
			p = (p + 1) % ppLen
		}
		return k
	}
	for i := range len(unpackedBits) - (ConvolutionK - 1) {
		g1 := (unpackedBits[i+4] + unpackedBits[i+1] + unpackedBits[i+0]) % 2
		if keep() {
			out = append(out, g1 != 0)
		}
		g2 := (unpackedBits[i+4] + unpackedBits[i+3] + unpackedBits[i+2] + unpackedBits[i+0]) % 2
		if keep() {
			out = append(out, g2 != 0)
		}
	}
	return out, nil
}
