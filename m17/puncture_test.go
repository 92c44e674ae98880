package m17

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var alternatingPuncturePattern = PuncturePattern{true, false, true, false, true, false, true, false}

// omittedOnes counts the coded 1 bits the pattern drops.
func omittedOnes(t require.TestingT, data []byte, pattern PuncturePattern, finalBit byte) uint32 {
	enc, err := ConvolutionalEncode(data, nil, finalBit)
	require.NoError(t, err)
	var n uint32
	for i, b := range enc {
		if b && !pattern[i%len(pattern)] {
			n++
		}
	}
	return n
}

func TestPuncturePattern_Kept(t *testing.T) {
	assert.Equal(t, 46, LSFPuncturePattern.Kept())
	assert.Len(t, LSFPuncturePattern, 61)
	assert.Equal(t, 11, StreamPuncturePattern.Kept())
	assert.Equal(t, 7, PacketPuncturePattern.Kept())
	assert.Equal(t, 4, alternatingPuncturePattern.Kept())
	assert.Equal(t, 0, PuncturePattern{false}.Kept())
}

func TestDecodePunctured_RoundTrip(t *testing.T) {
	tests := []struct {
		name        string
		pattern     PuncturePattern
		length      int
		finalBit    byte
		wantPunct   int
		partialLast bool
	}{
		{"LSF", LSFPuncturePattern, LSFLen, LSFFinalBit, 368, false},
		{"stream", StreamPuncturePattern, StreamFrameLen, StreamFinalBit, 272, false},
		{"packet", PacketPuncturePattern, PacketFrameLen, PacketModeFinalBit, 368, true},
		{"alternating", alternatingPuncturePattern, 5, 7, 44, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rapid.Check(t, func(rt *rapid.T) {
				data := rapid.SliceOfN(rapid.Byte(), tt.length, tt.length).Draw(rt, "data")
				if tt.partialLast {
					// only the top 6 bits of the last byte are sent
					data[len(data)-1] &= 0xFC
				}
				enc, err := ConvolutionalEncode(data, tt.pattern, tt.finalBit)
				require.NoError(rt, err)
				require.Len(rt, enc, tt.wantPunct)

				v := NewViterbiDecoder()
				out := make([]byte, DecodedLen(MaxDecodeSoftBits))
				cost, err := v.DecodePunctured(out, ToSoftBits(enc), tt.pattern)
				require.NoError(rt, err)
				assert.Equal(rt, data, out[1:len(data)+1])
				// an erasure is half a step closer to 0 than to 1
				assert.Equal(rt, omittedOnes(rt, data, tt.pattern, tt.finalBit), cost)
			})
		})
	}
}

func TestDecodePunctured_ZeroData(t *testing.T) {
	for _, p := range []PuncturePattern{LSFPuncturePattern, StreamPuncturePattern, PacketPuncturePattern, alternatingPuncturePattern} {
		enc, err := ConvolutionalEncode(make([]byte, 8), p, 7)
		require.NoError(t, err)
		out := make([]byte, DecodedLen(MaxDecodeSoftBits))
		cost, err := NewViterbiDecoder().DecodePunctured(out, ToSoftBits(enc), p)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), cost)
		assert.Equal(t, make([]byte, 9), out[:9])
	}
}

func TestDecodePunctured_Errors(t *testing.T) {
	v := NewViterbiDecoder()
	out := make([]byte, DecodedLen(MaxDecodeSoftBits))

	cost, err := v.DecodePunctured(out, make([]SoftBit, 8), PuncturePattern{false, false})
	assert.ErrorIs(t, err, ErrInvalidPattern)
	assert.Equal(t, DecodeFailed, cost)

	// 430 bits of P3 expand to 491
	cost, err = v.DecodePunctured(out, make([]SoftBit, 430), PacketPuncturePattern)
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, DecodeFailed, cost)

	cost, err = v.DecodePunctured(make([]byte, 4), make([]SoftBit, 64), PacketPuncturePattern)
	assert.ErrorIs(t, err, ErrShortBuffer)
	assert.Equal(t, DecodeFailed, cost)
}

func TestPuncturePattern_depuncture(t *testing.T) {
	dst := make([]SoftBit, 16)
	n, err := PuncturePattern{true, true, false}.depuncture(dst, []SoftBit{1, 2, 3, 4, 5})
	require.NoError(t, err)
	// 1 2 _ 4 5 _ ... padded to an even length
	assert.Equal(t, 8, n)
	assert.Equal(t, []SoftBit{1, 2, SoftErasure, 3, 4, SoftErasure, 5, SoftErasure}, dst[:n])
}
