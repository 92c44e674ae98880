package m17

import (
	"errors"
	"fmt"
	"math"
)

const (
	// ViterbiHistoryLen is the number of trellis steps a decoder can hold,
	// enough for a whole unpunctured LSF.
	ViterbiHistoryLen = 244
	// MaxDecodeSoftBits is the longest input Decode accepts.
	MaxDecodeSoftBits = 2 * ViterbiHistoryLen

	// DecodeFailed is the cost reported when nothing was decoded.
	DecodeFailed = uint32(math.MaxUint32)

	// initial metric for every state but 0; the encoder always starts flushed
	unreachableMetric = uint32(0x3FFFFFFF)
	// branch metric of the exact opposite of a pair of soft bits
	maxBranchMetric = 2 * uint32(SoftOne)
)

var (
	ErrCapacityExceeded = errors.New("input exceeds Viterbi history capacity")
	ErrOddLength        = errors.New("soft bit count must be even")
	ErrShortBuffer      = errors.New("output buffer too short")
)

// ViterbiDecoder is a soft-decision decoder for the M17 K=5 rate 1/2
// convolutional code. A decoder holds one decode in flight; use one
// instance per goroutine (see DecoderPool).
type ViterbiDecoder struct {
	history [ViterbiHistoryLen]uint16
	metrics [2][ConvolutionStates]uint32
	prev    int // index into metrics of the authoritative buffer

	expanded [MaxDecodeSoftBits]SoftBit // scratch for DecodePunctured
}

func NewViterbiDecoder() *ViterbiDecoder {
	v := &ViterbiDecoder{}
	v.Reset()
	return v
}

// DecodedLen returns the number of bytes Decode writes for softBits input
// soft bits. The first byte holds the encoder history bits, the decoded data
// starts at the second.
func DecodedLen(softBits int) int {
	return (softBits/2+ConvolutionK-1)/8 + 1
}

// Reset the decoder state.
func (v *ViterbiDecoder) Reset() {
	clear(v.history[:])
	prev := &v.metrics[v.prev]
	for i := range prev {
		prev[i] = unreachableMetric
	}
	// only state 0 is valid at start
	prev[0] = 0
	// the other buffer is overwritten by the first step
}

// Decode unpunctured convolutionally encoded data. It returns the minimum
// path metric, 0 for an exact match with a valid code sequence.
func (v *ViterbiDecoder) Decode(out []byte, in []SoftBit) (uint32, error) {
	if len(in) > MaxDecodeSoftBits {
		return DecodeFailed, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, len(in), MaxDecodeSoftBits)
	}
	if len(in)%2 != 0 {
		return DecodeFailed, fmt.Errorf("%w: %d", ErrOddLength, len(in))
	}
	if len(out) < DecodedLen(len(in)) {
		return DecodeFailed, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, DecodedLen(len(in)), len(out))
	}

	v.Reset()

	pos := 0
	for i := 0; i < len(in); i += 2 {
		// can't fail, length was checked above
		_ = v.DecodeStep(in[i], in[i+1], pos)
		pos++
	}

	return v.Chainback(out, pos, len(in)/2), nil
}

// DecodeStep decodes one bit and updates the trellis.
//
// s0, s1	soft bits of one symbol
// pos		step position in history
func (v *ViterbiDecoder) DecodeStep(s0, s1 SoftBit, pos int) error {
	if pos < 0 || pos >= ViterbiHistoryLen {
		return fmt.Errorf("%w: step %d", ErrCapacityExceeded, pos)
	}
	prev := &v.metrics[v.prev]
	curr := &v.metrics[v.prev^1]
	var decisions uint16

	for i := 0; i < ConvolutionStates/2; i++ {
		bm0 := QAbsDiff(trellis[i][0], s0) + QAbsDiff(trellis[i][1], s1)
		bm1 := maxBranchMetric - bm0

		m0 := prev[i] + bm0
		m1 := prev[i+ConvolutionStates/2] + bm1

		m2 := prev[i] + bm1
		m3 := prev[i+ConvolutionStates/2] + bm0

		i0 := 2 * i
		i1 := i0 + 1

		// ties go to the higher predecessor
		if m0 >= m1 {
			decisions |= 1 << i0
			curr[i0] = m1
		} else {
			curr[i0] = m0
		}

		if m2 >= m3 {
			decisions |= 1 << i1
			curr[i1] = m3
		} else {
			curr[i1] = m2
		}
	}
	v.history[pos] = decisions

	//swap
	v.prev ^= 1
	return nil
}

// chainState is the traceback shift register. Its top nibble is the trellis
// state at the current step; decisions are shifted in at the top.
type chainState uint8

func (s chainState) state() uint16 {
	return uint16(s >> 4)
}

func (s chainState) push(bit uint16) chainState {
	s >>= 1
	if bit != 0 {
		s |= 0x80
	}
	return s
}

// Chainback walks the history back from pos and writes the decoded bits to
// out, MSB first. l is the number of trellis steps; l+K-1 bit positions are
// produced, the first K-1 from the encoder's zeroed history. Writes past
// the end of out are dropped. Returns the minimum cost over all final states.
func (v *ViterbiDecoder) Chainback(out []byte, pos int, l int) uint32 {
	if pos < 0 || pos > ViterbiHistoryLen || l < 0 {
		return DecodeFailed
	}
	var state chainState
	bitPos := l + ConvolutionK - 1

	clear(out[:min(len(out), bitPos/8+1)])

	for pos > 0 {
		bitPos--
		pos--
		bit := (v.history[pos] >> state.state()) & 1
		state = state.push(bit)
		if bit != 0 && bitPos >= 0 && bitPos/8 < len(out) {
			out[bitPos/8] |= 1 << (7 - (bitPos % 8))
		}
	}

	return v.cost()
}

// cost returns the minimum accumulated path metric.
func (v *ViterbiDecoder) cost() uint32 {
	prev := &v.metrics[v.prev]
	cost := prev[0]
	for _, m := range prev[1:] {
		if m < cost {
			cost = m
		}
	}
	return cost
}
