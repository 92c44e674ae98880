package m17

import (
	"errors"
	"fmt"
)

var ErrInvalidPattern = errors.New("puncture pattern keeps no bits")

// PuncturePattern is a cyclic list of flags, true where a coded bit is
// transmitted.
type PuncturePattern []Bit

// P1, link setup frames
var LSFPuncturePattern = PuncturePattern{
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true,
}

// P2, stream frames
var StreamPuncturePattern = PuncturePattern{true, true, true, true, true, true, true, true, true, true, true, false}

// P3, packet frames
var PacketPuncturePattern = PuncturePattern{true, true, true, true, true, true, true, false}

// Kept returns the number of transmitted positions in one period.
func (p PuncturePattern) Kept() int {
	n := 0
	for _, b := range p {
		if b {
			n++
		}
	}
	return n
}

// depuncture expands in into dst, inserting an erasure wherever the pattern
// omits a bit, and returns the expanded length. An odd length is padded with
// one erasure so the result holds whole symbols.
func (p PuncturePattern) depuncture(dst []SoftBit, in []SoftBit) (int, error) {
	if p.Kept() == 0 {
		return 0, ErrInvalidPattern
	}
	i := 0 //bits read from the input message
	u := 0 //bits count - unpunctured message
	for pi := 0; i < len(in); pi = (pi + 1) % len(p) {
		if u >= len(dst) {
			return u, fmt.Errorf("%w: depunctured length > %d", ErrCapacityExceeded, len(dst))
		}
		if p[pi] {
			dst[u] = in[i]
			i++
		} else {
			dst[u] = SoftErasure
		}
		u++
	}
	if u%2 != 0 {
		if u >= len(dst) {
			return u, fmt.Errorf("%w: depunctured length > %d", ErrCapacityExceeded, len(dst))
		}
		dst[u] = SoftErasure
		u++
	}
	return u, nil
}

// DecodePunctured decodes punctured convolutionally encoded data. The cost of
// the inserted erasures is removed from the returned cost, so costs of
// frames with different puncturing are comparable.
func (v *ViterbiDecoder) DecodePunctured(out []byte, in []SoftBit, pattern PuncturePattern) (uint32, error) {
	if len(in) > MaxDecodeSoftBits {
		return DecodeFailed, fmt.Errorf("%w: %d > %d", ErrCapacityExceeded, len(in), MaxDecodeSoftBits)
	}

	u, err := pattern.depuncture(v.expanded[:], in)
	if err != nil {
		return DecodeFailed, err
	}

	cost, err := v.Decode(out, v.expanded[:u])
	if err != nil {
		return DecodeFailed, err
	}
	return cost - uint32(u-len(in))*uint32(SoftErasure), nil
}
