package m17

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSliceSymbol(t *testing.T) {
	tests := []struct {
		name   string
		sym    Symbol
		wantB1 SoftBit
		wantB0 SoftBit
	}{
		{"+1", +1, SoftZero, SoftZero},
		{"+3", +3, SoftZero, SoftOne},
		{"-1", -1, SoftOne, SoftZero},
		{"-3", -3, SoftOne, SoftOne},
		{"midpoint", 0, SoftErasure, SoftZero},
		{"+2", +2, SoftZero, SoftErasure},
		{"-2", -2, SoftOne, SoftErasure},
		{"above +3", +5, SoftZero, SoftOne},
		{"below -3", -7, SoftOne, SoftOne},
		{"+inf", Symbol(math.Inf(1)), SoftZero, SoftOne},
		{"-inf", Symbol(math.Inf(-1)), SoftOne, SoftOne},
		{"NaN", Symbol(math.NaN()), SoftErasure, SoftErasure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b1, b0 := SliceSymbol(tt.sym)
			assert.Equal(t, tt.wantB1, b1, "b1")
			assert.Equal(t, tt.wantB0, b0, "b0")
		})
	}
}

func TestSliceSymbol_Monotonic(t *testing.T) {
	var lastB1 SoftBit = SoftOne
	for x := -4.0; x <= 4.0; x += 0.01 {
		b1, _ := SliceSymbol(Symbol(x))
		if b1 > lastB1 {
			t.Fatalf("b1 not monotonic at %f: %d > %d", x, b1, lastB1)
		}
		lastB1 = b1
	}
}

func TestSliceSymbols(t *testing.T) {
	got := SliceSymbols([]Symbol{+3, -1})
	assert.Equal(t, []SoftBit{SoftZero, SoftOne, SoftOne, SoftZero}, got)
}

func TestQAbsDiff(t *testing.T) {
	assert.Equal(t, uint32(0xFFFF), QAbsDiff(SoftZero, SoftOne))
	assert.Equal(t, uint32(0xFFFF), QAbsDiff(SoftOne, SoftZero))
	assert.Equal(t, uint32(0x7FFF), QAbsDiff(SoftErasure, SoftZero))
	assert.Equal(t, uint32(0x8000), QAbsDiff(SoftErasure, SoftOne))
	assert.Equal(t, uint32(0), QAbsDiff(1234, 1234))
}

func TestSoftBit_HardBit(t *testing.T) {
	assert.Equal(t, Bit(false), SoftZero.HardBit())
	assert.Equal(t, Bit(false), SoftErasure.HardBit())
	assert.Equal(t, Bit(true), (SoftErasure + 1).HardBit())
	assert.Equal(t, Bit(true), SoftOne.HardBit())
	assert.Equal(t, []SoftBit{SoftOne, SoftZero}, ToSoftBits([]Bit{true, false}))
}
