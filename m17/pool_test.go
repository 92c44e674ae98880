package m17

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecoderPool_DecodeBatch(t *testing.T) {
	const n = 64
	codewords := make([][]SoftBit, n)
	want := make([][]byte, n)
	for i := range codewords {
		data := []byte(fmt.Sprintf("frame %02d of a batch of many", i))[:PacketFrameLen]
		data[len(data)-1] &= 0xFC
		enc, err := ConvolutionalEncode(data, PacketPuncturePattern, PacketModeFinalBit)
		require.NoError(t, err)
		codewords[i] = ToSoftBits(enc)
		want[i] = data
	}
	// one broken codeword doesn't affect the others
	codewords[7] = make([]SoftBit, MaxDecodeSoftBits+1)

	p := NewDecoderPool()
	results := p.DecodeBatch(codewords, PacketPuncturePattern)
	require.Len(t, results, n)
	for i, r := range results {
		if i == 7 {
			assert.ErrorIs(t, r.Err, ErrCapacityExceeded)
			assert.Equal(t, DecodeFailed, r.Cost)
			assert.Nil(t, r.Data)
			continue
		}
		require.NoError(t, r.Err, "codeword %d", i)
		assert.Equal(t, want[i], r.Data[1:PacketFrameLen+1], "codeword %d", i)
		assert.Less(t, r.Cost, uint32(SoftOne))
	}
}

func TestDecoderPool_Unpunctured(t *testing.T) {
	enc, err := ConvolutionalEncode([]byte("pool"), nil, 7)
	require.NoError(t, err)
	results := NewDecoderPool().DecodeBatch([][]SoftBit{ToSoftBits(enc), ToSoftBits(enc)}, nil)
	for _, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, uint32(0), r.Cost)
		assert.Equal(t, []byte("pool"), r.Data[1:5])
	}
	assert.Empty(t, NewDecoderPool().DecodeBatch(nil, nil))
}

func TestDecoderPool_GetPut(t *testing.T) {
	p := NewDecoderPool()
	v := p.Get()
	require.NotNil(t, v)
	p.Put(v)
}
