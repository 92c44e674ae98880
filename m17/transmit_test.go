package m17

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodePacket(t *testing.T) {
	lsf := NewLSF(n1adj, n0call, LSFTypePacket, 0, 0)
	tests := []struct {
		name       string
		len        int
		wantFrames int
		wantErr    bool
	}{
		{"empty", 0, 0, true},
		{"short", 14, 1, false},
		{"one frame", PacketChunkLen - CRCLen, 1, false},
		{"spill", PacketChunkLen - 1, 2, false},
		{"max", MaxPacketData, MaxPacketFrames, false},
		{"too long", MaxPacketData + 1, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodePacket(lsf, make([]byte, tt.len))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			// preamble, LSF, frames, EOT
			assert.Len(t, got, (tt.wantFrames+3)*SymbolsPerFrame)
			assert.Equal(t, LSFSyncSymbols, got[SymbolsPerFrame:SymbolsPerFrame+SymbolsPerSyncword])
			pkt := 2 * SymbolsPerFrame
			assert.Equal(t, PacketSyncSymbols, got[pkt:pkt+SymbolsPerSyncword])
			assert.Equal(t, EOTSymbols, got[len(got)-SymbolsPerSyncword:])
		})
	}
}

func TestEncodePacket_StreamLSF(t *testing.T) {
	lsf := NewLSF(n1adj, n0call, LSFTypeStream, LSFDataTypeVoice, 0)
	_, err := EncodePacket(lsf, []byte("hi"))
	assert.Error(t, err)
}

func TestEncodeStream(t *testing.T) {
	lsf := NewLSF(n1adj, n0call, LSFTypeStream, LSFDataTypeVoice, 0)
	got, err := EncodeStream(lsf, make([]StreamFrame, 4))
	require.NoError(t, err)
	assert.Len(t, got, (4+3)*SymbolsPerFrame)
	str := 2 * SymbolsPerFrame
	assert.Equal(t, StreamSyncSymbols, got[str:str+SymbolsPerSyncword])

	_, err = EncodeStream(lsf, nil)
	assert.Error(t, err)
	_, err = EncodeStream(NewLSF(n1adj, n0call, LSFTypePacket, 0, 0), make([]StreamFrame, 1))
	assert.Error(t, err)
}

func TestAppendPreamble(t *testing.T) {
	got := AppendPreamble(nil, LSFPreamble)
	assert.Len(t, got, SymbolsPerFrame)
	assert.Equal(t, []Symbol{+3, -3, +3, -3}, got[:4])
	got = AppendPreamble(nil, BERTPreamble)
	assert.Equal(t, []Symbol{-3, +3, -3, +3}, got[:4])
}

func TestSyncSymbols(t *testing.T) {
	assert.Equal(t, []Symbol{+3, +3, +3, +3, -3, -3, +3, -3}, LSFSyncSymbols)
	assert.Equal(t, []Symbol{-3, -3, -3, -3, +3, +3, -3, +3}, StreamSyncSymbols)
	assert.Equal(t, []Symbol{+3, -3, +3, +3, -3, -3, -3, -3}, PacketSyncSymbols)
	assert.Equal(t, []Symbol{-3, +3, -3, -3, +3, +3, +3, +3}, BERTSyncSymbols)
	assert.InDelta(t, 0, EuclNorm(LSFSyncSymbols, LSFSyncSymbols), 1e-6)
	assert.InDelta(t, 12, EuclNorm(LSFSyncSymbols, EOTSymbols), 1e-6)
}
