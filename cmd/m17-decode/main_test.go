package main

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/icza/gog"
	"github.com/jancona/m17codec/m17"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dst = [6]byte{0, 0, 1, 138, 146, 174}
	src = [6]byte{0, 0, 75, 19, 209, 6}
)

func packetSymbols(t *testing.T, data string) []m17.Symbol {
	lsf := m17.NewLSF(dst, src, m17.LSFTypePacket, 0, 0)
	return gog.Must(m17.EncodePacket(lsf, []byte(data)))
}

func TestDecode_Symbols(t *testing.T) {
	var in, out bytes.Buffer
	require.NoError(t, binary.Write(&in, binary.LittleEndian, packetSymbols(t, "Hello from me!")))

	require.NoError(t, decode(&in, &out, defaultConfig(), nil))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "LSF dst=0000018A92AE src=00004B13D106 type=0000 can=0 cost="), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "PKT dst=0000018A92AE src=00004B13D106 len=14 cost="), lines[1])
	assert.True(t, strings.HasSuffix(lines[1], `data="Hello from me!"`), lines[1])
}

func TestDecode_Baseband(t *testing.T) {
	syms := packetSymbols(t, "baseband")
	var in, out bytes.Buffer
	for _, s := range m17.NewModulator(false).Transform(syms) {
		in.WriteByte(byte(s))
	}

	cfg := defaultConfig()
	cfg.Input.Format = formatRaw
	require.NoError(t, decode(&in, &out, cfg, nil))
	assert.Contains(t, out.String(), `data="baseband"`)
}

// zeroReader is an input that never ends.
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestBasebandSymbols_Done(t *testing.T) {
	done := make(chan struct{})
	syms, err := basebandSymbols(zeroReader{}, defaultConfig().Input, done)
	require.NoError(t, err)
	<-syms
	close(done)

	closed := make(chan struct{})
	go func() {
		for range syms {
		}
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("symbol channel not closed after done")
	}
}

func TestDecode_BasebandHandlerError(t *testing.T) {
	var pkt bytes.Buffer
	for _, s := range m17.NewModulator(false).Transform(packetSymbols(t, "baseband")) {
		pkt.WriteByte(byte(s))
	}
	cfg := defaultConfig()
	cfg.Input.Format = formatRaw

	result := make(chan error, 1)
	go func() {
		result <- decode(io.MultiReader(&pkt, zeroReader{}), failWriter{}, cfg, nil)
	}()
	select {
	case err := <-result:
		assert.ErrorContains(t, err, "disk full")
	case <-time.After(10 * time.Second):
		t.Fatal("decode did not return after a write error")
	}
}

func TestDecode_Metrics(t *testing.T) {
	var in, out bytes.Buffer
	require.NoError(t, binary.Write(&in, binary.LittleEndian, packetSymbols(t, "counted")))
	// a second packet with its first frame missing
	syms := packetSymbols(t, string(make([]byte, 60)))
	syms = append(syms[:2*m17.SymbolsPerFrame], syms[3*m17.SymbolsPerFrame:]...)
	require.NoError(t, binary.Write(&in, binary.LittleEndian, syms))

	reg := prometheus.NewRegistry()
	require.NoError(t, decode(&in, &out, defaultConfig(), newDecoderMetrics(reg)))

	families, err := reg.Gather()
	require.NoError(t, err)
	counts := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += "," + l.GetName() + "=" + l.GetValue()
			}
			if m.GetCounter() != nil {
				counts[key] = m.GetCounter().GetValue()
			}
			if m.GetHistogram() != nil {
				counts[key] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, 2.0, counts["m17_frames_total,result=ok,type=lsf"])
	assert.Equal(t, 1.0, counts["m17_frames_total,result=ok,type=packet"])
	assert.Equal(t, 1.0, counts["m17_frames_total,result=order,type=packet"])
	assert.Equal(t, 1.0, counts["m17_frames_total,result=crc,type=packet"])
	assert.Equal(t, 1.0, counts["m17_packets_total,result=ok"])
	assert.Equal(t, 1.0, counts["m17_packets_total,result=crc"])
	assert.Equal(t, 1.0, counts["m17_viterbi_cost_bits,type=packet"])
	assert.Equal(t, 2.0, counts["m17_viterbi_cost_bits,type=lsf"])
}

func TestFormatFrame(t *testing.T) {
	lsf := m17.NewLSF(dst, src, m17.LSFTypeStream, m17.LSFDataTypeVoice, 3)
	f := m17.Frame{
		Type: m17.FrameStream,
		Cost: uint32(m17.SoftOne) / 2,
		LSF:  lsf,
		Stream: m17.StreamFrame{
			FrameNumber: 7,
			Last:        true,
			Payload:     [m17.StreamPayloadLen]byte{0xAB},
		},
	}
	assert.Equal(t, "STR fn=7 last=true payload=ab000000000000000000000000000000 cost=0.5", formatFrame(f))

	f.Type = m17.FrameLSF
	assert.Equal(t, "LSF dst=0000018A92AE src=00004B13D106 type=0185 can=3 cost=0.5", formatFrame(f))
}

func TestDropReason(t *testing.T) {
	assert.Equal(t, "cost", dropReason(m17.ErrCostExceeded))
	assert.Equal(t, "no_lsf", dropReason(m17.ErrNoLSF))
	assert.Equal(t, "error", dropReason(assert.AnError))
}
