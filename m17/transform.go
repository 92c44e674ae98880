package m17

import (
	"fmt"
	"math"

	"golang.org/x/exp/constraints"
)

const (
	//CC1200 User's Guide, p. 24
	//0xAD is `DEVIATION_M`, 2097152=2^21
	//+1.0 is the symbol for +0.8kHz
	//40.0e3 is F_TCXO in kHz
	//129 is `CFM_RX_DATA_OUT` register value at max. F_DEV
	RXSymbolScalingCoeff = (1.0 / (0.8 / (40.0e3 / 2097152 * 0xAD) * 129.0))
	//+0.8kHz is the deviation for symbol +1
	//64 is `CFM_TX_DATA_IN` register value for max. F_DEV
	TXSymbolScalingCoeff = (0.8 / ((40.0e3 / 2097152) * 0xAD) * 64.0)

	SamplesPerSymbol = 5
)

var transmitGain = float32(math.Sqrt(SamplesPerSymbol))

// alpha=0.5, span=8, sps=5, gain=sqrt(sps)
var RRCTaps5 = []float32{
	-0.004519384154389,
	-0.002744505321971,
	0.002187793653660,
	0.006734308458208,
	0.006823188093192,
	0.001355815246317,
	-0.005994389201970,
	-0.008697733303330,
	-0.002410076268276,
	0.010204314627992,
	0.018981413448435,
	0.011949415510291,
	-0.015182045838927,
	-0.051615756197679,
	-0.072094910038768,
	-0.047453533621088,
	0.039168634270669,
	0.179164496628150,
	0.336694345124862,
	0.461088271869920,
	0.508340710642860,
	0.461088271869920,
	0.336694345124862,
	0.179164496628150,
	0.039168634270669,
	-0.047453533621088,
	-0.072094910038768,
	-0.051615756197679,
	-0.015182045838927,
	0.011949415510291,
	0.018981413448435,
	0.010204314627992,
	-0.002410076268276,
	-0.008697733303330,
	-0.005994389201970,
	0.001355815246317,
	0.006823188093192,
	0.006734308458208,
	0.002187793653660,
	-0.002744505321971,
	-0.004519384154389,
}

type Number interface {
	constraints.Integer | constraints.Float
}

// Generic transformation. Each value read from sink is transformed into
// zero or more values written to Source. Source is closed when sink is.
type Transform[I any, O any] struct {
	sink      <-chan I
	source    chan O
	transform func(I) []O
}

func NewTransform[I any, O any](sink <-chan I, transform func(I) []O, sourceSize int) Transform[I, O] {
	ret := Transform[I, O]{
		sink:      sink,
		source:    make(chan O, sourceSize),
		transform: transform,
	}
	go ret.handle()
	return ret
}

func (t *Transform[I, O]) Source() <-chan O {
	return t.source
}

func (t *Transform[I, O]) handle() {
	for sample := range t.sink {
		for _, s := range t.transform(sample) {
			t.source <- s
		}
	}
	close(t.source)
}

// Filter DC from int8 samples by subtracting a moving average
type DCFilter struct {
	Transform[int8, int8]
	averageN  int
	movingAvg int8
}

func NewDCFilter(sink <-chan int8, averageN int) (*DCFilter, error) {
	if averageN < 1 {
		return nil, fmt.Errorf("averageN must be greater than zero")
	}
	ret := &DCFilter{
		averageN: averageN,
	}
	ret.Transform = NewTransform(sink, ret.dcFilter, 0)
	return ret, nil
}

func (t *DCFilter) dcFilter(sample int8) []int8 {
	t.movingAvg = int8((int(t.movingAvg)*(t.averageN-1) + int(sample)) / t.averageN)
	return []int8{sample - t.movingAvg}
}

// scale samples by a factor
type Scaler[T Number] struct {
	Transform[T, T]
	factor T
}

func NewScaler[T Number](sink <-chan T, factor T) *Scaler[T] {
	ret := &Scaler[T]{
		factor: factor,
	}
	ret.Transform = NewTransform(sink, ret.scale, 0)
	return ret
}

func (t *Scaler[T]) scale(sample T) []T {
	return []T{sample * t.factor}
}

// SampleToSymbol turns int8 baseband samples into symbols by RRC filtering
// them. One symbol is produced per sample; downsample to get one per
// symbol period.
type SampleToSymbol struct {
	Transform[int8, Symbol]
	fltBuff      []float32 // delay line, oldest first; as long as rrcTaps
	rrcTaps      []float32
	scalingCoeff float32
}

func NewSampleToSymbol(sink <-chan int8, rrcTaps []float32, scalingCoeff float32) *SampleToSymbol {
	ret := &SampleToSymbol{
		fltBuff:      make([]float32, len(rrcTaps)),
		rrcTaps:      rrcTaps,
		scalingCoeff: scalingCoeff,
	}
	ret.Transform = NewTransform(sink, ret.transform, 0)
	return ret
}

func (t *SampleToSymbol) transform(sample int8) []Symbol {
	copy(t.fltBuff, t.fltBuff[1:])
	t.fltBuff[len(t.fltBuff)-1] = float32(sample)

	var symbol float32
	for i, f := range t.fltBuff {
		symbol += t.rrcTaps[i] * f
	}
	return []Symbol{Symbol(symbol * t.scalingCoeff)}
}

// SymbolToSample turns symbols into int8 baseband samples by upsampling
// them and RRC filtering the result.
type SymbolToSample struct {
	last             []float32 // delay line, oldest first; as long as rrcTaps
	rrcTaps          []float32
	scalingCoeff     float32
	phaseInvert      bool
	samplesPerSymbol int
}

func NewSymbolToSample(rrcTaps []float32, scalingCoeff float32, phaseInvert bool, samplesPerSymbol int) *SymbolToSample {
	return &SymbolToSample{
		last:             make([]float32, len(rrcTaps)),
		rrcTaps:          rrcTaps,
		scalingCoeff:     scalingCoeff,
		phaseInvert:      phaseInvert,
		samplesPerSymbol: samplesPerSymbol,
	}
}

func (t *SymbolToSample) Transform(symbols []Symbol) []int8 {
	ret := make([]int8, len(symbols)*t.samplesPerSymbol)
	for i, symbol := range symbols {
		for j := 0; j < t.samplesPerSymbol; j++ {
			var v float32
			if j == 0 {
				v = float32(symbol)
				if t.phaseInvert {
					v = -v
				}
			}
			copy(t.last, t.last[1:])
			t.last[len(t.last)-1] = v

			var acc float32
			for k, f := range t.last {
				acc += t.rrcTaps[k] * f
			}
			ret[i*t.samplesPerSymbol+j] = clampInt8(acc * t.scalingCoeff)
		}
	}
	return ret
}

// NewModulator returns a SymbolToSample producing int8 baseband at
// SamplesPerSymbol samples per symbol, the inverse of SampleToSymbol with
// RXSymbolScalingCoeff.
func NewModulator(phaseInvert bool) *SymbolToSample {
	return NewSymbolToSample(RRCTaps5, TXSymbolScalingCoeff*transmitGain, phaseInvert, SamplesPerSymbol)
}

func clampInt8(v float32) int8 {
	switch {
	case v >= math.MaxInt8:
		return math.MaxInt8
	case v <= math.MinInt8:
		return math.MinInt8
	}
	return int8(v)
}

// Downsample a stream by returning one out of each N values
type Downsampler[T any] struct {
	Transform[T, T]
	factor int
	offset int
	count  int
}

func NewDownsampler[T any](sink <-chan T, factor int, offset int) (*Downsampler[T], error) {
	if factor < 1 {
		return nil, fmt.Errorf("factor must be greater than zero")
	}
	if offset < 0 || offset >= factor {
		return nil, fmt.Errorf("offset must be between 0 and %d", factor-1)
	}
	ret := &Downsampler[T]{
		factor: factor,
		offset: offset,
	}
	ret.Transform = NewTransform(sink, ret.downsample, 0)
	return ret, nil
}

func (t *Downsampler[T]) downsample(sample T) []T {
	ret := []T{}
	if t.count%t.factor == t.offset {
		ret = []T{sample}
		t.count = t.offset
	}
	t.count++
	return ret
}
