package m17

import (
	"runtime"
	"sync"
)

// DecoderPool hands out ViterbiDecoders for concurrent use. A decoder
// taken with Get belongs to the caller until it is returned with Put.
type DecoderPool struct {
	pool sync.Pool
}

func NewDecoderPool() *DecoderPool {
	return &DecoderPool{
		pool: sync.Pool{
			New: func() any { return NewViterbiDecoder() },
		},
	}
}

func (p *DecoderPool) Get() *ViterbiDecoder {
	return p.pool.Get().(*ViterbiDecoder)
}

func (p *DecoderPool) Put(v *ViterbiDecoder) {
	p.pool.Put(v)
}

// DecodeResult is the outcome of one codeword in a batch.
type DecodeResult struct {
	Data []byte
	Cost uint32
	Err  error
}

// DecodeBatch decodes independent punctured codewords concurrently, one
// pooled decoder per worker. Results are in input order. A nil pattern
// decodes unpunctured input.
func (p *DecoderPool) DecodeBatch(codewords [][]SoftBit, pattern PuncturePattern) []DecodeResult {
	results := make([]DecodeResult, len(codewords))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range min(runtime.GOMAXPROCS(0), len(codewords)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vd := p.Get()
			defer p.Put(vd)
			for i := range jobs {
				out := make([]byte, DecodedLen(MaxDecodeSoftBits))
				r := &results[i]
				if pattern == nil {
					r.Cost, r.Err = vd.Decode(out, codewords[i])
				} else {
					r.Cost, r.Err = vd.DecodePunctured(out, codewords[i], pattern)
				}
				if r.Err == nil {
					r.Data = out
				}
			}
		}()
	}
	for i := range codewords {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
