package m17

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
)

type FrameType byte

const (
	FrameLSF FrameType = iota
	FrameStream
	FramePacket
)

func (t FrameType) String() string {
	switch t {
	case FrameLSF:
		return "lsf"
	case FrameStream:
		return "stream"
	case FramePacket:
		return "packet"
	}
	return fmt.Sprintf("FrameType(%d)", byte(t))
}

// Frame is what a Receiver hands to its handler: a decoded LSF, a stream
// frame, or a complete packet.
type Frame struct {
	Type FrameType
	// Viterbi cost, for packets the highest cost of any of its frames
	Cost uint32
	// the current LSF; zero for a stream frame received without one
	LSF    LSF
	Stream StreamFrame
	// packet payload without CRC
	Packet []byte
}

// Dropped reports a frame that was received but not delivered.
type Dropped struct {
	Type FrameType
	Cost uint32
	Err  error
}

var (
	ErrCostExceeded = errors.New("Viterbi cost above limit")
	ErrNoLSF        = errors.New("no LSF received")
	ErrFrameOrder   = errors.New("packet frame out of order")
)

type ReceiverConfig struct {
	// frames with a higher Viterbi cost are dropped. The cost grows with
	// channel noise even when every bit decodes correctly, so LSFs and
	// packets are accepted on CRC and this is only an optional extra gate.
	MaxCost uint32
	// maximum Euclidean distance to a stream or packet syncword
	SyncThreshold float32
	// maximum Euclidean distance to the LSF syncword
	LSFSyncThreshold float32
	// symbols without a sync before packet and LSF state is dropped
	Timeout int
}

// DefaultReceiverConfig accepts frames on CRC alone, without a cost limit.
func DefaultReceiverConfig() ReceiverConfig {
	return ReceiverConfig{
		MaxCost:          DecodeFailed,
		SyncThreshold:    5.0,
		LSFSyncThreshold: 4.5,
		Timeout:          960 * 2,
	}
}

// Receiver searches a symbol stream for syncwords and decodes the frames
// following them. Symbols are pushed in one at a time with Receive.
type Receiver struct {
	cfg     ReceiverConfig
	handler func(Frame) error
	// OnDrop, if set, is called for every frame that is not delivered
	OnDrop func(Dropped)

	codec *FrameCodec

	//look-back buffer
	window []Symbol
	//raw frame symbols
	pld        []Symbol
	collecting uint16 // syncword of the frame being collected, 0 while searching

	lsf                LSF
	gotLSF             bool
	packetData         []byte //whole packet data
	packetCost         uint32
	lastPacketFrameNum int // last packet frame number received (-1 when idle)
	timeoutCnt         int
}

func NewReceiver(cfg ReceiverConfig, handler func(Frame) error) *Receiver {
	return &Receiver{
		cfg:                cfg,
		handler:            handler,
		codec:              NewFrameCodec(),
		window:             make([]Symbol, 0, SymbolsPerSyncword),
		pld:                make([]Symbol, 0, SymbolsPerPayload),
		packetData:         make([]byte, 0, MaxPacketFrames*PacketChunkLen),
		lastPacketFrameNum: -1,
	}
}

// Receive consumes one symbol. An error is returned only when the handler
// fails.
func (r *Receiver) Receive(sym Symbol) error {
	if r.collecting != 0 {
		r.pld = append(r.pld, sym)
		if len(r.pld) < SymbolsPerPayload {
			return nil
		}
		typ := r.collecting
		r.collecting = 0
		r.window = r.window[:0]
		err := r.decodeFrame(typ, r.pld)
		r.pld = r.pld[:0]
		return err
	}

	if len(r.window) == SymbolsPerSyncword {
		copy(r.window, r.window[1:])
		r.window[len(r.window)-1] = sym
	} else {
		r.window = append(r.window, sym)
		if len(r.window) < SymbolsPerSyncword {
			return nil
		}
	}

	typ, dist := r.matchSync()
	switch typ {
	case 0:
		//RX sync timeout
		if r.gotLSF {
			r.timeoutCnt++
			if r.timeoutCnt > r.cfg.Timeout {
				log.Print("[DEBUG] Sync timeout")
				r.reset()
			}
		}
	case EOTMarker:
		if r.gotLSF {
			log.Printf("[DEBUG] Received EOT, distance: %f", dist)
			r.reset()
		}
	default:
		log.Printf("[DEBUG] Received sync %04X, distance: %f", typ, dist)
		r.collecting = typ
		r.timeoutCnt = 0
	}
	return nil
}

// matchSync returns the syncword closest to the window, or 0 if none is
// within its threshold.
func (r *Receiver) matchSync() (uint16, float32) {
	var best uint16
	bestDist := float32(math.Inf(1))
	try := func(typ uint16, pattern []Symbol, threshold float32) {
		dist := EuclNorm(r.window, pattern)
		if dist < threshold && dist < bestDist {
			best, bestDist = typ, dist
		}
	}
	try(LSFSync, LSFSyncSymbols, r.cfg.LSFSyncThreshold)
	try(StreamSync, StreamSyncSymbols, r.cfg.SyncThreshold)
	try(PacketSync, PacketSyncSymbols, r.cfg.SyncThreshold)
	try(EOTMarker, EOTSymbols, r.cfg.SyncThreshold)
	return best, bestDist
}

func (r *Receiver) decodeFrame(typ uint16, pld []Symbol) error {
	switch typ {
	case LSFSync:
		lsf, cost, err := r.codec.DecodeLSF(pld)
		log.Printf("[DEBUG] LSF Viterbi cost: %1.1f", costBits(cost))
		if err == nil && cost > r.cfg.MaxCost {
			err = ErrCostExceeded
		}
		if err != nil {
			r.drop(FrameLSF, cost, err)
			return nil
		}
		log.Printf("[DEBUG] Received RF LSF: %s", lsf)
		r.reset()
		r.lsf = lsf
		r.gotLSF = true
		return r.handler(Frame{Type: FrameLSF, Cost: cost, LSF: lsf})

	case StreamSync:
		sf, cost, err := r.codec.DecodeStreamFrame(pld)
		log.Printf("[DEBUG] Stream frame %d Viterbi cost: %1.1f", sf.FrameNumber, costBits(cost))
		if err == nil && cost > r.cfg.MaxCost {
			err = ErrCostExceeded
		}
		if err != nil {
			r.drop(FrameStream, cost, err)
			return nil
		}
		f := Frame{Type: FrameStream, Cost: cost, Stream: sf}
		if r.gotLSF {
			f.LSF = r.lsf
		}
		if sf.Last {
			r.reset()
		}
		return r.handler(f)

	case PacketSync:
		return r.decodePacketFrame(pld)
	}
	return nil
}

func (r *Receiver) decodePacketFrame(pld []Symbol) error {
	pf, cost, err := r.codec.DecodePacketFrame(pld)
	if err != nil {
		r.drop(FramePacket, cost, err)
		return nil
	}
	if pf.Last {
		log.Printf("[DEBUG] Frame %d Viterbi cost: %1.1f", r.lastPacketFrameNum+1, costBits(cost))
	} else {
		log.Printf("[DEBUG] Frame %d Viterbi cost: %1.1f", pf.Counter, costBits(cost))
	}
	switch {
	case !r.gotLSF || r.lsf.IsStream():
		r.drop(FramePacket, cost, ErrNoLSF)
		return nil
	case cost > r.cfg.MaxCost:
		r.drop(FramePacket, cost, ErrCostExceeded)
		r.resetPacket()
		return nil
	}
	r.packetCost = max(r.packetCost, cost)

	if !pf.Last {
		if pf.Counter != r.lastPacketFrameNum+1 {
			r.drop(FramePacket, cost, fmt.Errorf("%w: got %d, expected %d", ErrFrameOrder, pf.Counter, r.lastPacketFrameNum+1))
			r.resetPacket()
			return nil
		}
		r.packetData = append(r.packetData, pf.Data[:]...)
		r.lastPacketFrameNum++
		return nil
	}

	n := pf.Counter
	if n > PacketChunkLen {
		log.Printf("[INFO] Fixing overrun in last frame: %d > %d", n, PacketChunkLen)
		n = PacketChunkLen
	}
	r.packetData = append(r.packetData, pf.Data[:n]...)
	defer r.resetPacket()
	if len(r.packetData) <= CRCLen || CRC(r.packetData) != 0 {
		r.drop(FramePacket, r.packetCost, fmt.Errorf("packet: %w: %04x", ErrBadCRC, CRC(r.packetData)))
		return nil
	}
	data := make([]byte, len(r.packetData)-CRCLen)
	copy(data, r.packetData)
	return r.handler(Frame{Type: FramePacket, Cost: r.packetCost, LSF: r.lsf, Packet: data})
}

func (r *Receiver) drop(typ FrameType, cost uint32, err error) {
	log.Printf("[DEBUG] Dropped %s frame, cost %1.1f: %v", typ, costBits(cost), err)
	if r.OnDrop != nil {
		r.OnDrop(Dropped{Type: typ, Cost: cost, Err: err})
	}
}

func (r *Receiver) resetPacket() {
	r.packetData = r.packetData[:0]
	r.packetCost = 0
	r.lastPacketFrameNum = -1
}

func (r *Receiver) reset() {
	r.resetPacket()
	r.lsf = LSF{}
	r.gotLSF = false
	r.timeoutCnt = 0
}

// Run reads little-endian float32 symbols from in until EOF.
func (r *Receiver) Run(in io.Reader) error {
	bufIn := bufio.NewReaderSize(in, SymbolsPerFrame*4)
	var buf [4]byte
	for {
		_, err := io.ReadFull(bufIn, buf[:])
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		} else if err != nil {
			return fmt.Errorf("failed to read symbol: %w", err)
		}
		sym := Symbol(math.Float32frombits(binary.LittleEndian.Uint32(buf[:])))
		if err := r.Receive(sym); err != nil {
			return err
		}
	}
}

// RunChannel consumes symbols from in until it is closed.
func (r *Receiver) RunChannel(in <-chan Symbol) error {
	for sym := range in {
		if err := r.Receive(sym); err != nil {
			return err
		}
	}
	return nil
}

// costBits expresses a Viterbi cost in equivalent hard bit errors.
func costBits(cost uint32) float64 {
	return float64(cost) / float64(SoftOne)
}
