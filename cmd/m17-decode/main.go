// m17-decode reads an M17 symbol stream or baseband recording and prints
// the frames and packets it contains.
package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hashicorp/logutils"
	"github.com/jancona/m17codec/m17"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

var (
	inArg          *string = pflag.StringP("in", "i", "", "Symbol or baseband input (default stdin)")
	outArg         *string = pflag.StringP("out", "o", "", "Decoded output (default stdout)")
	configArg      *string = pflag.StringP("config", "c", "", "INI configuration file")
	metricsAddrArg *string = pflag.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9117")
	isDebugArg     *bool   = pflag.Bool("debug", false, "Emit debug log messages")
	logDestArg     *string = pflag.String("log", "", "Device/file for log (default stderr)")
	helpArg        *bool   = pflag.BoolP("help", "h", false, "Print arguments")
)

// Config overrides, read by applyFlags only when set.
func init() {
	pflag.StringP("format", "f", formatSymbols, "Input format: sym (float32 symbols) or raw (int8 baseband, 5 samples per symbol)")
	pflag.Int("offset", 0, "Sample offset within a symbol for raw input")
	pflag.Float64("max-cost", 0, "Drop frames with a Viterbi cost above this many bit errors (0 for no limit)")
	pflag.Float64("sync-threshold", 5, "Maximum distance to a stream or packet syncword")
}

func main() {
	pflag.Parse()

	if *helpArg {
		pflag.Usage()
		return
	}
	setupLogging()

	cfg, err := loadConfig(*configArg)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	err = applyFlags(&cfg, pflag.CommandLine)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	in := os.Stdin
	if *inArg != "" {
		in, err = os.Open(*inArg)
		if err != nil {
			log.Fatalf("[ERROR] Failed to open input '%s': %v", *inArg, err)
		}
		defer in.Close()
	}
	out := os.Stdout
	if *outArg != "" {
		out, err = os.Create(*outArg)
		if err != nil {
			log.Fatalf("[ERROR] Failed to open output '%s': %v", *outArg, err)
		}
		defer out.Close()
	}

	var metrics *decoderMetrics
	if *metricsAddrArg != "" {
		reg := prometheus.NewRegistry()
		metrics = newDecoderMetrics(reg)
		serveMetrics(*metricsAddrArg, reg)
	}

	err = decode(in, out, cfg, metrics)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func setupLogging() {
	var err error
	minLogLevel := "INFO"
	if *isDebugArg {
		minLogLevel = "DEBUG"
	}
	logWriter := os.Stderr
	if *logDestArg != "" {
		logWriter, err = os.OpenFile(*logDestArg, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Error opening log output, exiting: %v", err)
		}
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: logutils.LogLevel(minLogLevel),
		Writer:   logWriter,
	}
	log.SetOutput(filter)
	log.Print("[DEBUG] Debug is on")
}

// applyFlags overrides config values with flags set on the command line.
func applyFlags(cfg *Config, fs *pflag.FlagSet) error {
	var err error
	if fs.Changed("format") {
		cfg.Input.Format, err = fs.GetString("format")
		if err != nil {
			return err
		}
	}
	if fs.Changed("offset") {
		cfg.Input.Offset, err = fs.GetInt("offset")
		if err != nil {
			return err
		}
	}
	if fs.Changed("max-cost") {
		cfg.Receiver.MaxCost, err = fs.GetFloat64("max-cost")
		if err != nil {
			return err
		}
	}
	if fs.Changed("sync-threshold") {
		cfg.Receiver.SyncThreshold, err = fs.GetFloat64("sync-threshold")
		if err != nil {
			return err
		}
	}
	return cfg.validate()
}

// decode runs a Receiver over in and writes one line per delivered frame
// to out.
func decode(in io.Reader, out io.Writer, cfg Config, metrics *decoderMetrics) error {
	w := bufio.NewWriter(out)
	defer w.Flush()

	r := m17.NewReceiver(cfg.receiverConfig(), func(f m17.Frame) error {
		if metrics != nil {
			metrics.delivered(f)
		}
		_, err := fmt.Fprintln(w, formatFrame(f))
		if err != nil {
			return err
		}
		return w.Flush()
	})
	r.OnDrop = func(d m17.Dropped) {
		if metrics != nil {
			metrics.dropped(d)
		}
	}

	if cfg.Input.Format == formatSymbols {
		return r.Run(in)
	}
	done := make(chan struct{})
	syms, err := basebandSymbols(in, cfg.Input, done)
	if err != nil {
		close(done)
		return err
	}
	err = r.RunChannel(syms)
	// RunChannel can return before the input ends
	close(done)
	for range syms {
	}
	return err
}

// basebandSymbols demodulates int8 baseband samples read from in. Reading
// stops at the end of in or when done is closed, and the returned channel
// is closed once the pipeline has drained.
func basebandSymbols(in io.Reader, cfg InputSection, done <-chan struct{}) (<-chan m17.Symbol, error) {
	samples := make(chan int8, m17.SymbolsPerFrame*m17.SamplesPerSymbol)
	go func() {
		defer close(samples)
		bufIn := bufio.NewReader(in)
		for {
			b, err := bufIn.ReadByte()
			if err != nil {
				if err != io.EOF {
					log.Printf("[ERROR] Failed to read samples: %v", err)
				}
				return
			}
			select {
			case samples <- int8(b):
			case <-done:
				return
			}
		}
	}()

	var src <-chan int8 = samples
	if cfg.DCAverage > 0 {
		dc, err := m17.NewDCFilter(src, cfg.DCAverage)
		if err != nil {
			return nil, err
		}
		src = dc.Source()
	}
	var syms <-chan m17.Symbol = m17.NewSampleToSymbol(src, m17.RRCTaps5, m17.RXSymbolScalingCoeff).Source()
	if cfg.Scale != 1 {
		syms = m17.NewScaler(syms, m17.Symbol(cfg.Scale)).Source()
	}
	ds, err := m17.NewDownsampler(syms, m17.SamplesPerSymbol, cfg.Offset)
	if err != nil {
		return nil, err
	}
	return ds.Source(), nil
}

func formatFrame(f m17.Frame) string {
	cost := float64(f.Cost) / float64(m17.SoftOne)
	switch f.Type {
	case m17.FrameLSF:
		return fmt.Sprintf("LSF dst=%X src=%X type=%X can=%d cost=%.1f", f.LSF.Dst, f.LSF.Src, f.LSF.Type, f.LSF.CAN(), cost)
	case m17.FrameStream:
		return fmt.Sprintf("STR fn=%d last=%t payload=%s cost=%.1f", f.Stream.FrameNumber, f.Stream.Last, hex.EncodeToString(f.Stream.Payload[:]), cost)
	case m17.FramePacket:
		return fmt.Sprintf("PKT dst=%X src=%X len=%d cost=%.1f data=%q", f.LSF.Dst, f.LSF.Src, len(f.Packet), cost, f.Packet)
	}
	return fmt.Sprintf("%s cost=%.1f", f.Type, cost)
}
