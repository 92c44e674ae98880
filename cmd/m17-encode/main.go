// m17-encode builds an M17 packet transmission from a data payload.
package main

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hashicorp/logutils"
	"github.com/jancona/m17codec/m17"
	"github.com/spf13/pflag"
)

const (
	formatSymbols = "sym"
	formatRaw     = "raw"
)

var (
	srcArg     *string = pflag.String("src", "", "Source address, 12 hex digits (required)")
	dstArg     *string = pflag.String("dst", "FFFFFFFFFFFF", "Destination address, 12 hex digits")
	canArg     *uint8  = pflag.Uint8("can", 0, "Channel access number (0-15)")
	inArg      *string = pflag.StringP("in", "i", "", "Packet data input (default stdin)")
	outArg     *string = pflag.StringP("out", "o", "", "Symbol or baseband output (default stdout)")
	formatArg  *string = pflag.StringP("format", "f", formatSymbols, "Output format: sym (float32 symbols) or raw (int8 baseband, 5 samples per symbol)")
	invertArg  *bool   = pflag.Bool("invert", false, "Invert the baseband phase for raw output")
	isDebugArg *bool   = pflag.Bool("debug", false, "Emit debug log messages")
	logDestArg *string = pflag.String("log", "", "Device/file for log (default stderr)")
	helpArg    *bool   = pflag.BoolP("help", "h", false, "Print arguments")
)

func main() {
	pflag.Parse()

	if *helpArg {
		pflag.Usage()
		return
	}
	setupLogging()

	lsf, err := buildLSF(*srcArg, *dstArg, *canArg)
	if err != nil {
		pflag.Usage()
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

	data, err := io.ReadAll(in)
	if err != nil {
		log.Fatalf("[ERROR] Failed to read input: %v", err)
	}
	err = encode(out, lsf, data, *formatArg, *invertArg)
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

// buildLSF checks the address and CAN arguments and returns the packet mode
// LSF they describe.
func buildLSF(srcHex, dstHex string, can uint8) (m17.LSF, error) {
	if srcHex == "" {
		return m17.LSF{}, fmt.Errorf("--src argument is required")
	}
	src, err := parseAddress(srcHex)
	if err != nil {
		return m17.LSF{}, fmt.Errorf("bad source address: %w", err)
	}
	dst, err := parseAddress(dstHex)
	if err != nil {
		return m17.LSF{}, fmt.Errorf("bad destination address: %w", err)
	}
	if can > 0xF {
		return m17.LSF{}, fmt.Errorf("CAN must be between 0 and 15")
	}
	return m17.NewLSF(dst, src, m17.LSFTypePacket, 0, can), nil
}

// parseAddress decodes an already encoded 48 bit address given as hex.
func parseAddress(s string) ([m17.AddressLen]byte, error) {
	var addr [m17.AddressLen]byte
	b, err := hex.DecodeString(s)
	if err != nil {
		return addr, err
	}
	if len(b) != m17.AddressLen {
		return addr, fmt.Errorf("address %s must be %d hex digits", s, 2*m17.AddressLen)
	}
	copy(addr[:], b)
	return addr, nil
}

func encode(out io.Writer, lsf m17.LSF, data []byte, format string, invert bool) error {
	syms, err := m17.EncodePacket(lsf, data)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(out)
	switch format {
	case formatSymbols:
		err = binary.Write(w, binary.LittleEndian, syms)
	case formatRaw:
		err = binary.Write(w, binary.LittleEndian, m17.NewModulator(invert).Transform(syms))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	log.Printf("[DEBUG] Wrote %d symbols for %d bytes of data", len(syms), len(data))
	return w.Flush()
}
