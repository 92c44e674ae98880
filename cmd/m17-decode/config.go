package main

import (
	"fmt"

	"github.com/jancona/m17codec/m17"
	"gopkg.in/ini.v1"
)

const (
	formatSymbols = "sym"
	formatRaw     = "raw"
)

type ReceiverSection struct {
	// in equivalent hard bit errors, 0 for no limit
	MaxCost          float64 `ini:"max_cost"`
	SyncThreshold    float64 `ini:"sync_threshold"`
	LSFSyncThreshold float64 `ini:"lsf_sync_threshold"`
	Timeout          int     `ini:"timeout"`
}

type InputSection struct {
	Format string `ini:"format"`
	// sample offset within a symbol, raw input only
	Offset int `ini:"offset"`
	// extra gain applied to raw samples
	Scale float64 `ini:"scale"`
	// length of the DC filter moving average, 0 to disable
	DCAverage int `ini:"dc_average"`
}

type Config struct {
	Receiver ReceiverSection `ini:"receiver"`
	Input    InputSection    `ini:"input"`
}

func defaultConfig() Config {
	rc := m17.DefaultReceiverConfig()
	return Config{
		Receiver: ReceiverSection{
			SyncThreshold:    float64(rc.SyncThreshold),
			LSFSyncThreshold: float64(rc.LSFSyncThreshold),
			Timeout:          rc.Timeout,
		},
		Input: InputSection{
			Format: formatSymbols,
			Scale:  1,
		},
	}
}

// loadConfig reads an INI file over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	f, err := ini.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	err = f.MapTo(&cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Input.Format {
	case formatSymbols, formatRaw:
	default:
		return fmt.Errorf("unknown input format %q", c.Input.Format)
	}
	if c.Input.Offset < 0 || c.Input.Offset >= m17.SamplesPerSymbol {
		return fmt.Errorf("offset must be between 0 and %d", m17.SamplesPerSymbol-1)
	}
	if c.Input.DCAverage < 0 {
		return fmt.Errorf("dc_average must not be negative")
	}
	if c.Receiver.MaxCost < 0 {
		return fmt.Errorf("max_cost must not be negative")
	}
	if c.Receiver.SyncThreshold <= 0 || c.Receiver.LSFSyncThreshold <= 0 {
		return fmt.Errorf("sync thresholds must be positive")
	}
	return nil
}

func (c Config) receiverConfig() m17.ReceiverConfig {
	maxCost := m17.DecodeFailed
	if v := c.Receiver.MaxCost * float64(m17.SoftOne); v > 0 && v < float64(m17.DecodeFailed) {
		maxCost = uint32(v)
	}
	return m17.ReceiverConfig{
		MaxCost:          maxCost,
		SyncThreshold:    float32(c.Receiver.SyncThreshold),
		LSFSyncThreshold: float32(c.Receiver.LSFSyncThreshold),
		Timeout:          c.Receiver.Timeout,
	}
}
