// Package config loads the uartloop configuration file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"uartloop/cmdlist"
	"uartloop/exchange"
	"uartloop/internal/logging"
	"uartloop/serialcomm"
)

// File is the on-disk configuration.
type File struct {
	Port      Port     `yaml:"port" json:"port"`
	Timing    Timing   `yaml:"timing" json:"timing"`
	Words     []string `yaml:"words" json:"words"`
	WordsFile string   `yaml:"words_file" json:"words_file"`
	Log       Log      `yaml:"log" json:"log"`
	Metrics   Metrics  `yaml:"metrics" json:"metrics"`
}

type Port struct {
	Name        string        `yaml:"name" json:"name"`
	Baud        int           `yaml:"baud" json:"baud"`
	Driver      string        `yaml:"driver" json:"driver"`
	ReadQuantum time.Duration `yaml:"read_quantum" json:"read_quantum"`
}

type Timing struct {
	WordGap   time.Duration `yaml:"word_gap" json:"word_gap"`
	RoundGap  time.Duration `yaml:"round_gap" json:"round_gap"`
	RxTimeout time.Duration `yaml:"rx_timeout" json:"rx_timeout"`
	Settle    time.Duration `yaml:"settle" json:"settle"`
}

type Log struct {
	// File receives the exchange lines in append mode. Empty disables it.
	File   string `yaml:"file" json:"file"`
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"` // text | json
}

type Metrics struct {
	// Addr serves /metrics when set, e.g. ":9110".
	Addr string `yaml:"addr" json:"addr"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Port: Port{
			Name:        "/dev/ttyUSB0",
			Baud:        serialcomm.DefaultBaud,
			Driver:      serialcomm.DriverTarm,
			ReadQuantum: serialcomm.DefaultReadQuantum,
		},
		Timing: Timing{
			WordGap:   exchange.DefaultWordGap,
			RoundGap:  exchange.DefaultRoundGap,
			RxTimeout: exchange.DefaultRxTimeout,
			Settle:    exchange.DefaultSettleDelay,
		},
		Log: Log{
			File:   "uart_log.txt",
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults. YAML is assumed unless the
// extension is .json.
func Load(path string) (File, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if strings.ToLower(filepath.Ext(path)) == ".json" {
		var raw jsonFile
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
		if err := raw.apply(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if cfg.WordsFile != "" && !filepath.IsAbs(cfg.WordsFile) {
		cfg.WordsFile = filepath.Join(filepath.Dir(path), cfg.WordsFile)
	}
	return cfg, nil
}

// Validate checks values the session cannot run with.
func (f File) Validate() error {
	var errs []error

	if f.Port.Name == "" {
		errs = append(errs, errors.New("port.name is required"))
	}
	if f.Port.Baud <= 0 {
		errs = append(errs, fmt.Errorf("port.baud must be positive, got %d", f.Port.Baud))
	}
	switch f.Port.Driver {
	case serialcomm.DriverTarm, serialcomm.DriverBugst:
	default:
		errs = append(errs, fmt.Errorf("port.driver must be %q or %q, got %q",
			serialcomm.DriverTarm, serialcomm.DriverBugst, f.Port.Driver))
	}
	if f.Timing.RxTimeout <= 0 {
		errs = append(errs, errors.New("timing.rx_timeout must be positive"))
	}
	for _, d := range []struct {
		name string
		v    time.Duration
	}{
		{"timing.word_gap", f.Timing.WordGap},
		{"timing.round_gap", f.Timing.RoundGap},
		{"timing.settle", f.Timing.Settle},
		{"port.read_quantum", f.Port.ReadQuantum},
	} {
		if d.v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", d.name))
		}
	}
	if _, err := logging.ParseLevel(f.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	switch f.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", f.Log.Format))
	}
	if len(f.Words) > 0 {
		if _, err := cmdlist.ParseStrings(f.Words); err != nil {
			errs = append(errs, fmt.Errorf("words: %w", err))
		}
	}

	return errors.Join(errs...)
}

// Serial returns the transport settings.
func (f File) Serial() serialcomm.Config {
	return serialcomm.Config{
		Name:        f.Port.Name,
		Baud:        f.Port.Baud,
		Driver:      f.Port.Driver,
		ReadQuantum: f.Port.ReadQuantum,
	}
}

// SessionOptions returns the timing options for exchange.New.
func (f File) SessionOptions() []exchange.Option {
	return []exchange.Option{
		exchange.WithWordGap(f.Timing.WordGap),
		exchange.WithRoundGap(f.Timing.RoundGap),
		exchange.WithRxTimeout(f.Timing.RxTimeout),
		exchange.WithSettleDelay(f.Timing.Settle),
	}
}

// CommandWords returns the initial command list: words_file when set,
// otherwise the inline words. Neither set yields an empty list.
func (f File) CommandWords() ([]uint32, error) {
	if f.WordsFile != "" {
		return cmdlist.LoadFile(f.WordsFile)
	}
	if len(f.Words) == 0 {
		return nil, nil
	}
	return cmdlist.ParseStrings(f.Words)
}

// jsonFile mirrors File with durations as strings; encoding/json has no
// duration syntax.
type jsonFile struct {
	Port struct {
		Name        string `json:"name"`
		Baud        int    `json:"baud"`
		Driver      string `json:"driver"`
		ReadQuantum string `json:"read_quantum"`
	} `json:"port"`
	Timing struct {
		WordGap   string `json:"word_gap"`
		RoundGap  string `json:"round_gap"`
		RxTimeout string `json:"rx_timeout"`
		Settle    string `json:"settle"`
	} `json:"timing"`
	Words     []string `json:"words"`
	WordsFile string   `json:"words_file"`
	Log       *Log     `json:"log"`
	Metrics   Metrics  `json:"metrics"`
}

func (j jsonFile) apply(cfg *File) error {
	if j.Port.Name != "" {
		cfg.Port.Name = j.Port.Name
	}
	if j.Port.Baud != 0 {
		cfg.Port.Baud = j.Port.Baud
	}
	if j.Port.Driver != "" {
		cfg.Port.Driver = j.Port.Driver
	}

	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"port.read_quantum", j.Port.ReadQuantum, &cfg.Port.ReadQuantum},
		{"timing.word_gap", j.Timing.WordGap, &cfg.Timing.WordGap},
		{"timing.round_gap", j.Timing.RoundGap, &cfg.Timing.RoundGap},
		{"timing.rx_timeout", j.Timing.RxTimeout, &cfg.Timing.RxTimeout},
		{"timing.settle", j.Timing.Settle, &cfg.Timing.Settle},
	}
	for _, d := range durations {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	if j.Words != nil {
		cfg.Words = j.Words
	}
	if j.WordsFile != "" {
		cfg.WordsFile = j.WordsFile
	}
	if j.Log != nil {
		if j.Log.File != "" {
			cfg.Log.File = j.Log.File
		}
		if j.Log.Level != "" {
			cfg.Log.Level = j.Log.Level
		}
		if j.Log.Format != "" {
			cfg.Log.Format = j.Log.Format
		}
	}
	if j.Metrics.Addr != "" {
		cfg.Metrics.Addr = j.Metrics.Addr
	}
	return nil
}
