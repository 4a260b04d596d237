package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"uartloop/config"
	"uartloop/internal/logging"
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "uartloop.yaml"

var rootCmd = &cobra.Command{
	Use:   "uartloop",
	Short: "uartloop exercises a device with 32-bit command words over a serial line",
	Long: `uartloop repeatedly sends a list of 32-bit command words to a device on a
serial port, reads back each 14-byte response and logs whether both status
markers came back as 'K'.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (YAML, or JSON by extension); default ./"+defaultConfigFile+" if present")
	pf.String("port", "", "Serial port name, e.g. /dev/ttyUSB0 or COM5")
	pf.Int("baud", 0, "Baud rate")
	pf.String("driver", "", "Serial driver: tarm or bugst")
	pf.String("log-level", "", "Diagnostic log level: debug, info, warn, error")
	pf.String("log-format", "", "Diagnostic log format: text or json")
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then any flag the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.File, error) {
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	cfg, err := config.Load(path)
	if err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
		cfg = config.Default()
	}

	if flags.Changed("port") {
		cfg.Port.Name, _ = flags.GetString("port")
	}
	if flags.Changed("baud") {
		cfg.Port.Baud, _ = flags.GetInt("baud")
	}
	if flags.Changed("driver") {
		cfg.Port.Driver, _ = flags.GetString("driver")
	}
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}

	// Command-specific overrides; absent flags are skipped.
	if f := flags.Lookup("words"); f != nil && f.Changed {
		cfg.Words, _ = flags.GetStringSlice("words")
		cfg.WordsFile = ""
	}
	if f := flags.Lookup("words-file"); f != nil && f.Changed {
		cfg.WordsFile, _ = flags.GetString("words-file")
	}
	if f := flags.Lookup("log-file"); f != nil && f.Changed {
		cfg.Log.File, _ = flags.GetString("log-file")
	}
	if f := flags.Lookup("metrics-addr"); f != nil && f.Changed {
		cfg.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
	for name, dst := range map[string]*time.Duration{
		"word-gap":     &cfg.Timing.WordGap,
		"round-gap":    &cfg.Timing.RoundGap,
		"rx-timeout":   &cfg.Timing.RxTimeout,
		"settle":       &cfg.Timing.Settle,
		"read-quantum": &cfg.Port.ReadQuantum,
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			*dst, _ = flags.GetDuration(name)
		}
	}

	return cfg, cfg.Validate()
}

func newLogger(cfg config.File) *slog.Logger {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	return logging.New(level, cfg.Log.Format)
}
