package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"uartloop/cmdlist"
	"uartloop/config"
	"uartloop/exchange"
	"uartloop/frame"
	"uartloop/internal/console"
	"uartloop/metrics"
	"uartloop/serialcomm"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the exchange loop",
	Long: `Opens the serial port and exchanges the command list with the device,
round after round, writing one line per exchange to stdout and the log file.

Without --headless an operator prompt reads commands from stdin
(start, stop, add, del, clear, list, import, clearlog, status, quit).
With --headless the loop starts at once and stops on SIGINT/SIGTERM
or after --for.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		headless, _ := cmd.Flags().GetBool("headless")
		loopback, _ := cmd.Flags().GetBool("loopback")
		asJSON, _ := cmd.Flags().GetBool("json")
		runFor, _ := cmd.Flags().GetDuration("for")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runExchange(ctx, cfg, runOptions{
			headless: headless,
			loopback: loopback,
			json:     asJSON,
			runFor:   runFor,
			in:       cmd.InOrStdin(),
			out:      cmd.OutOrStdout(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.Bool("headless", false, "Start immediately without the operator prompt")
	f.Bool("loopback", false, "Exchange with an in-process simulated device instead of the serial port")
	f.Bool("json", false, "Write JSON lines to stdout instead of text lines")
	f.Duration("for", 0, "With --headless, stop after this long (0 runs until interrupted)")
	f.StringSlice("words", nil, "Command words in hex, comma separated")
	f.String("words-file", "", "File with one hex command word per line")
	f.String("log-file", "", "Exchange log file, opened in append mode (empty disables)")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9110")
	f.Duration("word-gap", 0, "Pause between words")
	f.Duration("round-gap", 0, "Pause between rounds")
	f.Duration("rx-timeout", 0, "Receive timeout per word")
	f.Duration("settle", 0, "Pause after opening the port")
	f.Duration("read-quantum", 0, "Longest single blocking read on the port")
}

type runOptions struct {
	headless bool
	loopback bool
	json     bool
	runFor   time.Duration
	in       io.Reader
	out      io.Writer
}

func runExchange(ctx context.Context, cfg config.File, opts runOptions) error {
	logger := newLogger(cfg)

	words, err := cfg.CommandWords()
	if err != nil {
		return err
	}
	list := cmdlist.NewList(words...)

	var stdout exchange.Sink = exchange.NewLineWriter(opts.out)
	if opts.json {
		stdout = exchange.NewJSONSink(opts.out)
	}
	sinks := []exchange.Sink{stdout, exchange.LogSink(logger)}

	var logFile *exchange.LogFile
	if cfg.Log.File != "" {
		logFile, err = exchange.OpenLogFile(cfg.Log.File)
		if err != nil {
			return err
		}
		defer logFile.Close()
		sinks = append(sinks, logFile)
	}

	sessOpts := append(cfg.SessionOptions(), exchange.WithLogger(logger))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m, err := metrics.New(reg)
		if err != nil {
			return err
		}
		sessOpts = append(sessOpts, exchange.WithMetrics(m))
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr, reg, logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	if opts.loopback {
		sessOpts = append(sessOpts, exchange.WithOpener(loopbackOpener(logger)))
	}

	events := exchange.MultiSink(sinks...)
	sess := exchange.New(events, sessOpts...)
	defer func() {
		sess.Stop()
		<-sess.Done()
	}()

	if opts.headless {
		return runHeadless(ctx, sess, list, cfg.Serial(), opts.runFor)
	}

	var log console.Truncater
	if logFile != nil {
		log = logFile
	}
	con := &console.Console{
		Session: sess,
		List:    list,
		Serial:  cfg.Serial(),
		Log:     log,
		Events:  events,
		Out:     opts.out,
		Logger:  logger,
	}
	fmt.Fprintf(opts.out, "uartloop %s on %s, %d words loaded. Type \"help\" for commands.\n",
		version, cfg.Port.Name, list.Len())

	if opts.in == os.Stdin && term.IsTerminal(int(os.Stdin.Fd())) {
		err = con.RunTerminal(ctx, historyPath())
	} else {
		err = con.Run(ctx, opts.in)
	}
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// historyPath is the operator prompt history file, or "" when there is no
// home directory.
func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".uartloop_history")
}

func runHeadless(ctx context.Context, sess *exchange.Session, list *cmdlist.List, sc serialcomm.Config, runFor time.Duration) error {
	if err := sess.Start(list, sc); err != nil {
		return err
	}

	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	select {
	case <-ctx.Done():
		sess.Stop()
		<-sess.Done()
		return nil
	case <-sess.Done():
		return sess.Err()
	}
}

// loopbackOpener wires each session run to a simulated device answering
// every request with a passing response.
func loopbackOpener(logger *slog.Logger) serialcomm.Opener {
	return func(cfg serialcomm.Config) (serialcomm.Port, error) {
		host, device := serialcomm.Pipe(cfg.ReadQuantum)
		r := serialcomm.NewResponder(device, serialcomm.ResponderConfig{
			Reply:  serialcomm.EchoReply(0x5A5A5A5A, 0xA5A5A5A5, frame.StatusPass, frame.StatusPass),
			Logger: logger.With("component", "loopback"),
		})
		if err := r.Start(); err != nil {
			return nil, err
		}
		return host, nil
	}
}
