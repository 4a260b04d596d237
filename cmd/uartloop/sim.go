package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uartloop/cmdlist"
	"uartloop/serialcomm"
)

var simCmd = &cobra.Command{
	Use:   "sim",
	Short: "Simulate the device on a serial port",
	Long: `Serves the device side of the protocol on --port: every 4-byte request is
answered with its echo, --rx1, --rx2 and the two status bytes. Run it on the
other end of a null-modem cable to try uartloop without hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := newLogger(cfg)

		reply, err := simReply(cmd)
		if err != nil {
			return err
		}
		idle, _ := cmd.Flags().GetDuration("idle-timeout")

		port, err := serialcomm.Open(cfg.Serial())
		if err != nil {
			return fmt.Errorf("open %s: %w", cfg.Port.Name, err)
		}

		r := serialcomm.NewResponder(port, serialcomm.ResponderConfig{
			Reply:       reply,
			IdleTimeout: idle,
			Logger:      logger,
		})
		if err := r.Start(); err != nil {
			_ = port.Close()
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "simulating device on %s (Ctrl+C to stop)\n", cfg.Port.Name)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		select {
		case <-ctx.Done():
			_ = r.Close()
		case <-r.Done():
		}
		fmt.Fprintf(cmd.OutOrStdout(), "served %d requests\n", r.Served())
		return r.Err()
	},
}

func init() {
	rootCmd.AddCommand(simCmd)

	f := simCmd.Flags()
	f.String("rx1", "00000000", "First response value (hex)")
	f.String("rx2", "00000000", "Second response value (hex)")
	f.String("st1", "K", "First status byte (one character)")
	f.String("st2", "K", "Second status byte (one character)")
	f.Duration("idle-timeout", 0, "Discard a partial request after this long without data (default 1s)")
}

func simReply(cmd *cobra.Command) (serialcomm.ReplyFunc, error) {
	var vals [2]uint32
	for i, name := range []string{"rx1", "rx2"} {
		s, _ := cmd.Flags().GetString(name)
		v, err := cmdlist.ParseHex32(s)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", name, err)
		}
		vals[i] = v
	}

	var status [2]byte
	for i, name := range []string{"st1", "st2"} {
		s, _ := cmd.Flags().GetString(name)
		if len(s) != 1 {
			return nil, fmt.Errorf("--%s must be a single character, got %q", name, s)
		}
		status[i] = s[0]
	}

	return serialcomm.EchoReply(vals[0], vals[1], status[0], status[1]), nil
}
