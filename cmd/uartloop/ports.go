package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uartloop/serialcomm"
)

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial ports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ports, err := serialcomm.ListPorts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(ports) == 0 {
			fmt.Fprintln(out, "no serial ports found")
			return nil
		}

		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PORT\tUSB\tVID:PID\tSERIAL\tPRODUCT")
		for _, p := range ports {
			usb, ids := "no", ""
			if p.IsUSB {
				usb, ids = "yes", p.VID+":"+p.PID
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, usb, ids, p.SerialNumber, p.Product)
		}
		return tw.Flush()
	},
}

func init() {
	rootCmd.AddCommand(portsCmd)
}
