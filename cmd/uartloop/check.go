package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uartloop/cmdlist"
)

var checkCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a command word file",
	Long:  `Parses a words file (one hex word per line, '#' comments) and prints the resulting list.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		words, err := cmdlist.LoadFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, cmdlist.NewList(words...).String())
		fmt.Fprintf(out, "%d words OK\n", len(words))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
