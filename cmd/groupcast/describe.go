package main

import (
	"fmt"

	"github.com/opd-ai/groupcast"
	"github.com/opd-ai/groupcast/interfaces"
	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	var opName string

	cmd := &cobra.Command{
		Use:   "describe [--op OPERATION] STATUS",
		Short: "Explain a group service status code",
		Long: `Print the description groupcast reports for a status code returned by
the given operation. STATUS is a decimal code or a name such as ERR_EXIST.

Examples:
  groupcast describe 14
  groupcast describe --op send ERR_TRY_AGAIN`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := groupcast.ParseOperation(opName)
			if !ok {
				return fmt.Errorf("unknown operation %q: must be connect, join, send or finalize", opName)
			}
			status, ok := interfaces.ParseStatus(args[0])
			if !ok {
				return fmt.Errorf("unknown status %q", args[0])
			}

			translator := groupcast.NewTranslator(nil)
			fmt.Fprintf(cmd.OutOrStdout(), "%s (rc=%d) on %s: %s\n", status, uint32(status), op, translator.Describe(op, status))
			return nil
		},
	}

	cmd.Flags().StringVar(&opName, "op", "join", "Operation that returned the status")

	return cmd
}
