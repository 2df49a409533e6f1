package main

import (
	"encoding/hex"
	"fmt"

	gcnoise "github.com/opd-ai/groupcast/noise"
	"github.com/spf13/cobra"
)

func newKeygenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keygen",
		Short: "Generate a static key pair for a group daemon",
		Long: `Generate a Curve25519 key pair for a daemon that accepts encrypted
connections. Clients set daemon_public_key (or GROUPCAST_DAEMON_KEY) to
the printed public key.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := gcnoise.GenerateKeypair()
			if err != nil {
				return fmt.Errorf("generate key pair: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "private_key = %q\n", hex.EncodeToString(key.Private))
			fmt.Fprintf(out, "public_key  = %q\n", hex.EncodeToString(key.Public))
			return nil
		},
	}
}
