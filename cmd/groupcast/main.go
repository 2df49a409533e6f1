// Package main provides the groupcast command-line tool.
//
// The tool joins process groups and multicasts messages through either a
// group daemon or the in-process simulation, and explains service status
// codes the way the library reports them.
package main

import (
	"fmt"
	"os"

	"github.com/opd-ai/groupcast/factory"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	simulate   bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "groupcast",
		Short: "Join process groups and multicast messages",
		Long: `groupcast talks to a group-communication daemon: it opens a session,
joins named process groups and multicasts messages that every member
receives in the same agreed order.

Configuration is read from --config (TOML), then GROUPCAST_* environment
variables. --simulate runs against an in-process simulated cluster.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logrus.ParseLevel(opts.logLevel)
			if err != nil {
				return fmt.Errorf("invalid --log-level: %w", err)
			}
			logrus.SetLevel(level)
			logrus.SetOutput(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "TOML configuration file")
	cmd.PersistentFlags().BoolVar(&opts.simulate, "simulate", false, "Use the in-process simulated service")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warning", "Log level (debug, info, warning, error)")

	cmd.AddCommand(newSendCmd(opts))
	cmd.AddCommand(newDescribeCmd())
	cmd.AddCommand(newKeygenCmd())

	return cmd
}

// newFactory builds the service factory selected by the shared flags.
func (o *rootOptions) newFactory() (*factory.ServiceFactory, error) {
	var f *factory.ServiceFactory
	if o.configPath != "" {
		loaded, err := factory.NewServiceFactoryFromFile(o.configPath)
		if err != nil {
			return nil, err
		}
		f = loaded
	} else {
		f = factory.NewServiceFactory()
	}
	if o.simulate {
		f.SwitchToSimulation()
	}
	return f, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
