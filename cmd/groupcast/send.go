package main

import (
	"fmt"

	"github.com/opd-ai/groupcast"
	gctesting "github.com/opd-ai/groupcast/testing"
	"github.com/spf13/cobra"
)

type sendOptions struct {
	*rootOptions
	groups []string
}

func newSendCmd(root *rootOptions) *cobra.Command {
	opts := &sendOptions{rootOptions: root}

	cmd := &cobra.Command{
		Use:   "send [flags] PART...",
		Short: "Join groups and multicast one message",
		Long: `Open a session, join every --group, and multicast the arguments as one
atomic message. Each argument becomes one buffer of the message.

Examples:
  groupcast send --group cluster-a hello
  groupcast send --simulate --group cluster-a --group cluster-b "part one" "part two"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.groups, "group", "g", nil, "Group to join (repeatable, required)")
	_ = cmd.MarkFlagRequired("group")

	return cmd
}

func runSend(cmd *cobra.Command, opts *sendOptions, args []string) (err error) {
	f, err := opts.newFactory()
	if err != nil {
		return err
	}
	service, err := f.CreateService()
	if err != nil {
		return fmt.Errorf("create group service: %w", err)
	}

	client, err := groupcast.New(service)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := client.Close(); err == nil {
			err = closeErr
		}
	}()

	session, err := client.Create(nil)
	if err != nil {
		return err
	}
	for _, group := range opts.groups {
		if err := session.Join([]byte(group)); err != nil {
			return err
		}
	}

	buffers := make([][]byte, len(args))
	for i, arg := range args {
		buffers[i] = []byte(arg)
	}
	if err := session.Send(buffers...); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "sent %d buffer(s) from %s to %d group(s)\n", len(buffers), session.Handle(), len(opts.groups))

	// The simulation delivers synchronously, so the sender's own copy can be shown.
	if sim, ok := service.(*gctesting.SimulatedGroupService); ok {
		for _, d := range sim.Deliveries(session.Handle()) {
			fmt.Fprintf(out, "delivered #%d to %q: %q\n", d.Sequence, d.Group, d.Buffers)
		}
	}
	return nil
}
