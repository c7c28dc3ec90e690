package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/indranet/indra/internal/node"
)

func startCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "boot the node and run until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := n.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indra: node %x listening, ctrl-c to stop\n", n.Self)

			go logEvents(cmd, n)

			<-ctx.Done()
			return n.Stop()
		},
	}
}

// logEvents drains n.Events() to stdout until the channel closes on Stop,
// per node.Node's contract that callers must keep draining it.
func logEvents(cmd *cobra.Command, n *node.Node) {
	for ev := range n.Events() {
		switch ev.Kind {
		case node.EventMemberChange:
			fmt.Fprintf(cmd.OutOrStdout(), "[realm %x] member event: %+v\n", ev.Realm, ev.MemberEvent)
		case node.EventMessageReceived:
			fmt.Fprintf(cmd.OutOrStdout(), "[realm %x] message from %x\n", ev.Realm, ev.Message.Sender)
		case node.EventArtifactNotification:
			fmt.Fprintf(cmd.OutOrStdout(), "artifact notification: %+v\n", ev.Notification)
		case node.EventSyncDropped:
			fmt.Fprintf(cmd.OutOrStdout(), "[realm %x] sync session dropped\n", ev.Realm)
		}
	}
}
