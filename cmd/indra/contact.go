package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "contact", Short: "direct-connect and sentiment/block operations"}
	cmd.AddCommand(contactConnectCmd())
	cmd.AddCommand(contactBlockCmd())
	return cmd
}

func contactConnectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <member-code>",
		Short: "send a direct-connect notify to a peer's inbox realm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			peer, err := parseMember(args[0])
			if err != nil {
				return err
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), flushDelay)
			defer cancel()
			if err := n.Start(ctx); err != nil {
				return err
			}
			defer n.Stop()

			attempt, err := n.Connect(peer)
			if err != nil {
				return err
			}
			<-ctx.Done()
			fmt.Fprintf(cmd.OutOrStdout(), "connect notify sent, initiator=%v\n", attempt.Initiator)
			return nil
		},
	}
}

func contactBlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "block <member-code>",
		Short: "run the sentiment/block cascade against a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseMember(args[0])
			if err != nil {
				return err
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(context.Background(), flushDelay)
			defer cancel()
			if err := n.Start(ctx); err != nil {
				return err
			}
			defer n.Stop()

			result, err := n.Block(target)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "blocked, left %d realms\n", len(result.LeftRealms))
			return nil
		},
	}
}
