package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/realm"
	"github.com/indranet/indra/internal/wire"
)

// flushDelay is how long a one-shot command keeps the transport open
// after publishing, so the gossipsub mesh has a chance to actually
// propagate the message before the process exits.
const flushDelay = 2 * time.Second

func realmCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "realm", Short: "create, join, and message realms"}
	cmd.AddCommand(realmCreateCmd())
	cmd.AddCommand(realmJoinCmd())
	cmd.AddCommand(realmSendCmd())
	return cmd
}

// parseMember accepts either a bech32m identity code or a raw hex-encoded
// MemberId, for scripting convenience.
func parseMember(raw string) (ids.MemberId, error) {
	if m, err := wire.DecodeIdentityCode(raw); err == nil {
		return m, nil
	}
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != ids.Size {
		return ids.MemberId{}, fmt.Errorf("indra: %q is not a valid identity code or %d-byte hex id", raw, ids.Size)
	}
	var m ids.MemberId
	copy(m[:], b)
	return m, nil
}

func parseRealmID(raw string) (ids.RealmId, error) {
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != ids.Size {
		return ids.RealmId{}, fmt.Errorf("indra: %q is not a %d-byte hex realm id", raw, ids.Size)
	}
	var r ids.RealmId
	copy(r[:], b)
	return r, nil
}

func realmCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <member-code> [more-member-codes...]",
		Short: "create (or rejoin) the peer-set realm for the given members plus self",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			members := make([]ids.MemberId, 0, len(args)+1)
			members = append(members, n.Self)
			for _, a := range args {
				m, err := parseMember(a)
				if err != nil {
					return err
				}
				members = append(members, m)
			}

			ctx, cancel := context.WithTimeout(context.Background(), flushDelay)
			defer cancel()
			if err := n.Start(ctx); err != nil {
				return err
			}
			defer n.Stop()

			r, err := n.CreateRealm(ctx, members)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "realm id: %x\n", r.ID)
			return nil
		},
	}
}

func realmJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <realm-id-hex>",
		Short: "join a general realm known by id (e.g. from an invite code)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRealmID(args[0])
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

			if _, err := n.JoinRealm(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joined realm %x\n", id)
			return nil
		},
	}
}

func realmSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <realm-id-hex> <text>",
		Short: "send a text message into a realm this node has already joined",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseRealmID(args[0])
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

			if _, err := n.JoinRealm(ctx, id); err != nil {
				return err
			}
			msg, err := n.SendMessage(id, realm.Content{Kind: realm.ContentText, Text: args[1]}, nil, nil)
			if err != nil {
				return err
			}
			<-ctx.Done()
			fmt.Fprintf(cmd.OutOrStdout(), "sent message %x (sequence %d)\n", msg.ID, msg.Sequence)
			return nil
		},
	}
}
