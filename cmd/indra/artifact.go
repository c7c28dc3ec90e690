package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/indranet/indra/internal/artifact"
)

func artifactCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "artifact", Short: "share, grant, revoke, and recall artifacts"}
	cmd.AddCommand(artifactShareCmd())
	cmd.AddCommand(artifactGrantCmd())
	cmd.AddCommand(artifactRevokeCmd())
	cmd.AddCommand(artifactRecallCmd())
	return cmd
}

func parseArtifactID(raw string) (artifact.ID, error) {
	b, err := hex.DecodeString(raw)
	if err != nil || len(b) != 32 {
		return artifact.ID{}, fmt.Errorf("indra: %q is not a 32-byte hex artifact id", raw)
	}
	var id artifact.ID
	copy(id.Value[:], b)
	return id, nil
}

func artifactShareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share <path>",
		Short: "share a local file, recording it as Active in the home index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			mime, _ := cmd.Flags().GetString("mime")
			id, err := n.Share(data, args[0], mime, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "artifact id: %x\n", id.Value)
			return nil
		},
	}
	cmd.Flags().String("mime", "application/octet-stream", "MIME type to record")
	return cmd
}

func parseMode(raw string) (artifact.Mode, error) {
	switch raw {
	case "revocable":
		return artifact.ModeRevocable, nil
	case "permanent":
		return artifact.ModePermanent, nil
	case "timed":
		return artifact.ModeTimed, nil
	case "transfer":
		return artifact.ModeTransfer, nil
	default:
		return 0, fmt.Errorf("indra: unknown access mode %q (want revocable|permanent|timed|transfer)", raw)
	}
}

func artifactGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <artifact-id-hex> <member-code> <revocable|permanent|timed|transfer>",
		Short: "grant a member access to an owned artifact",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			grantee, err := parseMember(args[1])
			if err != nil {
				return err
			}
			mode, err := parseMode(args[2])
			if err != nil {
				return err
			}
			var expiry *int64
			if mode == artifact.ModeTimed {
				secs, _ := cmd.Flags().GetInt64("expires-in")
				if secs <= 0 {
					return fmt.Errorf("indra: --expires-in is required for a timed grant")
				}
				e := time.Now().Unix() + secs
				expiry = &e
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			if err := n.Grant(id, grantee, mode, expiry, nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "granted")
			return nil
		},
	}
	cmd.Flags().Int64("expires-in", 0, "seconds until a timed grant expires")
	return cmd
}

func artifactRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <artifact-id-hex> <member-code>",
		Short: "revoke a revocable or timed grant",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			grantee, err := parseMember(args[1])
			if err != nil {
				return err
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			if err := n.Revoke(id, grantee); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "revoked")
			return nil
		},
	}
}

func artifactRecallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "recall <artifact-id-hex>",
		Short: "recall an artifact tree, stripping non-permanent grants from every descendant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseArtifactID(args[0])
			if err != nil {
				return err
			}
			n, _, err := bootNode(cmd)
			if err != nil {
				return err
			}
			notes, err := n.Recall(id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recalled, %s notifications queued\n", strconv.Itoa(len(notes)))
			return nil
		},
	}
}
