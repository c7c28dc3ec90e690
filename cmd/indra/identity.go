package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/indranet/indra/internal/ids"
	"github.com/indranet/indra/internal/keystore"
	"github.com/indranet/indra/internal/wire"
)

func identityCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "identity", Short: "manage this node's identity keystore"}
	cmd.AddCommand(identityGenerateCmd())
	cmd.AddCommand(identityShowCmd())
	return cmd
}

func identityGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate and seal a new identity keystore",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			path := keystorePath(cfg)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("indra: keystore already exists at %s", path)
			}

			secret, err := unlockSecret(cfg)
			if err != nil {
				return err
			}
			passStory, _ := cmd.Flags().GetStringSlice("pass-story")
			if len(passStory) > 0 {
				secret, err = keystore.NormalizePassStory(passStory)
				if err != nil {
					return err
				}
			}

			material, err := keystore.GenerateKeyMaterial()
			if err != nil {
				return err
			}
			blob, err := keystore.Seal(secret, material)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return err
			}
			if err := keystore.WriteSealedBlob(path, blob); err != nil {
				return err
			}

			self := ids.MemberId(blake3Sum(material.SigningPublicKey))
			code, err := wire.EncodeIdentityCode(self)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "identity written to %s\nmember id: %s\n", path, code)
			return nil
		},
	}
	cmd.Flags().StringSlice("pass-story", nil, "23-word pass-story (comma-separated); overrides keystore.passphrase")
	return cmd
}

func identityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "print this node's identity code",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			keys, err := loadKeys(cfg)
			if err != nil {
				return err
			}
			self := ids.MemberId(blake3Sum(keys.SigningPublicKey))
			uri, err := wire.FormatIdentityURI(self, cfg.DisplayName)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(uri))
			return nil
		},
	}
}
