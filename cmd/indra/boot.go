package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"lukechampine.com/blake3"

	"github.com/indranet/indra/internal/keystore"
	"github.com/indranet/indra/internal/node"
	"github.com/indranet/indra/pkg/config"
)

// blake3Sum fingerprints a signing public key the same way node.New does,
// so the CLI can report a member id before a Node is constructed.
func blake3Sum(signingPublicKey []byte) [32]byte {
	return blake3.Sum256(signingPublicKey)
}

// loadConfig reads --config/--data-dir flags over pkg/config's
// environment-and-file layering.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	searchPath, _ := cmd.Flags().GetString("config")

	var paths []string
	if searchPath != "" {
		paths = append(paths, searchPath)
	}
	if dataDir != "" {
		paths = append(paths, dataDir)
	}
	cfg, err := config.Load(paths...)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("indra: --data-dir (or INDRA_DATA_DIR) is required")
	}
	return cfg, nil
}

// newLogger builds the root logger per cfg.Logging, matching the
// ambient-stack convention of one logrus.Logger constructed at the edge
// and handed down via WithField-scoped children.
func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}
	if cfg.Logging.File != "" {
		if f, err := os.OpenFile(cfg.Logging.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644); err == nil {
			log.SetOutput(f)
		} else {
			log.WithError(err).Warn("indra: could not open log file, logging to stderr")
		}
	}
	return log
}

// keystorePath is where this CLI's identity keeps its sealed blob, per
// the §6 on-disk layout (identity/).
func keystorePath(cfg *config.Config) string {
	return filepath.Join(cfg.DataDir, "identity", "keys.json")
}

// unlockSecret picks the passphrase or pass-story configured for
// unlocking the keystore, returning it as configured (not normalized).
func unlockSecret(cfg *config.Config) (string, error) {
	if cfg.Keystore.Passphrase != "" {
		return cfg.Keystore.Passphrase, nil
	}
	if cfg.Keystore.PassStory != "" {
		return cfg.Keystore.PassStory, nil
	}
	return "", fmt.Errorf("indra: no keystore.passphrase or keystore.pass_story configured")
}

// loadKeys opens the sealed keystore at cfg's data dir.
func loadKeys(cfg *config.Config) (keystore.KeyMaterial, error) {
	secret, err := unlockSecret(cfg)
	if err != nil {
		return keystore.KeyMaterial{}, err
	}
	blob, err := keystore.ReadSealedBlob(keystorePath(cfg))
	if err != nil {
		return keystore.KeyMaterial{}, err
	}
	return keystore.Open(secret, blob)
}

// bootNode loads configuration, unlocks the keystore, and wires a
// node.Node ready for Start.
func bootNode(cmd *cobra.Command) (*node.Node, *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	keys, err := loadKeys(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("indra: %w (run `indra identity generate` first)", err)
	}
	log := newLogger(cfg)
	n, err := node.New(*cfg, keys, log)
	if err != nil {
		return nil, nil, err
	}
	return n, cfg, nil
}
