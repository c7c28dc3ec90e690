// Package config provides a reusable loader for the node's bootstrap
// configuration and environment variables. It is versioned so that
// embedders can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/indranet/indra/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config holds the environment inputs the core consumes to boot a node.
// Everything else (CLI ergonomics, presets, onboarding) lives outside the
// core and layers configuration on top of this struct.
type Config struct {
	// DataDir is the root of the on-disk layout: identity/, realms/,
	// blobs/, logs/.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// DisplayName is the human-readable name advertised to peers; it is
	// never used for addressing.
	DisplayName string `mapstructure:"display_name" json:"display_name"`

	// RelayEndpoints lists optional store-and-forward relays used when a
	// direct transport path to a peer is unavailable.
	RelayEndpoints []string `mapstructure:"relay_endpoints" json:"relay_endpoints"`

	Keystore struct {
		// Passphrase unlocks the keystore directly. Mutually exclusive
		// with PassStory; Passphrase wins if both are set.
		Passphrase string `mapstructure:"passphrase" json:"-"`
		// PassStory is 23 slots already joined by the caller. It is
		// used as the key-derivation secret exactly as given; nothing
		// normalizes it on the way to the keystore.
		PassStory string `mapstructure:"pass_story" json:"-"`
	} `mapstructure:"keystore" json:"keystore"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`

	Network struct {
		ListenAddr     string   `mapstructure:"listen_addr" json:"listen_addr"`
		DiscoveryTag   string   `mapstructure:"discovery_tag" json:"discovery_tag"`
		BootstrapPeers []string `mapstructure:"bootstrap_peers" json:"bootstrap_peers"`
	} `mapstructure:"network" json:"network"`
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads an optional configuration file named "indra" from the given
// search paths, merges INDRA_-prefixed environment variables over it, and
// stores the result in AppConfig.
//
// A missing config file is not an error: the core is expected to run from
// environment variables alone in embedded deployments.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("indra")
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("INDRA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("network.discovery_tag", "indra-mdns")
	v.SetDefault("logging.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, utils.Wrap(err, "load config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, utils.Wrap(err, "unmarshal config")
	}
	if cfg.DataDir == "" {
		cfg.DataDir = utils.EnvOrDefault("INDRA_DATA_DIR", "")
	}
	AppConfig = cfg
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using only environment variables, rooted
// at the directory named by INDRA_DATA_DIR (if set, it is also used as a
// config file search path).
func LoadFromEnv() (*Config, error) {
	dir := utils.EnvOrDefault("INDRA_DATA_DIR", ".")
	return Load(dir)
}
