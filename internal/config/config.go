// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dotandev/tzsubmit/internal/compat"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/webhook"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. TZSUBMIT_RPC_URLS.
const EnvPrefix = "TZSUBMIT"

// Config represents the general configuration for tzsubmit
type Config struct {
	Network     Network       `mapstructure:"network" json:"network,omitempty"`
	RPCURLs     []string      `mapstructure:"rpc_urls" json:"rpc_urls,omitempty"`
	RPCToken    string        `mapstructure:"rpc_token" json:"-"`
	RPCTimeout  time.Duration `mapstructure:"rpc_timeout" json:"rpc_timeout,omitempty"`
	ParseURL    string        `mapstructure:"parse_url" json:"parse_url,omitempty"`
	ForgeMode   string        `mapstructure:"forge_mode" json:"forge_mode,omitempty"`
	ReorgMargin int           `mapstructure:"reorg_margin" json:"reorg_margin"`
	GasMargin   int64         `mapstructure:"gas_margin" json:"gas_margin,omitempty"`

	LogLevel string `mapstructure:"log_level" json:"log_level,omitempty"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json,omitempty"`

	SignerType    string `mapstructure:"signer_type" json:"signer_type,omitempty"`
	PrivateKeyHex string `mapstructure:"private_key_hex" json:"-"`

	// BalanceRecovery enables reading a balance_too_low dry run as a
	// successful one on nodes matching BalanceRecoveryConstraint.
	BalanceRecovery           bool   `mapstructure:"balance_recovery" json:"balance_recovery"`
	BalanceRecoveryConstraint string `mapstructure:"balance_recovery_constraint" json:"balance_recovery_constraint,omitempty"`

	JournalPath string `mapstructure:"journal_path" json:"journal_path,omitempty"`

	Telemetry TelemetryConfig `mapstructure:"telemetry" json:"telemetry"`

	DaemonPort  int    `mapstructure:"daemon_port" json:"daemon_port,omitempty"`
	DaemonToken string `mapstructure:"daemon_token" json:"-"`

	Notify webhook.NotifierConfig `mapstructure:"notify" json:"notify"`
}

type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled" json:"enabled"`
	ExporterURL string  `mapstructure:"exporter_url" json:"exporter_url,omitempty"`
	ServiceName string  `mapstructure:"service_name" json:"service_name,omitempty"`
	SampleRatio float64 `mapstructure:"sample_ratio" json:"sample_ratio,omitempty"`
}

var defaultConfig = &Config{
	Network:                   NetworkMainnet,
	RPCTimeout:                30 * time.Second,
	ForgeMode:                 "remote",
	ReorgMargin:               5,
	LogLevel:                  "info",
	SignerType:                "software",
	BalanceRecovery:           true,
	BalanceRecoveryConstraint: compat.DefaultBalanceRecoveryConstraint,
	JournalPath:               filepath.Join(os.ExpandEnv("$HOME"), ".tzsubmit", "journal.db"),
	Telemetry: TelemetryConfig{
		ExporterURL: "localhost:4318",
		ServiceName: "tzsubmit",
	},
	DaemonPort: 8545,
}

// DefaultConfig returns a fresh copy of the built-in defaults.
func DefaultConfig() *Config {
	c := *defaultConfig
	c.RPCURLs = append([]string(nil), defaultConfig.RPCURLs...)
	return &c
}

func setDefaults(v *viper.Viper) {
	d := defaultConfig
	v.SetDefault("network", string(d.Network))
	v.SetDefault("rpc_urls", []string{})
	v.SetDefault("rpc_token", "")
	v.SetDefault("rpc_timeout", d.RPCTimeout)
	v.SetDefault("parse_url", "")
	v.SetDefault("forge_mode", d.ForgeMode)
	v.SetDefault("reorg_margin", d.ReorgMargin)
	v.SetDefault("gas_margin", 0)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", false)
	v.SetDefault("signer_type", d.SignerType)
	v.SetDefault("private_key_hex", "")
	v.SetDefault("balance_recovery", d.BalanceRecovery)
	v.SetDefault("balance_recovery_constraint", d.BalanceRecoveryConstraint)
	v.SetDefault("journal_path", d.JournalPath)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.exporter_url", d.Telemetry.ExporterURL)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.sample_ratio", 0.0)
	v.SetDefault("daemon_port", d.DaemonPort)
	v.SetDefault("daemon_token", "")
	v.SetDefault("notify.error_only", false)
}

// Load reads .tzsubmit.{yaml,toml,json} from the working directory, $HOME
// or /etc/tzsubmit, overlays TZSUBMIT_* environment variables and
// validates the result. A non-empty path selects that file instead and
// must exist.
func Load(path string) (*Config, error) {
	return LoadWithFlags(path, nil)
}

// FlagKeys maps command-line flag names to configuration keys.
var FlagKeys = map[string]string{
	"network":    "network",
	"rpc-url":    "rpc_urls",
	"rpc-token":  "rpc_token",
	"parse-url":  "parse_url",
	"forge-mode": "forge_mode",
	"log-level":  "log_level",
	"log-json":   "log_json",
	"journal":    "journal_path",
}

// LoadWithFlags is Load with flags from FlagKeys taking precedence over the
// environment and the file when they were set on the command line.
func LoadWithFlags(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.WrapConfigError("failed to bind flag --"+name, err)
				}
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".tzsubmit")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath("/etc/tzsubmit")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrors.As(err, &notFound) {
			return nil, errors.WrapConfigError("failed to read config file", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapConfigError("failed to parse config", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// normalize trims list entries and fills node URLs from the network preset.
func (c *Config) normalize() {
	var urls []string
	for _, u := range c.RPCURLs {
		for _, part := range strings.Split(u, ",") {
			if part = strings.TrimSpace(part); part != "" {
				urls = append(urls, part)
			}
		}
	}
	c.RPCURLs = urls
	c.ForgeMode = strings.ToLower(strings.TrimSpace(c.ForgeMode))
	c.MergeDefaults()
}

// MergeDefaults fills empty fields from the network preset and the built-in
// defaults.
func (c *Config) MergeDefaults() {
	if c.Network == "" {
		c.Network = defaultConfig.Network
	}
	if len(c.RPCURLs) == 0 {
		if p, ok := LookupNetwork(c.Network); ok {
			c.RPCURLs = append([]string(nil), p.RPCURLs...)
			if c.ParseURL == "" {
				c.ParseURL = p.ParseURL
			}
		}
	}
	if c.ForgeMode == "" {
		c.ForgeMode = defaultConfig.ForgeMode
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultConfig.LogLevel
	}
	if c.RPCTimeout == 0 {
		c.RPCTimeout = defaultConfig.RPCTimeout
	}
	if c.BalanceRecoveryConstraint == "" {
		c.BalanceRecoveryConstraint = defaultConfig.BalanceRecoveryConstraint
	}
	if c.JournalPath == "" {
		c.JournalPath = defaultConfig.JournalPath
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = defaultConfig.Telemetry.ServiceName
	}
}

func (c *Config) Validate() error {
	return RunValidators(c, DefaultValidators())
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Network: %s, RPC: %s, Forge: %s, LogLevel: %s, Journal: %s}",
		c.Network, strings.Join(c.RPCURLs, ","), c.ForgeMode, c.LogLevel, c.JournalPath,
	)
}
