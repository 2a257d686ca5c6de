// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"strings"

	"github.com/dotandev/tzsubmit/internal/compat"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/forge"
	"github.com/dotandev/tzsubmit/internal/rpc"
	"github.com/dotandev/tzsubmit/internal/signer"
	"github.com/dotandev/tzsubmit/internal/webhook"
)

// Validator validates a specific aspect of the configuration.
type Validator interface {
	Validate(cfg *Config) error
}

// NetworkValidator checks that the configured network is recognized.
type NetworkValidator struct{}

func (v NetworkValidator) Validate(cfg *Config) error {
	if cfg.Network != "" && !validNetwork(cfg.Network) {
		return errors.WrapValidationError(fmt.Sprintf("unknown network %q", cfg.Network))
	}
	return nil
}

// RPCValidator checks the node URLs and the independent parse node.
type RPCValidator struct{}

func (v RPCValidator) Validate(cfg *Config) error {
	if len(cfg.RPCURLs) == 0 {
		return errors.WrapValidationError("rpc_urls cannot be empty")
	}
	for i, u := range cfg.RPCURLs {
		if err := rpc.ValidateURL(u); err != nil {
			return fmt.Errorf("rpc_urls[%d]: %w", i, err)
		}
	}
	if cfg.ParseURL != "" {
		if err := rpc.ValidateURL(cfg.ParseURL); err != nil {
			return fmt.Errorf("parse_url: %w", err)
		}
	}
	if cfg.RPCTimeout < 0 {
		return errors.WrapValidationError("rpc_timeout must not be negative")
	}
	return nil
}

// ForgeValidator checks the forge mode and the margins that go with it.
type ForgeValidator struct{}

func (v ForgeValidator) Validate(cfg *Config) error {
	if cfg.ForgeMode != "" {
		if _, err := forge.ParseMode(cfg.ForgeMode); err != nil {
			return err
		}
	}
	if cfg.ReorgMargin < 0 {
		return errors.WrapValidationError("reorg_margin must not be negative")
	}
	if cfg.GasMargin < 0 {
		return errors.WrapValidationError("gas_margin must not be negative")
	}
	return nil
}

// RecoveryValidator checks the node version constraint syntax.
type RecoveryValidator struct{}

func (v RecoveryValidator) Validate(cfg *Config) error {
	if !cfg.BalanceRecovery || cfg.BalanceRecoveryConstraint == "" {
		return nil
	}
	_, err := compat.ParseConstraint(cfg.BalanceRecoveryConstraint)
	return err
}

// SignerValidator checks the signer type. Keys are checked when a signer is
// built, since estimation needs none.
type SignerValidator struct{}

func (v SignerValidator) Validate(cfg *Config) error {
	switch cfg.SignerType {
	case "", signer.TypeSoftware, signer.TypeDevice:
		return nil
	}
	return errors.WrapValidationError(fmt.Sprintf("signer_type must be %q or %q", signer.TypeSoftware, signer.TypeDevice))
}

// LogLevelValidator checks that the log level is a known value.
type LogLevelValidator struct{}

var validLogLevels = map[string]bool{
	"debug":   true,
	"info":    true,
	"warn":    true,
	"warning": true,
	"error":   true,
}

func (v LogLevelValidator) Validate(cfg *Config) error {
	if cfg.LogLevel == "" {
		return nil
	}
	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		return errors.WrapValidationError("log_level must be one of: debug, info, warn, error")
	}
	return nil
}

// DaemonValidator checks the listening port.
type DaemonValidator struct{}

func (v DaemonValidator) Validate(cfg *Config) error {
	if cfg.DaemonPort < 0 || cfg.DaemonPort > 65535 {
		return errors.WrapValidationError(fmt.Sprintf("daemon_port %d is out of range", cfg.DaemonPort))
	}
	return nil
}

// NotifyValidator checks that every webhook endpoint has a usable URL and
// type.
type NotifyValidator struct{}

func (v NotifyValidator) Validate(cfg *Config) error {
	for i, wh := range cfg.Notify.Webhooks {
		if _, err := webhook.NewClient(wh); err != nil {
			return errors.WrapValidationError(fmt.Sprintf("notify.endpoints[%d]: %v", i, err))
		}
	}
	return nil
}

// DefaultValidators returns the standard set of validators.
func DefaultValidators() []Validator {
	return []Validator{
		NetworkValidator{},
		RPCValidator{},
		ForgeValidator{},
		RecoveryValidator{},
		SignerValidator{},
		LogLevelValidator{},
		DaemonValidator{},
		NotifyValidator{},
	}
}

// RunValidators executes each validator against the config, returning the
// first error encountered.
func RunValidators(cfg *Config, validators []Validator) error {
	for _, v := range validators {
		if err := v.Validate(cfg); err != nil {
			return err
		}
	}
	return nil
}
