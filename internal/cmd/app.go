// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/dotandev/tzsubmit/internal/compat"
	"github.com/dotandev/tzsubmit/internal/config"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/estimator"
	"github.com/dotandev/tzsubmit/internal/forge"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/rpc"
	"github.com/dotandev/tzsubmit/internal/signer"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/webhook"
)

// slowCallThreshold is the node call duration above which a warning is logged.
const slowCallThreshold = 5 * time.Second

// app holds the node clients and workflows built from configuration.
type app struct {
	cfg       *config.Config
	node      *rpc.Client
	parser    *rpc.Client
	forger    forge.Forger
	estimator *estimator.Estimator
	notifier  *webhook.Notifier
}

func newApp(cfg *config.Config) (*app, error) {
	if cfg == nil {
		return nil, errors.WrapConfigError("configuration not loaded", nil)
	}

	opts := []rpc.ClientOption{
		rpc.WithURLs(cfg.RPCURLs...),
		rpc.WithTimeout(cfg.RPCTimeout),
		rpc.WithRetry(rpc.DefaultRetryConfig()),
		rpc.WithMethodTelemetry(rpc.LogMethodTelemetry{Slow: slowCallThreshold}),
	}
	if cfg.RPCToken != "" {
		opts = append(opts, rpc.WithToken(cfg.RPCToken))
	}
	node, err := rpc.NewClient(opts...)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, node: node}

	if a.notifier, err = webhook.NewNotifier(cfg.Notify); err != nil {
		return nil, errors.WrapConfigError("invalid notify endpoints", err)
	}

	if cfg.ParseURL != "" {
		a.parser, err = rpc.NewClient(
			rpc.WithURLs(cfg.ParseURL),
			rpc.WithTimeout(cfg.RPCTimeout),
			rpc.WithRetry(rpc.DefaultRetryConfig()),
			rpc.WithMethodTelemetry(rpc.LogMethodTelemetry{Slow: slowCallThreshold}),
		)
		if err != nil {
			return nil, fmt.Errorf("parse node: %w", err)
		}
	}

	mode, err := forge.ParseMode(cfg.ForgeMode)
	if err != nil {
		return nil, err
	}
	// No in-process codec ships with the CLI; local mode reports
	// ErrForgingNotConfigured when used.
	a.forger, err = forge.New(mode, nil, node)
	if err != nil {
		return nil, err
	}

	var gate estimator.RecoveryGate = compat.Static(false)
	if cfg.BalanceRecovery {
		gate, err = compat.NewVersionGate(node, cfg.BalanceRecoveryConstraint)
		if err != nil {
			return nil, err
		}
	}

	a.estimator = estimator.New(node, a.forger, estimator.Config{
		ReorgMargin: cfg.ReorgMargin,
		Recovery:    gate,
		GasMargin:   cfg.GasMargin,
	})
	return a, nil
}

// signer builds the configured signer. Device signers need a transport that
// this binary does not provide.
func (a *app) signer() (signer.Signer, error) {
	return signer.New(signer.Options{
		Type:          a.cfg.SignerType,
		PrivateKeyHex: a.cfg.PrivateKeyHex,
	})
}

func (a *app) submitter(s signer.Signer) *submitter.Submitter {
	var parser submitter.Parser
	if a.parser != nil {
		parser = a.parser
	}
	return submitter.New(a.node, a.forger, parser, s, submitter.Config{ReorgMargin: a.cfg.ReorgMargin})
}

// openJournal opens the journal and schedules it to be closed at shutdown.
func (a *app) openJournal() (*journal.Store, func(), error) {
	store, err := journal.Open(a.cfg.JournalPath)
	if err != nil {
		return nil, nil, err
	}
	release := registerCloser("journal", store)
	return store, release, nil
}

func openJournal(cfg *config.Config) (*journal.Store, func(), error) {
	return (&app{cfg: cfg}).openJournal()
}
