// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dotandev/tzsubmit/internal/config"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/shutdown"
	"github.com/dotandev/tzsubmit/internal/telemetry"
	"github.com/spf13/cobra"
)

// Global flag variables
var (
	ConfigFlag  string
	NoColorFlag bool
)

// appConfig is loaded by the root PersistentPreRunE before any subcommand runs.
var appConfig *config.Config

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tzsubmit",
	Short: "Estimate, sign and inject Tezos operation groups",
	Long: `tzsubmit prepares Tezos operation groups for submission: it fetches the
account counter and branch, simulates the group to size gas, storage and
fees, then forges, signs, preapplies and injects it.

Node errors are reduced to a small set of kinds (insufficient funds,
counter error, gas exhausted, ...) so that scripts can react to them.

Examples:
  tzsubmit estimate --ops transfer.json                  Estimate fees
  tzsubmit submit --ops transfer.json --network ghostnet Sign and inject
  tzsubmit classify response.json                        Classify a node error
  tzsubmit journal list --failed                         Review failed submissions
  tzsubmit daemon --port 8545                            Serve JSON-RPC`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadAppConfig(cmd)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func loadAppConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadWithFlags(ConfigFlag, cmd.Flags())
	if err != nil {
		return err
	}

	logger.SetOutput(os.Stderr, cfg.LogJSON)
	logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
	logger.Logger.Debug("Configuration loaded", "config", cfg.String())

	if cfg.Telemetry.Enabled {
		flush, err := telemetry.Init(cmd.Context(), telemetry.Config{
			Enabled:     true,
			ExporterURL: cfg.Telemetry.ExporterURL,
			ServiceName: cfg.Telemetry.ServiceName,
			Version:     Version,
			Network:     string(cfg.Network),
			SampleRatio: cfg.Telemetry.SampleRatio,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		registerShutdownHook("telemetry", func(context.Context) error {
			flush()
			return nil
		})
	}

	appConfig = cfg
	return nil
}

// Execute runs the root command with SIGINT and SIGTERM wired to context
// cancellation. It is called by main.main().
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	coordinator := shutdown.NewCoordinator()
	setShutdownCoordinator(coordinator)
	defer clearShutdownCoordinator()

	return executeWithSignals(ctx, cancel, sigCh, coordinator, func(execCtx context.Context) error {
		return rootCmd.ExecuteContext(execCtx)
	})
}

// executeWithSignals runs fn and, on a signal, cancels its context and waits
// briefly for it to return. Shutdown hooks run in both cases.
func executeWithSignals(ctx context.Context, cancel context.CancelFunc, sigCh <-chan os.Signal, coordinator *shutdown.Coordinator, fn func(context.Context) error) error {
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	select {
	case err := <-done:
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)
		return err
	case sig := <-sigCh:
		logger.Logger.Info("Signal received, cancelling", "signal", sig.String())
		cancel()
		result := ErrInterrupted
		select {
		case err := <-done:
			if IsInterrupted(err) {
				result = err
			}
		case <-time.After(shutdownTimeout):
			logger.Logger.Warn("Command did not stop before the shutdown timeout")
		}
		runShutdownHooksWithTimeout(coordinator, shutdownTimeout)
		return result
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&ConfigFlag, "config", "", "Config file (default .tzsubmit.{yaml,toml,json} in ., $HOME or /etc/tzsubmit)")
	rootCmd.PersistentFlags().String("network", "", "Network preset: mainnet, ghostnet, sandbox or custom")
	rootCmd.PersistentFlags().StringSlice("rpc-url", nil, "Node RPC URL; repeat or comma-separate for failover")
	rootCmd.PersistentFlags().String("rpc-token", "", "Bearer token sent to the node")
	rootCmd.PersistentFlags().String("parse-url", "", "Independent node used to verify remotely forged bytes")
	rootCmd.PersistentFlags().String("forge-mode", "", "Forging strategy: remote or local")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	rootCmd.PersistentFlags().String("journal", "", "Path of the submission journal database")
	rootCmd.PersistentFlags().BoolVar(&NoColorFlag, "no-color", false, "Disable colored output")
}
