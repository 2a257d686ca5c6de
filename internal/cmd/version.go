// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/dotandev/tzsubmit/internal/compat"
	"github.com/spf13/cobra"
)

var (
	// Version will be set by the main package
	Version = "dev"
	// CommitSHA will be set by the main package
	CommitSHA = "unknown"

	versionNodeFlag bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of tzsubmit",
	Long: `Display the current version of the tzsubmit CLI tool.

With --node the configured node is asked for its release as well, and the
result of the balance recovery version gate is shown.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintf(cmd.OutOrStdout(), "tzsubmit version %s (%s)\n", Version, CommitSHA)
		if !versionNodeFlag {
			return nil
		}
		if err := loadAppConfig(cmd); err != nil {
			return err
		}
		return printNodeVersion(cmd)
	},
}

func printNodeVersion(cmd *cobra.Command) error {
	a, err := newApp(appConfig)
	if err != nil {
		return err
	}
	v, err := a.node.NodeVersion(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read node version: %w", err)
	}

	recovery := "disabled"
	if appConfig.BalanceRecovery {
		gate, err := compat.NewVersionGate(a.node, appConfig.BalanceRecoveryConstraint)
		if err != nil {
			return err
		}
		if gate.Allow(cmd.Context()) {
			recovery = "enabled"
		} else {
			recovery = "not supported by this node (" + appConfig.BalanceRecoveryConstraint + ")"
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "node version %s (%s)\n", v, appConfig.Network)
	fmt.Fprintf(cmd.OutOrStdout(), "balance recovery: %s\n", recovery)
	return nil
}

func init() {
	versionCmd.Flags().BoolVar(&versionNodeFlag, "node", false, "Also query the configured node's version")
	rootCmd.AddCommand(versionCmd)
}
