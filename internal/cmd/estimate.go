// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/spf13/cobra"
)

var (
	estimateSourceFlag    string
	estimateOpsFlag       string
	estimatePublicKeyFlag string
	estimateJSONFlag      bool
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Simulate an operation group and attach counters, limits and fees",
	Long: `Simulate an operation group against the node and print it back with
counters, gas and storage limits and fees attached.

Operations are read as JSON, either an array of operations or an operation
group object with a "contents" field. A reveal is prepended when the source
account is not yet revealed; its public key comes from --public-key or the
configured signer.

Fees already present on an operation are kept when they are larger than the
estimate.

Example:
  tzsubmit estimate --ops transfer.json
  cat transfer.json | tzsubmit estimate --json`,
	Args: cobra.NoArgs,
	RunE: runEstimate,
}

func runEstimate(cmd *cobra.Command, args []string) error {
	ops, err := loadOperations(estimateOpsFlag, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(appConfig)
	if err != nil {
		return err
	}

	source, publicKey, err := resolveAccount(optionalSigner(a), ops, estimateSourceFlag, estimatePublicKeyFlag)
	if err != nil {
		return err
	}

	estimated, err := a.estimator.Estimate(cmd.Context(), source, ops, publicKey)
	if err != nil {
		return err
	}

	if estimateJSONFlag {
		return writeJSON(cmd.OutOrStdout(), newEstimateView(estimated))
	}
	renderOperations(newRenderer(cmd.OutOrStdout()), estimated)
	return nil
}

func init() {
	estimateCmd.Flags().StringVar(&estimateSourceFlag, "source", "", "Source account (default: first operation's source, then the signer)")
	estimateCmd.Flags().StringVar(&estimateOpsFlag, "ops", "-", "File holding the operations as JSON, - for stdin")
	estimateCmd.Flags().StringVar(&estimatePublicKeyFlag, "public-key", "", "Public key used to reveal an unrevealed source")
	estimateCmd.Flags().BoolVar(&estimateJSONFlag, "json", false, "Print the estimated operations as JSON")

	rootCmd.AddCommand(estimateCmd)
}
