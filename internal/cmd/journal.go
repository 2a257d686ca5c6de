// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/spf13/cobra"
)

var (
	journalSourceFlag string
	journalFailedFlag bool
	journalLimitFlag  int
	journalJSONFlag   bool
	journalTTLFlag    time.Duration
	journalMaxFlag    int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect recorded submission attempts",
	Long: `Every submit records its outcome in a local SQLite journal: the stage
reached, the operation hash on success and the classified error on failure.

Example:
  tzsubmit journal list --failed
  tzsubmit journal show 6f1c...
  tzsubmit journal prune --ttl 720h`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, release, err := openJournal(appConfig)
		if err != nil {
			return err
		}
		defer release()

		entries, err := store.List(cmd.Context(), journal.Filter{
			Source:     journalSourceFlag,
			FailedOnly: journalFailedFlag,
			Limit:      journalLimitFlag,
		})
		if err != nil {
			return err
		}
		if journalJSONFlag {
			if entries == nil {
				entries = []*journal.Entry{}
			}
			return writeJSON(cmd.OutOrStdout(), entries)
		}
		renderJournal(newRenderer(cmd.OutOrStdout()), entries)
		return nil
	},
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, release, err := openJournal(appConfig)
		if err != nil {
			return err
		}
		defer release()

		e, err := store.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if journalJSONFlag {
			return writeJSON(cmd.OutOrStdout(), e)
		}
		renderJournalEntry(newRenderer(cmd.OutOrStdout()), e)
		return nil
	},
}

var journalPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old submissions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, release, err := openJournal(appConfig)
		if err != nil {
			return err
		}
		defer release()

		removed, err := store.Prune(cmd.Context(), journalTTLFlag, journalMaxFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d submission(s)\n", removed)
		return nil
	},
}

func init() {
	journalListCmd.Flags().StringVar(&journalSourceFlag, "source", "", "Only show submissions from this account")
	journalListCmd.Flags().BoolVar(&journalFailedFlag, "failed", false, "Only show failed submissions")
	journalListCmd.Flags().IntVar(&journalLimitFlag, "limit", 50, "Maximum number of submissions to show")
	journalCmd.PersistentFlags().BoolVar(&journalJSONFlag, "json", false, "Print as JSON")

	journalPruneCmd.Flags().DurationVar(&journalTTLFlag, "ttl", journal.DefaultTTL, "Remove submissions older than this; 0 keeps all")
	journalPruneCmd.Flags().IntVar(&journalMaxFlag, "max", journal.DefaultMaxEntries, "Keep at most this many submissions; 0 for no limit")

	journalCmd.AddCommand(journalListCmd, journalShowCmd, journalPruneCmd)
	rootCmd.AddCommand(journalCmd)
}
