// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	stderrors "errors"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/spf13/cobra"
)

var (
	submitSourceFlag    string
	submitOpsFlag       string
	submitPublicKeyFlag string
	submitNoEstimate    bool
	submitNoJournal     bool
	submitJSONFlag      bool
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Estimate, forge, sign, preapply and inject an operation group",
	Long: `Submit an operation group to the network.

The group is estimated first unless --no-estimate is given, in which case
every operation must already carry its fees and limits. It is then forged,
verified against an independent parse node when forged remotely, signed,
preapplied and injected. Nothing is injected when preapply rejects it.

Every attempt, successful or not, is recorded in the journal and reported
to the configured notify endpoints.

Example:
  tzsubmit submit --ops transfer.json
  tzsubmit submit --ops estimated.json --no-estimate --json`,
	Args: cobra.NoArgs,
	RunE: runSubmit,
}

// submitView is the JSON form of a submission.
type submitView struct {
	Stage     submitter.Stage `json:"stage"`
	OpHash    string          `json:"op_hash,omitempty"`
	Branch    string          `json:"branch,omitempty"`
	Signature string          `json:"signature,omitempty"`
	JournalID string          `json:"journal_id,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
}

func runSubmit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ops, err := loadOperations(submitOpsFlag, cmd.InOrStdin())
	if err != nil {
		return err
	}

	a, err := newApp(appConfig)
	if err != nil {
		return err
	}
	s, err := a.signer()
	if err != nil {
		return err
	}

	source, publicKey, err := resolveAccount(s, ops, submitSourceFlag, submitPublicKeyFlag)
	if err != nil {
		return err
	}

	if !submitNoEstimate {
		ops, err = a.estimator.Estimate(ctx, source, ops, publicKey)
		if err != nil {
			return err
		}
	}

	res, submitErr := a.submitter(s).Submit(ctx, source, ops)
	submitErr = interruptedSubmission(res, submitErr)
	journalID := recordSubmission(ctx, a, source, ops, res, submitErr)

	if submitJSONFlag {
		view := submitView{JournalID: journalID}
		if res != nil {
			view.Stage, view.OpHash, view.Branch, view.Signature = res.Stage, res.OpHash, res.Branch, res.Signature
		}
		if submitErr != nil {
			view.Error = submitErr.Error()
			var ce *classifier.Error
			if stderrors.As(submitErr, &ce) {
				view.ErrorKind = ce.Kind.String()
			}
		}
		if err := writeJSON(cmd.OutOrStdout(), view); err != nil {
			return err
		}
	} else {
		renderSubmitResult(newRenderer(cmd.OutOrStdout()), res, journalID, submitErr)
	}
	return submitErr
}

// recordSubmission writes the attempt to the journal and reports it to the
// notify endpoints. It returns the journal id, or "" when journaling is off
// or fails. Neither step ever fails the submission.
func recordSubmission(ctx context.Context, a *app, source string, ops []tezos.Operation, res *submitter.Result, submitErr error) string {
	ctx = context.WithoutCancel(ctx)
	entry := journal.NewEntry(source, string(a.cfg.Network), ops, res, submitErr)
	if !recordJournal(ctx, a, entry) {
		entry.ID = ""
	}
	if err := a.notifier.Notify(ctx, entry); err != nil {
		logger.Logger.Warn("Submission notification failed", "error", err)
	}
	return entry.ID
}

func recordJournal(ctx context.Context, a *app, entry *journal.Entry) bool {
	if submitNoJournal {
		return false
	}
	store, release, err := a.openJournal()
	if err != nil {
		logger.Logger.Warn("Journal unavailable, submission not recorded", "error", err)
		return false
	}
	defer release()

	if err := store.Record(ctx, entry); err != nil {
		logger.Logger.Warn("Failed to record submission", "error", err)
		return false
	}
	return true
}

func init() {
	submitCmd.Flags().StringVar(&submitSourceFlag, "source", "", "Source account (default: first operation's source, then the signer)")
	submitCmd.Flags().StringVar(&submitOpsFlag, "ops", "-", "File holding the operations as JSON, - for stdin")
	submitCmd.Flags().StringVar(&submitPublicKeyFlag, "public-key", "", "Public key used to reveal an unrevealed source")
	submitCmd.Flags().BoolVar(&submitNoEstimate, "no-estimate", false, "Submit the operations with the fees they carry")
	submitCmd.Flags().BoolVar(&submitNoJournal, "no-journal", false, "Do not record the attempt in the journal")
	submitCmd.Flags().BoolVar(&submitJSONFlag, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(submitCmd)
}
