// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/dotandev/tzsubmit/internal/submitter"
)

// InterruptExitCode is the conventional exit status after SIGINT.
const InterruptExitCode = 130

var ErrInterrupted = stderrors.New("interrupt received")

func IsInterrupted(err error) bool {
	return stderrors.Is(err, ErrInterrupted)
}

func IsCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled)
}

// interruptedSubmission turns a cancelled submission into an interrupt that
// names the stage it stopped at. Injection ignores cancellation, so a
// cancelled submission never reached the node's injection endpoint.
func interruptedSubmission(res *submitter.Result, err error) error {
	if !IsCancellation(err) || res == nil {
		return err
	}
	return fmt.Errorf("%w after stage %s: nothing was injected", ErrInterrupted, res.Stage)
}
