// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/dotandev/tzsubmit/internal/cmd"
)

// Build-time variables injected via -ldflags.
var (
	version   = "dev"
	commitSHA = "unknown"
)

func main() {
	cmd.Version = version
	cmd.CommitSHA = commitSHA
	os.Exit(run(cmd.Execute, os.Stderr))
}

// run maps the command outcome to an exit status.
func run(execute func() error, stderr io.Writer) int {
	err := execute()
	switch {
	case err == nil:
		return 0
	case cmd.IsInterrupted(err):
		if err != cmd.ErrInterrupted {
			fmt.Fprintf(stderr, "%v\n", err)
		}
		fmt.Fprint(stderr, "Interrupted. Shutting down...\n")
		return cmd.InterruptExitCode
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}
