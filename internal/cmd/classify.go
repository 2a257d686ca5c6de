// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/spf13/cobra"
)

var classifyJSONFlag bool

var classifyCmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Classify a node error response",
	Long: `Reduce a node response to a single error kind without contacting the
network. The input may be a chain error list, a simulation or preapply
result, or a plain-text message; it is read from the file argument or stdin.

Example:
  tzsubmit classify response.json
  curl -s $NODE/... | tzsubmit classify --json`,
	Args: cobra.MaximumNArgs(1),
	// Offline; configuration is not needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE:              runClassify,
}

// classifyView is the JSON form of a classification.
type classifyView struct {
	Classified  bool   `json:"classified"`
	Kind        string `json:"kind,omitempty"`
	Description string `json:"description,omitempty"`
	ID          string `json:"id,omitempty"`
	FailWith    string `json:"fail_with,omitempty"`
	Entries     int    `json:"entries,omitempty"`
}

func newClassifyView(ce *classifier.Error) classifyView {
	if ce == nil {
		return classifyView{}
	}
	v := classifyView{
		Classified:  true,
		Kind:        ce.Kind.String(),
		Description: classifier.Describe(ce.Kind),
		Entries:     len(ce.Entries),
	}
	if ce.Entry != nil {
		v.ID = ce.Entry.ID
		v.FailWith = ce.Entry.FailWith()
	}
	return v
}

func runClassify(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	}
	body, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	ce := classifier.ClassifyBody(string(body))
	if classifyJSONFlag {
		return writeJSON(cmd.OutOrStdout(), newClassifyView(ce))
	}
	renderClassified(newRenderer(cmd.OutOrStdout()), ce)
	return nil
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyJSONFlag, "json", false, "Print the classification as JSON")
	rootCmd.AddCommand(classifyCmd)
}
