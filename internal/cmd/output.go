// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/fees"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/terminal"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

func newRenderer(w io.Writer) terminal.Renderer {
	return terminal.NewANSIRenderer(w, NoColorFlag)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// estimateView is the JSON form of an estimate.
type estimateView struct {
	Operations []tezos.Operation `json:"operations"`
	Totals     fees.Totals       `json:"totals"`
	Total      tezos.Mutez       `json:"total_mutez"`
}

func newEstimateView(ops []tezos.Operation) estimateView {
	t := fees.OfOperations(ops)
	return estimateView{Operations: ops, Totals: t, Total: t.Total()}
}

func renderOperations(r terminal.Renderer, ops []tezos.Operation) {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tKIND\tCOUNTER\tGAS\tSTORAGE\tFEE\tBURN")
	for i, op := range ops {
		f := op.Fees()
		burn := f.NetworkFeeTotal(tezos.BurnFee) + f.NetworkFeeTotal(tezos.AllocationFee)
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%s\n",
			i, op.Kind(), op.Counter(), f.GasLimit, f.StorageLimit,
			tezos.FormatTez(f.TransactionFee), tezos.FormatTez(burn))
	}
	_ = tw.Flush()
	r.Printf("%s", b.String())

	t := fees.OfOperations(ops)
	r.Println()
	r.Printf("%s %s tez (fee %s, burn %s, allocation %s)\n",
		r.Colorize("Total:", terminal.Bold),
		tezos.FormatTez(t.Total()),
		tezos.FormatTez(t.TransactionFee),
		tezos.FormatTez(t.BurnFee),
		tezos.FormatTez(t.AllocationFee))
}

func renderSubmitResult(r terminal.Renderer, res *submitter.Result, journalID string, err error) {
	if err == nil {
		r.Printf("%s Injected %s\n", r.Success(), r.Colorize(res.OpHash, terminal.Cyan))
	} else {
		stage := submitter.Stage("")
		if res != nil {
			stage = res.Stage
		}
		r.Printf("%s Submission stopped after stage %q\n", r.Error(), stage)
		var ce *classifier.Error
		if stderrors.As(err, &ce) {
			renderClassified(r, ce)
		}
	}
	if journalID != "" {
		r.Printf("%s\n", r.Colorize("journal: "+journalID, terminal.Dim))
	}
}

func renderClassified(r terminal.Renderer, ce *classifier.Error) {
	if ce == nil {
		r.Printf("%s No chain error recognised\n", r.Warning())
		return
	}
	r.Printf("%s %s\n", r.Colorize("Kind:", terminal.Bold), r.Colorize(ce.Kind.String(), terminal.Red))
	r.Printf("%s\n", classifier.Describe(ce.Kind))
	if ce.Entry != nil {
		if ce.Entry.ID != "" {
			r.Printf("  id:        %s\n", ce.Entry.ID)
		}
		if fw := ce.Entry.FailWith(); fw != "" {
			r.Printf("  fail with: %s\n", fw)
		}
	}
	if ce.StatusCode != 0 {
		r.Printf("  node:      %s %s -> %d\n", ce.Method, ce.URL, ce.StatusCode)
	}
}

func renderJournal(r terminal.Renderer, entries []*journal.Entry) {
	if len(entries) == 0 {
		r.Println("No submissions recorded.")
		return
	}
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tSOURCE\tOPS\tSTAGE\tRESULT")
	for _, e := range entries {
		result := e.OpHash
		if !e.Succeeded() {
			result = e.ErrorKind
			if result == "" {
				result = "failed"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Source, e.Operations, e.Stage, result)
	}
	_ = tw.Flush()
	r.Printf("%s", b.String())
}

func renderJournalEntry(r terminal.Renderer, e *journal.Entry) {
	status := r.Success()
	if !e.Succeeded() {
		status = r.Error()
	}
	r.Printf("%s %s\n", status, r.Colorize(e.ID, terminal.Bold))
	r.Printf("  when:       %s\n", e.CreatedAt.Local().Format(time.RFC3339))
	r.Printf("  source:     %s (%s)\n", e.Source, e.Network)
	r.Printf("  operations: %d\n", e.Operations)
	r.Printf("  stage:      %s\n", e.Stage)
	r.Printf("  fee:        %s tez, burn %s tez\n", tezos.FormatTez(tezos.Mutez(e.Fee)), tezos.FormatTez(tezos.Mutez(e.Burn)))
	r.Printf("  limits:     gas %d, storage %d\n", e.Gas, e.Storage)
	if e.OpHash != "" {
		r.Printf("  hash:       %s\n", r.Colorize(e.OpHash, terminal.Cyan))
	}
	if e.Error != "" {
		r.Printf("  error:      %s\n", r.Colorize(e.ErrorKind, terminal.Red))
		r.Printf("              %s\n", e.Error)
	}
}
