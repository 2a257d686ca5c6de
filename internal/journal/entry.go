// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"encoding/json"
	stderrors "errors"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/fees"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// NewEntry describes one Submit call. res may be nil when the call failed
// before building anything.
func NewEntry(source, network string, ops []tezos.Operation, res *submitter.Result, err error) *Entry {
	tot := fees.OfOperations(ops)
	e := &Entry{
		Source:     source,
		Network:    network,
		Operations: len(ops),
		Stage:      string(submitter.StageBuilt),
		Fee:        int64(tot.TransactionFee),
		Burn:       int64(tot.BurnFee + tot.AllocationFee),
		Gas:        tot.Gas,
		Storage:    tot.Storage,
	}
	if raw, merr := json.Marshal(ops); merr == nil {
		e.PayloadJSON = string(raw)
	}
	if res != nil {
		e.Stage = string(res.Stage)
		e.OpHash = res.OpHash
		e.ForgedHex = res.ForgedHex
	}
	if err != nil {
		e.Error = err.Error()
		var ce *classifier.Error
		if stderrors.As(err, &ce) {
			e.ErrorKind = ce.Kind.String()
		}
	}
	return e
}
