// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation result statuses reported by the chain.
const (
	StatusApplied     = "applied"
	StatusFailed      = "failed"
	StatusBacktracked = "backtracked"
	StatusSkipped     = "skipped"
)

// SimulationResult is the response of the dry-run endpoint: one entry per
// operation of the simulated group, in order.
type SimulationResult struct {
	Contents []SimulatedOperation `json:"contents"`
}

// SimulatedOperation is one simulated operation with its receipt.
type SimulatedOperation struct {
	Kind     OperationKind     `json:"kind"`
	Metadata OperationReceipt `json:"metadata"`
}

// OperationReceipt holds the top-level result and the results of internal
// operations emitted by contract calls.
type OperationReceipt struct {
	OperationResult          OperationResult           `json:"operation_result"`
	InternalOperationResults []InternalOperationResult `json:"internal_operation_results,omitempty"`
}

// InternalOperationResult is the receipt of an operation emitted by a contract.
type InternalOperationResult struct {
	Kind   OperationKind   `json:"kind"`
	Source string          `json:"source,omitempty"`
	Result OperationResult `json:"result"`
}

// OperationResult is the resource usage and outcome of one operation.
type OperationResult struct {
	Status                       string     `json:"status"`
	ConsumedGas                  int64      `json:"consumed_gas,string,omitempty"`
	ConsumedMilligas             int64      `json:"consumed_milligas,string,omitempty"`
	PaidStorageSizeDiff          int64      `json:"paid_storage_size_diff,string,omitempty"`
	AllocatedDestinationContract bool       `json:"allocated_destination_contract,omitempty"`
	OriginatedContracts          []string   `json:"originated_contracts,omitempty"`
	Errors                       []RPCError `json:"errors,omitempty"`
}

// Gas returns the consumed gas in whole units. Newer protocols only report
// milligas, which is rounded up.
func (r OperationResult) Gas() int64 {
	if r.ConsumedMilligas > 0 {
		g := r.ConsumedMilligas / 1000
		if r.ConsumedMilligas%1000 != 0 {
			g++
		}
		return g
	}
	return r.ConsumedGas
}

// Failed reports whether the operation was not applied.
func (r OperationResult) Failed() bool {
	return r.Status != "" && r.Status != StatusApplied
}

// Failed reports whether any operation of the group, or any of its internal
// operations, was not applied.
func (s *SimulationResult) Failed() bool {
	for _, c := range s.Contents {
		if c.Metadata.OperationResult.Failed() {
			return true
		}
		for _, in := range c.Metadata.InternalOperationResults {
			if in.Result.Failed() {
				return true
			}
		}
	}
	return false
}

// DecodeSimulationResult decodes a dry-run body. The preapply endpoint wraps
// the same shape in a one-element array, which is accepted too.
func DecodeSimulationResult(data []byte) (*SimulationResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var list []SimulationResult
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, err
		}
		out := &SimulationResult{}
		for _, r := range list {
			out.Contents = append(out.Contents, r.Contents...)
		}
		return out, nil
	}
	var res SimulationResult
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// RPCError is one entry of the error list the chain returns.
type RPCError struct {
	Kind     string          `json:"kind,omitempty"`
	ID       string          `json:"id"`
	Msg      string          `json:"msg,omitempty"`
	With     json.RawMessage `json:"with,omitempty"`
	Contract string          `json:"contract,omitempty"`
	Amount   string          `json:"amount,omitempty"`
	Balance  string          `json:"balance,omitempty"`
}

// Text flattens the identifier, message and every string or int leaf of the
// fail-with payload into one lower-case string for pattern matching.
func (e RPCError) Text() string {
	parts := []string{e.ID}
	if e.Msg != "" {
		parts = append(parts, e.Msg)
	}
	if len(e.With) > 0 {
		var v any
		if err := json.Unmarshal(e.With, &v); err == nil {
			parts = append(parts, michelineLeaves(v)...)
		} else {
			parts = append(parts, string(e.With))
		}
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// FailWith returns the leaves of the fail-with payload joined by spaces.
func (e RPCError) FailWith() string {
	if len(e.With) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(e.With, &v); err != nil {
		return string(e.With)
	}
	return strings.Join(michelineLeaves(v), " ")
}

func michelineLeaves(v any) []string {
	var out []string
	switch n := v.(type) {
	case map[string]any:
		for _, key := range []string{"string", "int", "bytes"} {
			if s, ok := n[key].(string); ok {
				out = append(out, s)
			}
		}
		if args, ok := n["args"].([]any); ok {
			for _, a := range args {
				out = append(out, michelineLeaves(a)...)
			}
		}
	case []any:
		for _, a := range n {
			out = append(out, michelineLeaves(a)...)
		}
	case string:
		out = append(out, n)
	}
	return out
}

// DecodeRPCErrors decodes a chain error body (a JSON array of error entries).
func DecodeRPCErrors(data []byte) ([]RPCError, error) {
	var entries []RPCError
	if err := json.Unmarshal(bytes.TrimSpace(data), &entries); err != nil {
		return nil, err
	}
	for i, e := range entries {
		if e.ID == "" {
			return nil, fmt.Errorf("error entry %d has no id", i)
		}
	}
	return entries, nil
}
