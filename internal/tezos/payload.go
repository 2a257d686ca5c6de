// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	errNegativeAmount = errors.New("amount must not be negative")
	errTooPrecise     = errors.New("amount has more than six decimals")
)

// OperationPayload is an operation group as sent to forge, simulate and
// preapply. Content order is significant and preserved end to end.
type OperationPayload struct {
	Branch    string
	Contents  []Operation
	Protocol  string
	Signature string
}

type payloadWire struct {
	Protocol  string            `json:"protocol,omitempty"`
	Branch    string            `json:"branch"`
	Contents  []json.RawMessage `json:"contents"`
	Signature string            `json:"signature,omitempty"`
}

func (p OperationPayload) MarshalJSON() ([]byte, error) {
	w := payloadWire{
		Protocol:  p.Protocol,
		Branch:    p.Branch,
		Contents:  make([]json.RawMessage, 0, len(p.Contents)),
		Signature: p.Signature,
	}
	for i, op := range p.Contents {
		raw, err := op.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("contents[%d]: %w", i, err)
		}
		w.Contents = append(w.Contents, raw)
	}
	return json.Marshal(w)
}

func (p *OperationPayload) UnmarshalJSON(data []byte) error {
	var w payloadWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	contents := make([]Operation, 0, len(w.Contents))
	for i, raw := range w.Contents {
		op, err := UnmarshalOperation(raw)
		if err != nil {
			return fmt.Errorf("contents[%d]: %w", i, err)
		}
		contents = append(contents, op)
	}
	*p = OperationPayload{
		Branch:    w.Branch,
		Contents:  contents,
		Protocol:  w.Protocol,
		Signature: w.Signature,
	}
	return nil
}

// Clone returns a payload whose contents share nothing with p.
func (p OperationPayload) Clone() OperationPayload {
	p.Contents = CloneOperations(p.Contents)
	return p
}

// ComparePayloads reports the first structural difference between want and
// got, or nil when they describe the same operation group. Signature and
// protocol are not compared: a parsed forge carries neither.
func ComparePayloads(want, got OperationPayload) error {
	if want.Branch != got.Branch {
		return fmt.Errorf("branch: want %s, got %s", want.Branch, got.Branch)
	}
	if len(want.Contents) != len(got.Contents) {
		return fmt.Errorf("contents: want %d operations, got %d", len(want.Contents), len(got.Contents))
	}
	for i := range want.Contents {
		if want.Contents[i].Kind() != got.Contents[i].Kind() {
			return fmt.Errorf("contents[%d].kind: want %s, got %s", i, want.Contents[i].Kind(), got.Contents[i].Kind())
		}
		a, err := canonicalJSON(want.Contents[i])
		if err != nil {
			return fmt.Errorf("contents[%d]: %w", i, err)
		}
		b, err := canonicalJSON(got.Contents[i])
		if err != nil {
			return fmt.Errorf("contents[%d]: %w", i, err)
		}
		if !bytes.Equal(a, b) {
			return fmt.Errorf("contents[%d]: want %s, got %s", i, a, b)
		}
	}
	return nil
}
