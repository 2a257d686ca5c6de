// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayloadRoundTrip(t *testing.T) {
	p := OperationPayload{
		Branch:    "BLockGenesisGenesisGenesisGenesisGenesisf79b5d1CoW2",
		Protocol:  "PtNairobi",
		Signature: DummySignature,
		Contents: []Operation{
			NewTransaction(testSource, testSource, 1, nil).WithCounter(3),
		},
	}
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var back OperationPayload
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, p.Branch, back.Branch)
	assert.Equal(t, p.Protocol, back.Protocol)
	assert.Equal(t, p.Signature, back.Signature)
	assert.NoError(t, ComparePayloads(p, back))
}

func TestComparePayloadsDetectsDifferences(t *testing.T) {
	base := OperationPayload{
		Branch:   "B1",
		Contents: []Operation{NewTransaction(testSource, testSource, 1, nil)},
	}

	other := base.Clone()
	other.Branch = "B2"
	assert.ErrorContains(t, ComparePayloads(base, other), "branch")

	other = base.Clone()
	other.Contents = append(other.Contents, NewDelegation(testSource, ""))
	assert.ErrorContains(t, ComparePayloads(base, other), "contents")

	other = base.Clone()
	other.Contents[0] = NewDelegation(testSource, "")
	assert.ErrorContains(t, ComparePayloads(base, other), "kind")

	other = base.Clone()
	other.Contents[0] = NewTransaction(testSource, testSource, 2, nil)
	assert.ErrorContains(t, ComparePayloads(base, other), "contents[0]")
}

func TestComparePayloadsIgnoresMichelineFormatting(t *testing.T) {
	a := OperationPayload{Branch: "B", Contents: []Operation{
		NewTransaction(testSource, testSource, 0, &Parameters{Entrypoint: "default", Value: json.RawMessage(`{"prim":"Pair","args":[{"int":"1"},{"string":"a"}]}`)}),
	}}
	b := OperationPayload{Branch: "B", Contents: []Operation{
		NewTransaction(testSource, testSource, 0, &Parameters{Entrypoint: "default", Value: json.RawMessage(`{ "args": [ {"int":"1"}, {"string":"a"} ], "prim": "Pair" }`)}),
	}}
	assert.NoError(t, ComparePayloads(a, b))
}
