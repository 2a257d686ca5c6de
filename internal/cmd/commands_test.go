// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/signer"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	isolate(t)
	out, err := runCLI(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "tzsubmit version dev (unknown)\n", out)
}

func TestClassifyCommand(t *testing.T) {
	isolate(t)
	body := `[{"kind":"temporary","id":"proto.alpha.gas_exhausted.operation"},
	          {"kind":"temporary","id":"proto.alpha.contract.counter_in_the_past"}]`

	out, err := runCLI(t, body, "classify")
	require.NoError(t, err)
	assert.Contains(t, out, "counter_error")
	assert.Contains(t, out, "proto.alpha.contract.counter_in_the_past")

	out, err = runCLI(t, body, "classify", "--json")
	require.NoError(t, err)
	var view classifyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.True(t, view.Classified)
	assert.Equal(t, classifier.CounterError.String(), view.Kind)
	assert.Equal(t, 2, view.Entries)
}

func TestClassifyCommand_File(t *testing.T) {
	dir := t.TempDir()
	isolate(t)
	path := filepath.Join(dir, "response.txt")
	require.NoError(t, os.WriteFile(path, []byte("script_rejected: FA2_INSUFFICIENT_BALANCE"), 0o600))

	out, err := runCLI(t, "", "classify", path, "--json")
	require.NoError(t, err)
	var view classifyView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, classifier.InsufficientFunds.String(), view.Kind)

	out, err = runCLI(t, "nothing to see", "classify", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"classified":false}`, out)
}

func TestJournalCommands(t *testing.T) {
	journalPath := isolate(t)

	store, err := journal.Open(journalPath)
	require.NoError(t, err)
	ok := &journal.Entry{Source: "tz1ok", Network: "sandbox", Operations: 1, Stage: "injected", OpHash: "ooHash"}
	failed := &journal.Entry{Source: "tz1ko", Network: "sandbox", Operations: 2, Stage: "signed", ErrorKind: "counter_error", Error: "counter_error: proto.counter_in_the_past"}
	require.NoError(t, store.Record(context.Background(), ok))
	require.NoError(t, store.Record(context.Background(), failed))
	require.NoError(t, store.Close())

	out, err := runCLI(t, "", "journal", "list", "--json")
	require.NoError(t, err)
	var entries []journal.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	assert.Len(t, entries, 2)

	out, err = runCLI(t, "", "journal", "list", "--failed")
	require.NoError(t, err)
	assert.Contains(t, out, failed.ID)
	assert.NotContains(t, out, ok.ID)
	assert.Contains(t, out, "counter_error")

	out, err = runCLI(t, "", "journal", "show", ok.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "ooHash")

	_, err = runCLI(t, "", "journal", "show", "missing")
	assert.ErrorIs(t, err, journal.ErrNotFound)

	out, err = runCLI(t, "", "journal", "prune", "--ttl", "0", "--max", "1")
	require.NoError(t, err)
	assert.Equal(t, "Removed 1 submission(s)\n", out)
}

func TestInvalidConfigIsReported(t *testing.T) {
	isolate(t)
	_, err := runCLI(t, "", "journal", "list", "--forge-mode", "carrier-pigeon")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestDecodeOperations(t *testing.T) {
	op := tezos.NewDelegation("tz1source", "tz1baker")
	array, err := json.Marshal([]tezos.Operation{op})
	require.NoError(t, err)
	group, err := json.Marshal(tezos.OperationPayload{Branch: "BHead", Contents: []tezos.Operation{op}})
	require.NoError(t, err)

	for name, data := range map[string][]byte{"array": array, "group": group} {
		t.Run(name, func(t *testing.T) {
			ops, err := decodeOperations(data)
			require.NoError(t, err)
			require.Len(t, ops, 1)
			assert.Equal(t, tezos.KindDelegation, ops[0].Kind())
		})
	}

	_, err = decodeOperations([]byte("  "))
	assert.ErrorIs(t, err, errors.ErrValidation)
	_, err = decodeOperations([]byte(`[{"kind":"ballot"}]`))
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestReadInput(t *testing.T) {
	data, err := readInput("-", strings.NewReader("stdin"))
	require.NoError(t, err)
	assert.Equal(t, "stdin", string(data))

	_, err = readInput(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}

func TestResolveAccount(t *testing.T) {
	s, err := signer.NewInMemorySigner(strings.Repeat("07", 32))
	require.NoError(t, err)
	addr, err := signer.Address(s)
	require.NoError(t, err)
	pk, err := signer.EncodedPublicKey(s)
	require.NoError(t, err)

	source, key, err := resolveAccount(s, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, addr, source)
	assert.Equal(t, pk, key)

	other, err := signer.NewInMemorySigner(strings.Repeat("08", 32))
	require.NoError(t, err)
	otherAddr, err := signer.Address(other)
	require.NoError(t, err)

	source, key, err = resolveAccount(s, nil, otherAddr, "")
	require.NoError(t, err)
	assert.Equal(t, otherAddr, source)
	assert.Empty(t, key, "the signer's key must not reveal another account")

	ops := []tezos.Operation{tezos.NewTransaction(otherAddr, addr, 1, nil)}
	source, _, err = resolveAccount(nil, ops, "", "")
	require.NoError(t, err)
	assert.Equal(t, otherAddr, source)

	_, _, err = resolveAccount(nil, nil, "", "")
	assert.ErrorIs(t, err, errors.ErrValidation)
	_, _, err = resolveAccount(nil, nil, "tz1notanaddress", "")
	assert.ErrorIs(t, err, errors.ErrValidation)
}
