// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dotandev/tzsubmit/internal/classifier"
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/submitter"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "tz1KqTpEZ7Yob7QbPE4Hy4Wo8fHG8LhKxZSx"
	bob   = "tz1VQnqCCqX4K5sP3FNkVSNKTdCAMJDd3E1n"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGet(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	e := &Entry{Source: alice, Network: "ghostnet", Operations: 2, Stage: "injected", OpHash: "opHash", Fee: 420, Gas: 1200}
	require.NoError(t, s.Record(ctx, e))
	assert.NotEmpty(t, e.ID)
	assert.False(t, e.CreatedAt.IsZero())

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Source, got.Source)
	assert.Equal(t, int64(420), got.Fee)
	assert.Equal(t, 2, got.Operations)
	assert.True(t, got.Succeeded())
	assert.Equal(t, e.CreatedAt.UnixNano(), got.CreatedAt.UnixNano())
}

func TestGetUnknown(t *testing.T) {
	s := openStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRecordRequiresSource(t *testing.T) {
	s := openStore(t)
	assert.Error(t, s.Record(context.Background(), &Entry{}))
}

func TestRecordUpdatesExisting(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	e := &Entry{Source: alice, Stage: "signed"}
	require.NoError(t, s.Record(ctx, e))
	e.Stage = "injected"
	e.OpHash = "oo1"
	require.NoError(t, s.Record(ctx, e))

	got, err := s.Get(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "injected", got.Stage)
	assert.Equal(t, "oo1", got.OpHash)

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListFilters(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 4; i++ {
		src := alice
		if i%2 == 1 {
			src = bob
		}
		e := &Entry{Source: src, Stage: "injected", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if i == 2 {
			e.Error = "preapply rejected the operation"
		}
		require.NoError(t, s.Record(ctx, e))
	}

	all, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.True(t, all[0].CreatedAt.After(all[3].CreatedAt), "newest first")

	mine, err := s.List(ctx, Filter{Source: alice})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	failed, err := s.List(ctx, Filter{FailedOnly: true})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.False(t, failed[0].Succeeded())

	limited, err := s.List(ctx, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	old := &Entry{Source: alice, Stage: "injected", CreatedAt: time.Now().Add(-48 * time.Hour)}
	require.NoError(t, s.Record(ctx, old))
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, &Entry{Source: alice, Stage: "injected", CreatedAt: time.Now().Add(time.Duration(-i) * time.Minute)}))
	}

	n, err := s.Prune(ctx, 24*time.Hour, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Prune(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, left, 2)
}

func TestNewEntry(t *testing.T) {
	ops := []tezos.Operation{
		tezos.NewTransaction(alice, bob, 10, nil).WithFees(tezos.OperationFees{
			TransactionFee: 300,
			GasLimit:       1100,
			StorageLimit:   10,
			NetworkFees:    []tezos.NetworkFee{{tezos.BurnFee: 2500, tezos.AllocationFee: 0}},
		}),
	}

	res := &submitter.Result{Stage: submitter.StageSigned, ForgedHex: "aa"}
	err := errors.WrapPreapplyFailed(&classifier.Error{Kind: classifier.CounterError})
	e := NewEntry(alice, "mainnet", ops, res, err)

	assert.Equal(t, "signed", e.Stage)
	assert.Equal(t, int64(300), e.Fee)
	assert.Equal(t, int64(2500), e.Burn)
	assert.Equal(t, int64(1100), e.Gas)
	assert.Equal(t, classifier.CounterError.String(), e.ErrorKind)
	assert.Contains(t, e.PayloadJSON, `"kind":"transaction"`)
	assert.False(t, e.Succeeded())

	ok := NewEntry(alice, "mainnet", ops, &submitter.Result{Stage: submitter.StageInjected, OpHash: "oo"}, nil)
	assert.True(t, ok.Succeeded())
	assert.Empty(t, ok.ErrorKind)

	none := NewEntry(alice, "mainnet", nil, nil, fmt.Errorf("boom"))
	assert.Equal(t, "built", none.Stage)
}
