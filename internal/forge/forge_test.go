// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"context"
	"testing"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCodec struct {
	hex      string
	branches []string
}

func (s *stubCodec) Forge(_ context.Context, p tezos.OperationPayload) (string, error) {
	s.branches = append(s.branches, p.Branch)
	return s.hex, nil
}

func (s *stubCodec) Parse(context.Context, string, string) (*tezos.OperationPayload, error) {
	return nil, nil
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Remote ")
	require.NoError(t, err)
	assert.Equal(t, ModeRemote, m)

	m, err = ParseMode("local")
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, m)

	_, err = ParseMode("wasm")
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestNewSelectsStrategy(t *testing.T) {
	local := &stubCodec{hex: "aa"}
	node := &stubCodec{hex: "bb"}

	f, err := New(ModeLocal, local, node)
	require.NoError(t, err)
	assert.Equal(t, ModeLocal, f.Mode())
	hex, err := f.Forge(context.Background(), tezos.OperationPayload{Branch: "B1"})
	require.NoError(t, err)
	assert.Equal(t, "aa", hex)

	f, err = New(ModeRemote, local, node)
	require.NoError(t, err)
	hex, err = f.Forge(context.Background(), tezos.OperationPayload{Branch: "B2"})
	require.NoError(t, err)
	assert.Equal(t, "bb", hex)
	assert.Equal(t, []string{"B2"}, node.branches)

	_, err = New(Mode("x"), local, node)
	assert.Error(t, err)
}

func TestForgingNotConfigured(t *testing.T) {
	f, err := New(ModeLocal, nil, &stubCodec{})
	require.NoError(t, err)
	_, err = f.Forge(context.Background(), tezos.OperationPayload{})
	assert.ErrorIs(t, err, errors.ErrForgingNotConfigured)

	f, err = New(ModeRemote, &stubCodec{}, nil)
	require.NoError(t, err)
	_, err = f.Forge(context.Background(), tezos.OperationPayload{})
	assert.ErrorIs(t, err, errors.ErrForgingNotConfigured)
}
