// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package forge selects how operation groups are encoded: by an in-process
// codec or by a node.
package forge

import (
	"context"
	"fmt"
	"strings"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Mode selects the forging strategy.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// ParseMode accepts "local" or "remote", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeLocal:
		return ModeLocal, nil
	case ModeRemote:
		return ModeRemote, nil
	}
	return "", errors.WrapValidationError(fmt.Sprintf("unknown forge mode %q", s))
}

// Codec encodes and decodes the binary wire format. Implementations must
// satisfy Parse(Forge(p)) == p for any valid payload.
type Codec interface {
	Forge(ctx context.Context, p tezos.OperationPayload) (string, error)
	Parse(ctx context.Context, forgedHex, branch string) (*tezos.OperationPayload, error)
}

// Forger forges with a fixed strategy.
type Forger interface {
	Mode() Mode
	Forge(ctx context.Context, p tezos.OperationPayload) (string, error)
}

// Local forges in-process with an injected codec.
type Local struct {
	Codec Codec
}

func (l *Local) Mode() Mode { return ModeLocal }

func (l *Local) Forge(ctx context.Context, p tezos.OperationPayload) (string, error) {
	if l == nil || l.Codec == nil {
		return "", errors.WrapForgingNotConfigured(string(ModeLocal))
	}
	return l.Codec.Forge(ctx, p)
}

// Remote forges through a node.
type Remote struct {
	Node Codec
}

func (r *Remote) Mode() Mode { return ModeRemote }

func (r *Remote) Forge(ctx context.Context, p tezos.OperationPayload) (string, error) {
	if r == nil || r.Node == nil {
		return "", errors.WrapForgingNotConfigured(string(ModeRemote))
	}
	return r.Node.Forge(ctx, p)
}

// New returns the forger for mode. A nil codec for the selected mode is
// reported when forging, not here, so that a misconfigured mode surfaces as
// ErrForgingNotConfigured on the call that needs it.
func New(mode Mode, local Codec, node Codec) (Forger, error) {
	switch mode {
	case ModeLocal:
		return &Local{Codec: local}, nil
	case ModeRemote:
		return &Remote{Node: node}, nil
	}
	return nil, errors.WrapValidationError(fmt.Sprintf("unknown forge mode %q", mode))
}
