// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package compat gates chain-version dependent behaviour on the version the
// node reports.
package compat

import (
	"context"
	"fmt"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/hashicorp/go-version"
)

// DefaultBalanceRecoveryConstraint is the range of node releases on which a
// balance_too_low rejection of a dry run still carries valid gas and storage
// figures.
const DefaultBalanceRecoveryConstraint = ">= 16.0"

// Versioner reports the node's release.
type Versioner interface {
	NodeVersion(ctx context.Context) (*version.Version, error)
}

// Static is a gate with a fixed answer.
type Static bool

func (s Static) Allow(context.Context) bool { return bool(s) }

// VersionGate allows a behaviour only on node versions matching a
// constraint. The version is asked for on every call; nodes behind a load
// balancer may differ.
type VersionGate struct {
	node       Versioner
	constraint version.Constraints
	raw        string
}

// NewVersionGate parses constraint, e.g. ">= 16.0, < 21.0".
func NewVersionGate(node Versioner, constraint string) (*VersionGate, error) {
	c, err := ParseConstraint(constraint)
	if err != nil {
		return nil, err
	}
	return &VersionGate{node: node, constraint: c, raw: constraint}, nil
}

// ParseConstraint validates a version constraint string.
func ParseConstraint(s string) (version.Constraints, error) {
	c, err := version.NewConstraint(s)
	if err != nil {
		return nil, errors.WrapConfigError(fmt.Sprintf("invalid version constraint %q", s), err)
	}
	return c, nil
}

// Allow reports whether the node's version satisfies the constraint. An
// unknown version denies.
func (g *VersionGate) Allow(ctx context.Context) bool {
	v, err := g.node.NodeVersion(ctx)
	if err != nil {
		logger.Logger.Warn("Could not read node version, compatibility behaviour disabled", "error", err)
		return false
	}
	ok := g.constraint.Check(v)
	logger.Logger.Debug("Node version gate", "version", v.String(), "constraint", g.raw, "allowed", ok)
	return ok
}
