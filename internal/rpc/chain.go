// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/hashicorp/go-version"
)

const (
	chainPath = "/chains/main"
	headPath  = chainPath + "/blocks/head"
)

type nodeConstants struct {
	HardGasLimitPerOperation     int64 `json:"hard_gas_limit_per_operation,string"`
	HardStorageLimitPerOperation int64 `json:"hard_storage_limit_per_operation,string"`
	CostPerByte                  int64 `json:"cost_per_byte,string"`
	OriginationSize              int64 `json:"origination_size"`
}

// Constants fetches the protocol constants of the head block. Fee rates are
// node policy rather than protocol constants and keep their default values.
func (c *Client) Constants(ctx context.Context) (tezos.NetworkConstants, error) {
	var nc nodeConstants
	if err := c.call(ctx, "constants", http.MethodGet, headPath+"/context/constants", nil, &nc); err != nil {
		return tezos.NetworkConstants{}, err
	}

	out := tezos.DefaultConstants()
	if nc.HardGasLimitPerOperation > 0 {
		out.MaxGasPerOperation = nc.HardGasLimitPerOperation
	}
	if nc.HardStorageLimitPerOperation > 0 {
		out.MaxStoragePerOperation = nc.HardStorageLimitPerOperation
	}
	if nc.CostPerByte > 0 {
		out.CostPerBurnedByte = tezos.Mutez(nc.CostPerByte)
	}
	if nc.OriginationSize > 0 {
		out.BytesForAccountAllocation = nc.OriginationSize
	}
	out.XtzForAccountAllocation = out.CostPerBurnedByte * tezos.Mutez(out.BytesForAccountAllocation)
	return out, out.Validate()
}

// BlockHash returns the hash of the block offset levels below head.
func (c *Client) BlockHash(ctx context.Context, offset int) (string, error) {
	block := "head"
	if offset > 0 {
		block = "head~" + strconv.Itoa(offset)
	}
	var hash string
	err := c.call(ctx, "block_hash", http.MethodGet, chainPath+"/blocks/"+block+"/hash", nil, &hash)
	return hash, err
}

// Protocol returns the protocol the next block is validated with.
func (c *Client) Protocol(ctx context.Context) (string, error) {
	var p struct {
		Protocol     string `json:"protocol"`
		NextProtocol string `json:"next_protocol"`
	}
	if err := c.call(ctx, "protocols", http.MethodGet, headPath+"/protocols", nil, &p); err != nil {
		return "", err
	}
	if p.NextProtocol != "" {
		return p.NextProtocol, nil
	}
	return p.Protocol, nil
}

func (c *Client) ChainID(ctx context.Context) (string, error) {
	var id string
	err := c.call(ctx, "chain_id", http.MethodGet, chainPath+"/chain_id", nil, &id)
	return id, err
}

// Counter returns the current counter of an implicit account.
func (c *Client) Counter(ctx context.Context, source string) (int64, error) {
	var s string
	if err := c.call(ctx, "counter", http.MethodGet, contractPath(source)+"/counter", nil, &s); err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter of %s: %w", source, err)
	}
	return n, nil
}

// ManagerKey returns the revealed public key of source, or "" when the
// account has not been revealed.
func (c *Client) ManagerKey(ctx context.Context, source string) (string, error) {
	var key *string
	if err := c.call(ctx, "manager_key", http.MethodGet, contractPath(source)+"/manager_key", nil, &key); err != nil {
		return "", err
	}
	if key == nil {
		return "", nil
	}
	return *key, nil
}

// Metadata collects the account and chain state needed to build a group.
// BranchMinusN is taken reorgMargin blocks below head.
func (c *Client) Metadata(ctx context.Context, source string, reorgMargin int) (tezos.OperationMetadata, error) {
	var (
		m   tezos.OperationMetadata
		err error
	)
	if m.Counter, err = c.Counter(ctx, source); err != nil {
		return m, err
	}
	if m.ManagerKey, err = c.ManagerKey(ctx, source); err != nil {
		return m, err
	}
	if m.Branch, err = c.BlockHash(ctx, 0); err != nil {
		return m, err
	}
	if m.BranchMinusN, err = c.BlockHash(ctx, reorgMargin); err != nil {
		return m, err
	}
	if m.Protocol, err = c.Protocol(ctx); err != nil {
		return m, err
	}
	if m.ChainID, err = c.ChainID(ctx); err != nil {
		return m, err
	}

	logger.Logger.Debug("Fetched operation metadata",
		"source", source,
		"counter", m.Counter,
		"revealed", m.Revealed(),
		"branch", m.Branch,
	)
	return m, nil
}

// Forge asks the node to encode a payload.
func (c *Client) Forge(ctx context.Context, p tezos.OperationPayload) (string, error) {
	body := tezos.OperationPayload{Branch: p.Branch, Contents: p.Contents}
	var hex string
	err := c.call(ctx, "forge", http.MethodPost, headPath+"/helpers/forge/operations", body, &hex)
	return hex, err
}

type parseItem struct {
	Data   string `json:"data"`
	Branch string `json:"branch"`
}

type parseRequest struct {
	Operations     []parseItem `json:"operations"`
	CheckSignature bool        `json:"check_signature"`
}

// Parse asks the node to decode forged bytes. The leading branch is stripped
// and a dummy signature appended, as the endpoint expects signed data.
func (c *Client) Parse(ctx context.Context, forgedHex, branch string) (*tezos.OperationPayload, error) {
	const branchHexLen = tezos.BlockHashSize * 2
	if len(forgedHex) < branchHexLen {
		return nil, fmt.Errorf("forged operation is %d hex chars, shorter than a branch", len(forgedHex))
	}
	req := parseRequest{
		Operations: []parseItem{{
			Data:   forgedHex[branchHexLen:] + tezos.DummySignatureHex,
			Branch: branch,
		}},
	}
	var out []tezos.OperationPayload
	if err := c.call(ctx, "parse", http.MethodPost, headPath+"/helpers/parse/operations", req, &out); err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("parse returned %d operations, want 1", len(out))
	}
	if out[0].Branch == "" {
		out[0].Branch = branch
	}
	return &out[0], nil
}

type runOperationRequest struct {
	Operation tezos.OperationPayload `json:"operation"`
	ChainID   string                 `json:"chain_id"`
}

// Simulate dry-runs an unsigned payload. Signature is replaced by a dummy.
func (c *Client) Simulate(ctx context.Context, p tezos.OperationPayload, chainID string) (*tezos.SimulationResult, error) {
	req := runOperationRequest{
		Operation: tezos.OperationPayload{Branch: p.Branch, Contents: p.Contents, Signature: tezos.DummySignature},
		ChainID:   chainID,
	}
	var res tezos.SimulationResult
	if err := c.call(ctx, "run_operation", http.MethodPost, headPath+"/helpers/scripts/run_operation", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Preapply validates a signed payload against the current head.
func (c *Client) Preapply(ctx context.Context, p tezos.OperationPayload) (*tezos.SimulationResult, error) {
	var res []tezos.SimulationResult
	if err := c.call(ctx, "preapply", http.MethodPost, headPath+"/helpers/preapply/operations", []tezos.OperationPayload{p}, &res); err != nil {
		return nil, err
	}
	out := &tezos.SimulationResult{}
	for _, r := range res {
		out.Contents = append(out.Contents, r.Contents...)
	}
	return out, nil
}

// Inject broadcasts signed operation bytes and returns the operation hash.
func (c *Client) Inject(ctx context.Context, signedHex string) (string, error) {
	var hash string
	err := c.call(ctx, "inject", http.MethodPost, "/injection/operation", signedHex, &hash)
	return hash, err
}

type nodeVersion struct {
	Version struct {
		Major int `json:"major"`
		Minor int `json:"minor"`
	} `json:"version"`
}

// NodeVersion returns the octez release the node reports.
func (c *Client) NodeVersion(ctx context.Context) (*version.Version, error) {
	var v nodeVersion
	if err := c.call(ctx, "version", http.MethodGet, "/version", nil, &v); err != nil {
		return nil, err
	}
	return version.NewVersion(fmt.Sprintf("%d.%d", v.Version.Major, v.Version.Minor))
}

func contractPath(id string) string {
	return headPath + "/context/contracts/" + url.PathEscape(id)
}
