// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dotandev/tzsubmit/internal/tezos"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSource = "tz1KqTpEZ7Yob7QbPE4Hy4Wo8fHG8LhKxZSx"
	testBranch = "BLockGenesisGenesisGenesisGenesisGenesisf79b5d1CoW2"
)

func chainRoutes() map[string]MockRoute {
	contract := "/chains/main/blocks/head/context/contracts/" + testSource
	routes := make(map[string]MockRoute)
	routes[contract+"/counter"] = SuccessRoute("41")
	routes[contract+"/manager_key"] = MockRoute{Raw: "null"}
	routes["/chains/main/blocks/head/hash"] = SuccessRoute(testBranch)
	routes["/chains/main/blocks/head~5/hash"] = SuccessRoute("BMOlderBlock")
	routes["/chains/main/blocks/head/protocols"] = SuccessRoute(map[string]string{"protocol": "PtOld", "next_protocol": "PtNext"})
	routes["/chains/main/chain_id"] = SuccessRoute("NetXdQprcVkpaWU")
	return routes
}

func TestMetadata(t *testing.T) {
	ms := NewMockServer(chainRoutes())
	defer ms.Close()

	m, err := newTestClient(t, ms.URL()).Metadata(context.Background(), testSource, 5)
	require.NoError(t, err)
	assert.Equal(t, tezos.OperationMetadata{
		Counter:      41,
		Branch:       testBranch,
		BranchMinusN: "BMOlderBlock",
		Protocol:     "PtNext",
		ChainID:      "NetXdQprcVkpaWU",
	}, m)
	assert.False(t, m.Revealed())
}

func TestManagerKeyRevealed(t *testing.T) {
	routes := chainRoutes()
	routes["/chains/main/blocks/head/context/contracts/"+testSource+"/manager_key"] = SuccessRoute("edpkExample")
	ms := NewMockServer(routes)
	defer ms.Close()

	key, err := newTestClient(t, ms.URL()).ManagerKey(context.Background(), testSource)
	require.NoError(t, err)
	assert.Equal(t, "edpkExample", key)
}

func TestConstants(t *testing.T) {
	ms := NewMockServer(map[string]MockRoute{
		"/chains/main/blocks/head/context/constants": {Raw: `{
			"hard_gas_limit_per_operation": "1040000",
			"hard_storage_limit_per_operation": "60000",
			"cost_per_byte": "250",
			"origination_size": 257,
			"blocks_per_cycle": 16384
		}`},
	})
	defer ms.Close()

	c, err := newTestClient(t, ms.URL()).Constants(context.Background())
	require.NoError(t, err)
	assert.Equal(t, tezos.DefaultConstants(), c)
}

func TestForgeAndParse(t *testing.T) {
	forged := strings.Repeat("11", tezos.BlockHashSize) + "6c00aabb"
	op := tezos.NewTransaction(testSource, testSource, 1, nil).WithCounter(42)
	parsed := tezos.OperationPayload{Branch: testBranch, Contents: []tezos.Operation{op}}

	ms := NewMockServer(map[string]MockRoute{
		"/chains/main/blocks/head/helpers/forge/operations": SuccessRoute(forged),
		"/chains/main/blocks/head/helpers/parse/operations": SuccessRoute([]tezos.OperationPayload{parsed}),
	})
	defer ms.Close()
	c := newTestClient(t, ms.URL())

	hex, err := c.Forge(context.Background(), tezos.OperationPayload{Branch: testBranch, Contents: []tezos.Operation{op}, Signature: "sig"})
	require.NoError(t, err)
	assert.Equal(t, forged, hex)

	var forgeReq map[string]any
	require.NoError(t, json.Unmarshal([]byte(ms.Requests("/chains/main/blocks/head/helpers/forge/operations")[0]), &forgeReq))
	assert.Equal(t, testBranch, forgeReq["branch"])
	assert.NotContains(t, forgeReq, "signature")

	got, err := c.Parse(context.Background(), hex, testBranch)
	require.NoError(t, err)
	assert.NoError(t, tezos.ComparePayloads(parsed, *got))

	var parseReq parseRequest
	require.NoError(t, json.Unmarshal([]byte(ms.Requests("/chains/main/blocks/head/helpers/parse/operations")[0]), &parseReq))
	require.Len(t, parseReq.Operations, 1)
	assert.Equal(t, "6c00aabb"+tezos.DummySignatureHex, parseReq.Operations[0].Data)
	assert.False(t, parseReq.CheckSignature)
}

func TestParseRejectsShortInput(t *testing.T) {
	_, err := newTestClient(t, "http://127.0.0.1:1").Parse(context.Background(), "abcd", testBranch)
	assert.Error(t, err)
}

func TestSimulateSendsDummySignature(t *testing.T) {
	ms := NewMockServer(map[string]MockRoute{
		"/chains/main/blocks/head/helpers/scripts/run_operation": {Raw: `{"contents":[{"kind":"transaction","metadata":{"operation_result":{"status":"applied","consumed_milligas":"1000"}}}]}`},
	})
	defer ms.Close()

	p := tezos.OperationPayload{Branch: testBranch, Contents: []tezos.Operation{tezos.NewTransaction(testSource, testSource, 1, nil)}}
	res, err := newTestClient(t, ms.URL()).Simulate(context.Background(), p, "NetXdQprcVkpaWU")
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, int64(1), res.Contents[0].Metadata.OperationResult.Gas())

	var req struct {
		Operation struct {
			Signature string `json:"signature"`
		} `json:"operation"`
		ChainID string `json:"chain_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(ms.Requests("/chains/main/blocks/head/helpers/scripts/run_operation")[0]), &req))
	assert.Equal(t, tezos.DummySignature, req.Operation.Signature)
	assert.Equal(t, "NetXdQprcVkpaWU", req.ChainID)
}

func TestPreapplyAndInject(t *testing.T) {
	ms := NewMockServer(map[string]MockRoute{
		"/chains/main/blocks/head/helpers/preapply/operations": {Raw: `[{"contents":[{"kind":"reveal","metadata":{"operation_result":{"status":"applied"}}}]}]`},
		"/injection/operation":                                 SuccessRoute("ooSomeHash"),
	})
	defer ms.Close()
	c := newTestClient(t, ms.URL())

	p := tezos.OperationPayload{Protocol: "PtNext", Branch: testBranch, Signature: "edsigX",
		Contents: []tezos.Operation{tezos.NewReveal(testSource, "edpk")}}
	res, err := c.Preapply(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.False(t, res.Failed())

	var sent []map[string]any
	require.NoError(t, json.Unmarshal([]byte(ms.Requests("/chains/main/blocks/head/helpers/preapply/operations")[0]), &sent))
	require.Len(t, sent, 1)
	assert.Equal(t, "PtNext", sent[0]["protocol"])
	assert.Equal(t, "edsigX", sent[0]["signature"])

	hash, err := c.Inject(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, "ooSomeHash", hash)
}

func TestBlockHashOffset(t *testing.T) {
	ms := NewMockServer(chainRoutes())
	defer ms.Close()
	c := newTestClient(t, ms.URL())

	h, err := c.BlockHash(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, testBranch, h)

	h, err = c.BlockHash(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "BMOlderBlock", h)
}
