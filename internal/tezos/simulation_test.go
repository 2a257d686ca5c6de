// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simulationBody = `{
  "contents": [{
    "kind": "transaction",
    "metadata": {
      "operation_result": {
        "status": "applied",
        "consumed_milligas": "1420040",
        "paid_storage_size_diff": "67",
        "allocated_destination_contract": true
      },
      "internal_operation_results": [{
        "kind": "transaction",
        "source": "KT1PWx2mnDueood7fEmfbBDKx1D9BAnnXitn",
        "result": {"status": "applied", "consumed_gas": "100"}
      }]
    }
  }]
}`

func TestDecodeSimulationResult(t *testing.T) {
	res, err := DecodeSimulationResult([]byte(simulationBody))
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	r := res.Contents[0].Metadata.OperationResult
	assert.Equal(t, int64(1421), r.Gas())
	assert.Equal(t, int64(67), r.PaidStorageSizeDiff)
	assert.True(t, r.AllocatedDestinationContract)
	assert.False(t, res.Failed())
	assert.Equal(t, int64(100), res.Contents[0].Metadata.InternalOperationResults[0].Result.Gas())
}

func TestDecodeSimulationResultArrayForm(t *testing.T) {
	res, err := DecodeSimulationResult([]byte("[" + simulationBody + "]"))
	require.NoError(t, err)
	assert.Len(t, res.Contents, 1)
}

func TestSimulationFailedInternal(t *testing.T) {
	body := `{"contents":[{"kind":"transaction","metadata":{"operation_result":{"status":"backtracked"},
	  "internal_operation_results":[{"kind":"transaction","result":{"status":"failed"}}]}}]}`
	res, err := DecodeSimulationResult([]byte(body))
	require.NoError(t, err)
	assert.True(t, res.Failed())
}

func TestRPCErrorText(t *testing.T) {
	body := `[{"kind":"temporary","id":"proto.017-PtNairob.michelson_v1.script_rejected",
	  "with":{"prim":"Pair","args":[{"string":"Dex/wrong-min-out"},{"int":"7"}]}}]`
	entries, err := DecodeRPCErrors([]byte(body))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Text(), "dex/wrong-min-out")
	assert.Contains(t, entries[0].Text(), "script_rejected")
	assert.Equal(t, "Dex/wrong-min-out 7", entries[0].FailWith())
}

func TestDecodeRPCErrorsRejectsNonErrors(t *testing.T) {
	_, err := DecodeRPCErrors([]byte(`[{"kind":"transaction"}]`))
	assert.Error(t, err)
	_, err = DecodeRPCErrors([]byte(`not json`))
	assert.Error(t, err)
}

func TestConstantsValidate(t *testing.T) {
	assert.NoError(t, DefaultConstants().Validate())
	c := DefaultConstants()
	c.NanoTezPerMutez = 0
	assert.Error(t, c.Validate())
}
