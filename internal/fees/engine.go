// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package fees turns simulation results and chain constants into the fee
// record of every operation of a group.
package fees

import (
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// GasSafetyMargin is added to every gas figure read from a simulation; the
// node's estimates run slightly low.
const GasSafetyMargin int64 = 100

// perOperationOverhead is the byte allowance charged for each operation on
// top of the forged size.
const perOperationOverhead = 10

// Engine computes fees against one snapshot of network constants.
type Engine struct {
	Constants tezos.NetworkConstants
	// Margin is the gas added to each top-level operation.
	Margin int64
}

// NewEngine returns an engine using GasSafetyMargin.
func NewEngine(c tezos.NetworkConstants) *Engine {
	return &Engine{Constants: c, Margin: GasSafetyMargin}
}

// usage is the resource consumption charged to one top-level operation.
type usage struct {
	gas        int64
	storage    int64
	allocation tezos.Mutez
}

func (e *Engine) fold(r tezos.OperationResult, u *usage) {
	u.gas += r.Gas()
	u.storage += r.PaidStorageSizeDiff
	if r.AllocatedDestinationContract {
		u.storage += e.Constants.BytesForAccountAllocation
		u.allocation += e.Constants.XtzForAccountAllocation
	}
}

func (e *Engine) usageOf(op tezos.SimulatedOperation) usage {
	var u usage
	e.fold(op.Metadata.OperationResult, &u)
	u.gas += e.Margin
	for _, in := range op.Metadata.InternalOperationResults {
		e.fold(in.Result, &u)
	}
	return u
}

// StorageFee is the byte-size component of the baker fee, in nanotez. The
// forged hex is measured with a dummy signature appended.
func (e *Engine) StorageFee(forgedHex string, opCount int) tezos.NanoTez {
	size := int64(len(forgedHex+tezos.DummySignatureHex)/2) + int64(perOperationOverhead*opCount)
	return tezos.NanoTez(size * e.Constants.FeePerStorageByte)
}

// TransactionFee is the baker fee of a whole group consuming totalGas.
func (e *Engine) TransactionFee(totalGas int64, forgedHex string, opCount int) tezos.Mutez {
	gasFee := tezos.NanoTez(totalGas * e.Constants.FeePerGasUnit)
	return e.Constants.BaseFee + tezos.RoundUpToMutez(gasFee+e.StorageFee(forgedHex, opCount), e.Constants.NanoTezPerMutez)
}

// BurnFee is the storage burn of totalStorage bytes.
func (e *Engine) BurnFee(totalStorage int64) tezos.Mutez {
	return e.Constants.CostPerBurnedByte * tezos.Mutez(totalStorage)
}

// Extract returns one fee record per simulated operation, in order. Only the
// last record carries the group's transaction fee and network fees; the
// others keep their own limits with a zero fee and an empty network fee map.
func (e *Engine) Extract(sim *tezos.SimulationResult, forgedHex string) []tezos.OperationFees {
	if sim == nil || len(sim.Contents) == 0 {
		return nil
	}

	out := make([]tezos.OperationFees, len(sim.Contents))
	var totalGas, totalStorage int64
	var allocation tezos.Mutez
	for i, op := range sim.Contents {
		u := e.usageOf(op)
		totalGas += u.gas
		totalStorage += u.storage
		allocation += u.allocation
		out[i] = tezos.OperationFees{
			NetworkFees:  []tezos.NetworkFee{{}},
			GasLimit:     u.gas,
			StorageLimit: u.storage,
		}
	}

	last := &out[len(out)-1]
	last.TransactionFee = e.TransactionFee(totalGas, forgedHex, len(out))
	last.NetworkFees = []tezos.NetworkFee{{
		tezos.BurnFee:       e.BurnFee(totalStorage),
		tezos.AllocationFee: allocation,
	}}
	return out
}

// ApplyPolicy chooses between caller-suggested and estimated fees. When the
// suggested gas limits add up to more than the estimated ones, the suggested
// limits are kept verbatim and the transaction fee is recomputed from them;
// network fees always come from the estimate. suggested and estimated must
// have the same length.
func (e *Engine) ApplyPolicy(suggested, estimated []tezos.OperationFees, forgedHex string) []tezos.OperationFees {
	out := make([]tezos.OperationFees, len(estimated))
	for i := range estimated {
		out[i] = estimated[i].Clone()
	}
	if len(suggested) != len(estimated) || len(estimated) == 0 {
		return out
	}

	s, est := Sum(suggested), Sum(estimated)
	if s.Gas <= est.Gas {
		return out
	}

	for i := range out {
		out[i].GasLimit = suggested[i].GasLimit
		out[i].StorageLimit = suggested[i].StorageLimit
	}
	out[len(out)-1].TransactionFee = e.TransactionFee(s.Gas, forgedHex, len(out))
	return out
}
