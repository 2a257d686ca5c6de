// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package fees

import (
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Totals summarizes the fee records of a group.
type Totals struct {
	Gas            int64       `json:"gas"`
	Storage        int64       `json:"storage"`
	TransactionFee tezos.Mutez `json:"transaction_fee"`
	BurnFee        tezos.Mutez `json:"burn_fee"`
	AllocationFee  tezos.Mutez `json:"allocation_fee"`
}

// Total is every amount the source account pays.
func (t Totals) Total() tezos.Mutez {
	return t.TransactionFee + t.BurnFee + t.AllocationFee
}

// Sum adds up the fee records.
func Sum(fees []tezos.OperationFees) Totals {
	var t Totals
	for _, f := range fees {
		t.Gas += f.GasLimit
		t.Storage += f.StorageLimit
		t.TransactionFee += f.TransactionFee
		t.BurnFee += f.NetworkFeeTotal(tezos.BurnFee)
		t.AllocationFee += f.NetworkFeeTotal(tezos.AllocationFee)
	}
	return t
}

// OfOperations sums the fee records attached to ops.
func OfOperations(ops []tezos.Operation) Totals {
	fees := make([]tezos.OperationFees, len(ops))
	for i, op := range ops {
		fees[i] = op.Fees()
	}
	return Sum(fees)
}
