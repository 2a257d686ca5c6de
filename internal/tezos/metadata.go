// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import "fmt"

// OperationMetadata is the per-call account and chain state needed to build
// an operation group. BranchMinusN is an older block used only for local
// forging so that a shallow reorganisation cannot invalidate the branch.
type OperationMetadata struct {
	Counter      int64  `json:"counter"`
	ManagerKey   string `json:"manager_key,omitempty"`
	Branch       string `json:"branch"`
	BranchMinusN string `json:"branch_minus_n"`
	Protocol     string `json:"protocol"`
	ChainID      string `json:"chain_id"`
}

// Revealed reports whether the account's public key is already on chain.
func (m OperationMetadata) Revealed() bool {
	return m.ManagerKey != ""
}

// NetworkConstants is an immutable snapshot of the chain's fee parameters.
type NetworkConstants struct {
	// FeePerGasUnit is the minimal fee per gas unit, in nanotez.
	FeePerGasUnit int64 `json:"fee_per_gas_unit"`
	// FeePerStorageByte is the minimal fee per operation byte, in nanotez.
	FeePerStorageByte int64 `json:"fee_per_storage_byte"`
	NanoTezPerMutez   int64 `json:"nanotez_per_mutez"`
	// BaseFee is the minimal fee of an operation group, in mutez.
	BaseFee                Mutez `json:"base_fee"`
	MaxGasPerOperation     int64 `json:"max_gas_per_operation"`
	MaxStoragePerOperation int64 `json:"max_storage_per_operation"`
	// CostPerBurnedByte is the storage burn, in mutez per byte.
	CostPerBurnedByte         Mutez `json:"cost_per_burned_byte"`
	BytesForAccountAllocation int64 `json:"bytes_for_account_allocation"`
	XtzForAccountAllocation   Mutez `json:"xtz_for_account_allocation"`
}

// DefaultConstants returns the mainnet fee parameters.
func DefaultConstants() NetworkConstants {
	return NetworkConstants{
		FeePerGasUnit:             100,
		FeePerStorageByte:         1000,
		NanoTezPerMutez:           1000,
		BaseFee:                   100,
		MaxGasPerOperation:        1_040_000,
		MaxStoragePerOperation:    60_000,
		CostPerBurnedByte:         250,
		BytesForAccountAllocation: 257,
		XtzForAccountAllocation:   64_250,
	}
}

// Validate rejects constants that would make fee arithmetic meaningless.
func (c NetworkConstants) Validate() error {
	switch {
	case c.NanoTezPerMutez <= 0:
		return fmt.Errorf("nanotez per mutez must be positive, got %d", c.NanoTezPerMutez)
	case c.FeePerGasUnit < 0 || c.FeePerStorageByte < 0 || c.BaseFee < 0:
		return fmt.Errorf("fee parameters must not be negative")
	case c.CostPerBurnedByte < 0 || c.XtzForAccountAllocation < 0 || c.BytesForAccountAllocation < 0:
		return fmt.Errorf("burn parameters must not be negative")
	case c.MaxGasPerOperation <= 0 || c.MaxStoragePerOperation < 0:
		return fmt.Errorf("operation limits must be positive")
	}
	return nil
}
