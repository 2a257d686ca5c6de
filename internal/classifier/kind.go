// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package classifier

// Kind is the closed set of failure categories. A Kind is itself an error so
// that errors.Is(err, classifier.CounterError) matches any classified error
// of that kind.
type Kind int

const (
	Unknown Kind = iota
	InsufficientFunds
	CounterError
	DelegateUnchanged
	UnregisteredDelegate
	EmptyImplicitDelegatedContract
	GasExhausted
	StorageExhausted
	GasLimitTooHigh
	StorageLimitTooHigh
	NonExistingContract
	InvalidAddress
	EmptyTransaction
	ExchangeSlippage
	ExchangeDeadline
	ExchangeAllowance
	ExchangeLiquidity
	ScriptRejected
	// Transport is a failure to reach or understand a node.
	Transport
)

var kindNames = map[Kind]string{
	Unknown:                        "unknown",
	InsufficientFunds:              "insufficient_funds",
	CounterError:                   "counter_error",
	DelegateUnchanged:              "delegate_unchanged",
	UnregisteredDelegate:           "unregistered_delegate",
	EmptyImplicitDelegatedContract: "empty_implicit_delegated_contract",
	GasExhausted:                   "gas_exhausted",
	StorageExhausted:               "storage_exhausted",
	GasLimitTooHigh:                "gas_limit_too_high",
	StorageLimitTooHigh:            "storage_limit_too_high",
	NonExistingContract:            "non_existing_contract",
	InvalidAddress:                 "invalid_address",
	EmptyTransaction:               "empty_transaction",
	ExchangeSlippage:               "exchange_slippage",
	ExchangeDeadline:               "exchange_deadline",
	ExchangeAllowance:              "exchange_allowance",
	ExchangeLiquidity:              "exchange_liquidity",
	ScriptRejected:                 "script_rejected",
	Transport:                      "transport",
}

var descriptions = map[Kind]string{
	Unknown:                        "The node rejected the operation for an unrecognised reason.",
	InsufficientFunds:              "The account balance does not cover the amount and fees.",
	CounterError:                   "The account counter changed; another operation from this account is pending or was just included.",
	DelegateUnchanged:              "The account already delegates to this baker.",
	UnregisteredDelegate:           "The chosen delegate is not a registered baker.",
	EmptyImplicitDelegatedContract: "A delegated account cannot be emptied completely.",
	GasExhausted:                   "The operation ran out of gas.",
	StorageExhausted:               "The operation ran out of storage.",
	GasLimitTooHigh:                "The gas limit exceeds the per-operation maximum.",
	StorageLimitTooHigh:            "The storage limit exceeds the per-operation maximum.",
	NonExistingContract:            "The destination contract does not exist.",
	InvalidAddress:                 "An address in the operation is malformed.",
	EmptyTransaction:               "A transaction of zero tez to an implicit account is not allowed.",
	ExchangeSlippage:               "The exchange rate moved past the accepted slippage.",
	ExchangeDeadline:               "The exchange deadline passed before the operation was included.",
	ExchangeAllowance:              "The exchange is not allowed to spend the token.",
	ExchangeLiquidity:              "The exchange pool does not hold enough liquidity.",
	ScriptRejected:                 "The contract rejected the call.",
	Transport:                      "The node could not be reached or returned an unreadable response.",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Unknown]
}

func (k Kind) Error() string { return k.String() }

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return k, true
		}
	}
	return Unknown, false
}

// Describe returns a sentence suitable for showing to a user.
func Describe(k Kind) string {
	if d, ok := descriptions[k]; ok {
		return d
	}
	return descriptions[Unknown]
}
