// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package classifier

import (
	"strings"

	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Rule maps error text to a Kind when every substring in All occurs in it.
// Substrings are lower case.
type Rule struct {
	Kind Kind
	All  []string
}

func (r Rule) matches(text string) bool {
	for _, s := range r.All {
		if !strings.Contains(text, s) {
			return false
		}
	}
	return len(r.All) > 0
}

// DefaultRules is the match table in priority order. Contract fail-with
// strings come before protocol identifiers: a rejected swap carries both a
// dex reason and the generic script_rejected id.
var DefaultRules = []Rule{
	{ExchangeSlippage, []string{"dex/wrong-min-out"}},
	{ExchangeSlippage, []string{"dex/high-min-out"}},
	{ExchangeSlippage, []string{"dex/wrong-out"}},
	{ExchangeDeadline, []string{"dex/time-expired"}},
	{ExchangeDeadline, []string{"dex/deadline"}},
	{ExchangeAllowance, []string{"notenoughallowance"}},
	{ExchangeAllowance, []string{"fa2_not_operator"}},
	{ExchangeAllowance, []string{"unsafeallowancechange"}},
	{ExchangeLiquidity, []string{"dex/not-enough-liquidity"}},
	{ExchangeLiquidity, []string{"dex/no-liquidity"}},
	{ExchangeLiquidity, []string{"dex/not-launched"}},
	{InsufficientFunds, []string{"fa2_insufficient_balance"}},
	{InsufficientFunds, []string{"notenoughbalance"}},

	{InsufficientFunds, []string{"balance_too_low"}},
	{InsufficientFunds, []string{"cannot_pay_storage_fee"}},
	{InsufficientFunds, []string{"subtraction_underflow"}},
	{CounterError, []string{"counter", "already used"}},
	{CounterError, []string{"counter_in_the_past"}},
	{CounterError, []string{"counter_in_the_future"}},
	{DelegateUnchanged, []string{"delegate.unchanged"}},
	{UnregisteredDelegate, []string{"unregistered_delegate"}},
	{EmptyImplicitDelegatedContract, []string{"empty_implicit_delegated_contract"}},
	{GasExhausted, []string{"gas_exhausted"}},
	{StorageExhausted, []string{"storage_exhausted"}},
	{GasLimitTooHigh, []string{"gas_limit_too_high"}},
	{StorageLimitTooHigh, []string{"storage_limit_too_high"}},
	{NonExistingContract, []string{"non_existing_contract"}},
	{InvalidAddress, []string{"invalid_contract_notation"}},
	{InvalidAddress, []string{"invalid_b58check"}},
	{InvalidAddress, []string{"invalid_address"}},
	{EmptyTransaction, []string{"empty_transaction"}},
	{ScriptRejected, []string{"script_rejected"}},
}

// Classifier matches error entries against an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New returns a classifier over rules; nil selects DefaultRules.
func New(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules
	}
	return &Classifier{rules: rules}
}

var defaultClassifier = New(nil)

// Match returns the kind of the first rule matching text, or Unknown.
func (c *Classifier) Match(text string) Kind {
	text = strings.ToLower(text)
	for _, r := range c.rules {
		if r.matches(text) {
			return r.Kind
		}
	}
	return Unknown
}

// ClassifyEntry classifies a single chain error entry.
func (c *Classifier) ClassifyEntry(e tezos.RPCError) Kind {
	return c.Match(e.Text())
}
