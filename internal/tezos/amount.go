// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"github.com/shopspring/decimal"
)

// Mutez is the smallest spendable unit (1 tez = 1 000 000 mutez).
type Mutez int64

// NanoTez is 1/1000 of a mutez, used while accumulating fees before rounding.
type NanoTez int64

// MutezPerTez is the number of mutez in one tez.
const MutezPerTez = 1_000_000

// RoundUpToMutez converts nanotez to mutez, rounding up on any remainder.
func RoundUpToMutez(n NanoTez, nanoTezPerMutez int64) Mutez {
	if n <= 0 || nanoTezPerMutez <= 0 {
		return 0
	}
	q := int64(n) / nanoTezPerMutez
	if int64(n)%nanoTezPerMutez != 0 {
		q++
	}
	return Mutez(q)
}

// FormatTez renders an amount in tez with up to six decimals.
func FormatTez(m Mutez) string {
	return decimal.New(int64(m), -6).String()
}

// ParseTez parses a decimal tez amount into mutez. Amounts with more than six
// decimals are rejected rather than rounded.
func ParseTez(s string) (Mutez, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, errNegativeAmount
	}
	scaled := d.Shift(6)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, errTooPrecise
	}
	return Mutez(scaled.IntPart()), nil
}
