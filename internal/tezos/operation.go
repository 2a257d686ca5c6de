// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OperationKind is the chain's JSON "kind" of an operation.
type OperationKind string

const (
	KindReveal          OperationKind = "reveal"
	KindTransaction     OperationKind = "transaction"
	KindOrigination     OperationKind = "origination"
	KindDelegation      OperationKind = "delegation"
	KindActivateAccount OperationKind = "activate_account"
)

// IsManager reports whether operations of this kind carry a counter and limits.
func (k OperationKind) IsManager() bool {
	switch k {
	case KindReveal, KindTransaction, KindOrigination, KindDelegation:
		return true
	}
	return false
}

// NetworkFeeKind names a protocol-levied charge reported next to the baker fee.
type NetworkFeeKind string

const (
	BurnFee       NetworkFeeKind = "burnFee"
	AllocationFee NetworkFeeKind = "allocationFee"
)

// NetworkFee maps a network fee kind to its amount.
type NetworkFee map[NetworkFeeKind]Mutez

// OperationFees is the fee record owned by a single operation.
type OperationFees struct {
	TransactionFee Mutez        `json:"transactionFee"`
	NetworkFees    []NetworkFee `json:"networkFees"`
	GasLimit       int64        `json:"gasLimit"`
	StorageLimit   int64        `json:"storageLimit"`
}

// Clone returns a copy that shares no maps or slices with f.
func (f OperationFees) Clone() OperationFees {
	out := f
	if f.NetworkFees != nil {
		out.NetworkFees = make([]NetworkFee, len(f.NetworkFees))
		for i, nf := range f.NetworkFees {
			cp := make(NetworkFee, len(nf))
			for k, v := range nf {
				cp[k] = v
			}
			out.NetworkFees[i] = cp
		}
	}
	return out
}

// NetworkFeeTotal sums every network fee entry of the given kind.
func (f OperationFees) NetworkFeeTotal(kind NetworkFeeKind) Mutez {
	var total Mutez
	for _, nf := range f.NetworkFees {
		total += nf[kind]
	}
	return total
}

// Operation is one entry of an operation group. The set of implementations is
// closed: Reveal, Transaction, Origination, Delegation and ActivateAccount.
// Values are immutable; the With* methods return modified copies.
type Operation interface {
	Kind() OperationKind
	Source() string
	Counter() int64
	Fees() OperationFees
	WithFees(OperationFees) Operation
	WithCounter(int64) Operation
	MarshalJSON() ([]byte, error)

	clone() Operation
}

type header struct {
	source  string
	counter int64
	fees    OperationFees
}

func (h header) Source() string      { return h.source }
func (h header) Counter() int64      { return h.counter }
func (h header) Fees() OperationFees { return h.fees.Clone() }

func (h header) wire(kind OperationKind) managerWire {
	return managerWire{
		Kind:         kind,
		Source:       h.source,
		Fee:          int64(h.fees.TransactionFee),
		Counter:      h.counter,
		GasLimit:     h.fees.GasLimit,
		StorageLimit: h.fees.StorageLimit,
	}
}

func headerFromWire(w managerWire) header {
	return header{
		source:  w.Source,
		counter: w.Counter,
		fees: OperationFees{
			TransactionFee: Mutez(w.Fee),
			GasLimit:       w.GasLimit,
			StorageLimit:   w.StorageLimit,
		},
	}
}

type managerWire struct {
	Kind         OperationKind `json:"kind"`
	Source       string        `json:"source"`
	Fee          int64         `json:"fee,string"`
	Counter      int64         `json:"counter,string"`
	GasLimit     int64         `json:"gas_limit,string"`
	StorageLimit int64         `json:"storage_limit,string"`
}

// Parameters is the entrypoint call attached to a transaction.
type Parameters struct {
	Entrypoint string          `json:"entrypoint"`
	Value      json.RawMessage `json:"value"`
}

func (p *Parameters) clone() *Parameters {
	if p == nil {
		return nil
	}
	return &Parameters{Entrypoint: p.Entrypoint, Value: cloneRaw(p.Value)}
}

func cloneRaw(r json.RawMessage) json.RawMessage {
	if r == nil {
		return nil
	}
	return append(json.RawMessage(nil), r...)
}

// ─── Reveal ──────────────────────────────────────────────────────────────────

// Reveal publishes the public key of an implicit account.
type Reveal struct {
	header
	publicKey string
}

func NewReveal(source, publicKey string) Reveal {
	return Reveal{header: header{source: source}, publicKey: publicKey}
}

func (r Reveal) Kind() OperationKind { return KindReveal }
func (r Reveal) PublicKey() string   { return r.publicKey }

func (r Reveal) WithFees(f OperationFees) Operation { r.fees = f.Clone(); return r }
func (r Reveal) WithCounter(c int64) Operation      { r.counter = c; return r }
func (r Reveal) clone() Operation                   { return r.WithFees(r.fees) }

type revealWire struct {
	managerWire
	PublicKey string `json:"public_key"`
}

func (r Reveal) MarshalJSON() ([]byte, error) {
	return json.Marshal(revealWire{managerWire: r.wire(KindReveal), PublicKey: r.publicKey})
}

// ─── Transaction ─────────────────────────────────────────────────────────────

// Transaction transfers tez and optionally calls a contract entrypoint.
type Transaction struct {
	header
	amount      Mutez
	destination string
	parameters  *Parameters
}

func NewTransaction(source, destination string, amount Mutez, params *Parameters) Transaction {
	return Transaction{
		header:      header{source: source},
		amount:      amount,
		destination: destination,
		parameters:  params.clone(),
	}
}

func (t Transaction) Kind() OperationKind     { return KindTransaction }
func (t Transaction) Amount() Mutez           { return t.amount }
func (t Transaction) Destination() string     { return t.destination }
func (t Transaction) Parameters() *Parameters { return t.parameters.clone() }

func (t Transaction) WithFees(f OperationFees) Operation { t.fees = f.Clone(); return t }
func (t Transaction) WithCounter(c int64) Operation      { t.counter = c; return t }
func (t Transaction) clone() Operation {
	t.parameters = t.parameters.clone()
	return t.WithFees(t.fees)
}

type transactionWire struct {
	managerWire
	Amount      int64       `json:"amount,string"`
	Destination string      `json:"destination"`
	Parameters  *Parameters `json:"parameters,omitempty"`
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionWire{
		managerWire: t.wire(KindTransaction),
		Amount:      int64(t.amount),
		Destination: t.destination,
		Parameters:  t.parameters,
	})
}

// ─── Origination ─────────────────────────────────────────────────────────────

// Origination deploys a smart contract.
type Origination struct {
	header
	balance  Mutez
	delegate string
	script   json.RawMessage
}

func NewOrigination(source string, balance Mutez, delegate string, script json.RawMessage) Origination {
	return Origination{
		header:   header{source: source},
		balance:  balance,
		delegate: delegate,
		script:   cloneRaw(script),
	}
}

func (o Origination) Kind() OperationKind     { return KindOrigination }
func (o Origination) Balance() Mutez          { return o.balance }
func (o Origination) Delegate() string        { return o.delegate }
func (o Origination) Script() json.RawMessage { return cloneRaw(o.script) }

func (o Origination) WithFees(f OperationFees) Operation { o.fees = f.Clone(); return o }
func (o Origination) WithCounter(c int64) Operation      { o.counter = c; return o }
func (o Origination) clone() Operation {
	o.script = cloneRaw(o.script)
	return o.WithFees(o.fees)
}

type originationWire struct {
	managerWire
	Balance  int64           `json:"balance,string"`
	Delegate string          `json:"delegate,omitempty"`
	Script   json.RawMessage `json:"script"`
}

func (o Origination) MarshalJSON() ([]byte, error) {
	return json.Marshal(originationWire{
		managerWire: o.wire(KindOrigination),
		Balance:     int64(o.balance),
		Delegate:    o.delegate,
		Script:      o.script,
	})
}

// ─── Delegation ──────────────────────────────────────────────────────────────

// Delegation sets or, with an empty delegate, withdraws the account's delegate.
type Delegation struct {
	header
	delegate string
}

func NewDelegation(source, delegate string) Delegation {
	return Delegation{header: header{source: source}, delegate: delegate}
}

func (d Delegation) Kind() OperationKind { return KindDelegation }
func (d Delegation) Delegate() string    { return d.delegate }

func (d Delegation) WithFees(f OperationFees) Operation { d.fees = f.Clone(); return d }
func (d Delegation) WithCounter(c int64) Operation      { d.counter = c; return d }
func (d Delegation) clone() Operation                   { return d.WithFees(d.fees) }

type delegationWire struct {
	managerWire
	Delegate string `json:"delegate,omitempty"`
}

func (d Delegation) MarshalJSON() ([]byte, error) {
	return json.Marshal(delegationWire{managerWire: d.wire(KindDelegation), Delegate: d.delegate})
}

// ─── ActivateAccount ─────────────────────────────────────────────────────────

// ActivateAccount claims a fundraiser account. It is not a manager operation:
// the fee record is kept for uniform handling but never serialized.
type ActivateAccount struct {
	header
	secret string
}

// NewActivateAccount builds an activation for the public key hash pkh.
func NewActivateAccount(pkh, secret string) ActivateAccount {
	return ActivateAccount{header: header{source: pkh}, secret: secret}
}

func (a ActivateAccount) Kind() OperationKind { return KindActivateAccount }
func (a ActivateAccount) Secret() string      { return a.secret }

func (a ActivateAccount) WithFees(f OperationFees) Operation { a.fees = f.Clone(); return a }
func (a ActivateAccount) WithCounter(int64) Operation        { return a }
func (a ActivateAccount) clone() Operation                   { return a.WithFees(a.fees) }

type activationWire struct {
	Kind   OperationKind `json:"kind"`
	Pkh    string        `json:"pkh"`
	Secret string        `json:"secret"`
}

func (a ActivateAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(activationWire{Kind: KindActivateAccount, Pkh: a.source, Secret: a.secret})
}

// ─── Decoding ────────────────────────────────────────────────────────────────

// UnmarshalOperation decodes one operation from the chain's JSON shape.
func UnmarshalOperation(data []byte) (Operation, error) {
	var peek struct {
		Kind OperationKind `json:"kind"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return nil, err
	}

	switch peek.Kind {
	case KindReveal:
		var w revealWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Reveal{header: headerFromWire(w.managerWire), publicKey: w.PublicKey}, nil
	case KindTransaction:
		var w transactionWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Transaction{
			header:      headerFromWire(w.managerWire),
			amount:      Mutez(w.Amount),
			destination: w.Destination,
			parameters:  w.Parameters,
		}, nil
	case KindOrigination:
		var w originationWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Origination{
			header:   headerFromWire(w.managerWire),
			balance:  Mutez(w.Balance),
			delegate: w.Delegate,
			script:   w.Script,
		}, nil
	case KindDelegation:
		var w delegationWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return Delegation{header: headerFromWire(w.managerWire), delegate: w.Delegate}, nil
	case KindActivateAccount:
		var w activationWire
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, err
		}
		return ActivateAccount{header: header{source: w.Pkh}, secret: w.Secret}, nil
	default:
		return nil, fmt.Errorf("unsupported operation kind %q", peek.Kind)
	}
}

// UnmarshalOperations decodes a JSON array of operations.
func UnmarshalOperations(data []byte) ([]Operation, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	ops := make([]Operation, 0, len(raws))
	for i, raw := range raws {
		op, err := UnmarshalOperation(raw)
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i, err)
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// CloneOperations deep-copies an operation list, fee suggestions included.
func CloneOperations(ops []Operation) []Operation {
	if ops == nil {
		return nil
	}
	out := make([]Operation, len(ops))
	for i, op := range ops {
		out[i] = op.clone()
	}
	return out
}

// canonicalJSON re-encodes an operation so that key order and whitespace of
// embedded Micheline do not affect comparisons.
func canonicalJSON(op Operation) ([]byte, error) {
	raw, err := op.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}
