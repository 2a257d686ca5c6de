// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

// Package classifier reduces the loosely structured error lists returned by a
// Tezos node to a single Kind from a closed taxonomy.
package classifier

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/dotandev/tzsubmit/internal/rpc"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Error is a classified failure. Only this package constructs it.
type Error struct {
	Kind Kind
	// Entry is the representative chain error, nil for pure transport failures.
	Entry *tezos.RPCError
	// Entries holds every entry that was considered, in original order.
	Entries []tezos.RPCError

	Method       string
	URL          string
	RequestBody  string
	ResponseBody string
	StatusCode   int

	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Entry != nil {
		b.WriteString(": ")
		if e.Entry.ID != "" {
			b.WriteString(e.Entry.ID)
		} else {
			b.WriteString(e.Entry.Msg)
		}
		if fw := e.Entry.FailWith(); fw != "" {
			fmt.Fprintf(&b, " (%s)", fw)
		}
	} else if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " [%s %s: %d]", e.Method, e.URL, e.StatusCode)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches a Kind target.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// ClassifyEntry classifies one entry with DefaultRules.
func ClassifyEntry(e tezos.RPCError) Kind {
	return defaultClassifier.ClassifyEntry(e)
}

// ClassifyEntries classifies a batch with DefaultRules.
func ClassifyEntries(entries []tezos.RPCError) *Error {
	return defaultClassifier.ClassifyEntries(entries)
}

// ClassifyResults classifies simulation or preapply results with DefaultRules.
func ClassifyResults(ops []tezos.SimulatedOperation) *Error {
	return defaultClassifier.ClassifyResults(ops)
}

// ClassifyBody classifies a raw response body with DefaultRules.
func ClassifyBody(body string) *Error {
	return defaultClassifier.ClassifyBody(body)
}

// FromTransport classifies a node call failure with DefaultRules.
func FromTransport(err error) *Error {
	return defaultClassifier.FromTransport(err)
}

// ClassifyEntries returns nil when entries is empty. Otherwise entries of
// unknown kind are discarded and the last remaining one is reported; later
// entries tend to be the root cause while earlier ones only say that the
// group was aborted. When every entry is unknown the result has Kind Unknown.
func (c *Classifier) ClassifyEntries(entries []tezos.RPCError) *Error {
	if len(entries) == 0 {
		return nil
	}
	all := append([]tezos.RPCError(nil), entries...)

	for i := len(all) - 1; i >= 0; i-- {
		if k := c.ClassifyEntry(all[i]); k != Unknown {
			return &Error{Kind: k, Entry: &all[i], Entries: all}
		}
	}
	return &Error{Kind: Unknown, Entry: &all[len(all)-1], Entries: all}
}

// ClassifyResults gathers the errors of every operation, each followed by
// the errors of its internal operations, and classifies them as one batch.
func (c *Classifier) ClassifyResults(ops []tezos.SimulatedOperation) *Error {
	var entries []tezos.RPCError
	for _, op := range ops {
		entries = append(entries, op.Metadata.OperationResult.Errors...)
		for _, in := range op.Metadata.InternalOperationResults {
			entries = append(entries, in.Result.Errors...)
		}
	}
	return c.ClassifyEntries(entries)
}

// FromTransport converts a failed node call. Chain error lists and
// operation results in the response body are classified; a plain-text body
// is matched as a message; anything else is a Transport error. A nil err
// yields nil.
func (c *Classifier) FromTransport(err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if stderrors.As(err, &ce) {
		return ce
	}

	var re *rpc.Error
	if !stderrors.As(err, &re) {
		return &Error{Kind: Transport, Err: err}
	}

	out := &Error{Kind: Transport, Err: err}
	if ce := c.ClassifyBody(re.ResponseBody); ce != nil {
		out = ce
		out.Err = err
	}
	out.Method = re.Method
	out.URL = re.URL
	out.RequestBody = re.RequestBody
	out.ResponseBody = re.ResponseBody
	out.StatusCode = re.StatusCode
	return out
}

// ClassifyBody classifies a raw node response: a chain error list, a
// simulation or preapply result, or a plain-text message. It returns nil when
// the body carries nothing recognisable.
func (c *Classifier) ClassifyBody(body string) *Error {
	if strings.TrimSpace(body) == "" {
		return nil
	}
	if entries, err := tezos.DecodeRPCErrors([]byte(body)); err == nil && len(entries) > 0 {
		return c.ClassifyEntries(entries)
	}
	if sim, err := tezos.DecodeSimulationResult([]byte(body)); err == nil && len(sim.Contents) > 0 {
		if ce := c.ClassifyResults(sim.Contents); ce != nil {
			return ce
		}
	}
	if k := c.Match(body); k != Unknown {
		entry := tezos.RPCError{Msg: strings.TrimSpace(body)}
		return &Error{Kind: k, Entry: &entry, Entries: []tezos.RPCError{entry}}
	}
	return nil
}
