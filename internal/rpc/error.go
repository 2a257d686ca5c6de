// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"

	"github.com/dotandev/tzsubmit/internal/tezos"
)

// maxBodyInMessage bounds the response body quoted in Error().
const maxBodyInMessage = 256

// Error is a failed node call. It carries enough of the exchange for the
// caller to classify and report it.
type Error struct {
	Method       string
	URL          string
	RequestBody  string
	ResponseBody string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	body := e.ResponseBody
	if len(body) > maxBodyInMessage {
		body = body[:maxBodyInMessage] + "..."
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s: status %d: %v: %s", e.Method, e.URL, e.StatusCode, e.Err, body)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, body)
}

func (e *Error) Unwrap() error { return e.Err }

// Entries decodes the response body as a chain error list.
func (e *Error) Entries() ([]tezos.RPCError, error) {
	if e.ResponseBody == "" {
		return nil, fmt.Errorf("empty response body")
	}
	return tezos.DecodeRPCErrors([]byte(e.ResponseBody))
}

// retryable reports whether the next candidate URL should be tried.
func (e *Error) retryable() bool {
	switch e.StatusCode {
	case 0, 502, 503, 504:
		return true
	}
	return false
}
