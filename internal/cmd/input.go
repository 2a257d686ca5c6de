// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// readInput reads path, or stdin when path is "" or "-".
func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// decodeOperations accepts either a JSON array of operations or an
// operation group object with a "contents" field.
func decodeOperations(data []byte) ([]tezos.Operation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.WrapValidationError("no operations given")
	}

	if trimmed[0] == '{' {
		var p tezos.OperationPayload
		if err := json.Unmarshal(trimmed, &p); err != nil {
			return nil, errors.WrapValidationError(fmt.Sprintf("invalid operation group: %v", err))
		}
		return p.Contents, nil
	}

	ops, err := tezos.UnmarshalOperations(trimmed)
	if err != nil {
		return nil, errors.WrapValidationError(fmt.Sprintf("invalid operations: %v", err))
	}
	return ops, nil
}

func loadOperations(path string, stdin io.Reader) ([]tezos.Operation, error) {
	data, err := readInput(path, stdin)
	if err != nil {
		return nil, err
	}
	return decodeOperations(data)
}
