// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for comparison with errors.Is
var (
	ErrRPCConnectionFailed  = errors.New("RPC connection failed")
	ErrRPCTimeout           = errors.New("RPC request timed out")
	ErrSimulationFailed     = errors.New("simulation failed")
	ErrPreapplyFailed       = errors.New("preapply rejected the operation")
	ErrMarshalFailed        = errors.New("failed to marshal request")
	ErrUnmarshalFailed      = errors.New("failed to unmarshal response")
	ErrValidation           = errors.New("validation error")
	ErrConfig               = errors.New("configuration error")
	ErrEmptyOperations      = errors.New("operation list is empty")
	ErrFeeCountMismatch     = errors.New("fee count does not match operation count")
	ErrForgingNotConfigured = errors.New("forging is not configured")
	ErrSignerBusy           = errors.New("signer already in use")
	ErrNoParseEndpoint      = errors.New("no remote parse endpoint configured")
	ErrParseMismatch        = errors.New("parsed operation does not match the forged payload")
)

// Wrap functions for consistent error wrapping
func WrapRPCConnectionFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrRPCConnectionFailed, err)
}

func WrapRPCTimeout(err error) error {
	return fmt.Errorf("%w: %w", ErrRPCTimeout, err)
}

func WrapSimulationFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrSimulationFailed, err)
}

func WrapPreapplyFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrPreapplyFailed, err)
}

func WrapMarshalFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrMarshalFailed, err)
}

func WrapUnmarshalFailed(err error, output string) error {
	return fmt.Errorf("%w: %w, output: %s", ErrUnmarshalFailed, err, output)
}

func WrapValidationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func WrapConfigError(msg string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrConfig, msg)
	}
	return fmt.Errorf("%w: %s: %w", ErrConfig, msg, err)
}

func WrapFeeCountMismatch(fees, operations int) error {
	return fmt.Errorf("%w: %d fee records for %d operations", ErrFeeCountMismatch, fees, operations)
}

func WrapForgingNotConfigured(mode string) error {
	return fmt.Errorf("%w: no codec for %q forging", ErrForgingNotConfigured, mode)
}

func WrapParseMismatch(detail error) error {
	return fmt.Errorf("%w: %w", ErrParseMismatch, detail)
}
