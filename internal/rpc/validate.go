// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dotandev/tzsubmit/internal/errors"
)

// ValidateURL checks that s is an absolute http(s) node URL.
func ValidateURL(s string) error {
	if s == "" {
		return errors.WrapValidationError("URL cannot be empty")
	}

	parsed, err := url.Parse(s)
	if err != nil {
		return errors.WrapValidationError(fmt.Sprintf("invalid URL format: %v", err))
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.WrapValidationError(fmt.Sprintf("URL scheme must be http or https, got %q", parsed.Scheme))
	}
	if parsed.Host == "" {
		return errors.WrapValidationError("URL must include a host")
	}
	return nil
}

func normalizeURL(s string) string {
	return strings.TrimRight(s, "/")
}
