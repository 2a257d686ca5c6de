// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/signer"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// resolveAccount picks the source account: the explicit flag, else the
// source of the first operation, else the signer's address. The public key
// is taken from the signer only when it controls that account. s may be nil.
func resolveAccount(s signer.Signer, ops []tezos.Operation, source, publicKey string) (string, string, error) {
	if source == "" && len(ops) > 0 {
		source = ops[0].Source()
	}

	if s != nil {
		addr, err := signer.Address(s)
		if err != nil {
			return "", "", err
		}
		if source == "" {
			source = addr
		}
		if publicKey == "" && source == addr {
			if publicKey, err = signer.EncodedPublicKey(s); err != nil {
				return "", "", err
			}
		}
	}

	if source == "" {
		return "", "", errors.WrapValidationError("a source account is required: pass --source or configure a signer")
	}
	if err := tezos.ValidateAddress(source); err != nil {
		return "", "", errors.WrapValidationError(err.Error())
	}
	return source, publicKey, nil
}

// optionalSigner returns the configured signer, or nil when none is usable.
func optionalSigner(a *app) signer.Signer {
	s, err := a.signer()
	if err != nil {
		logger.Logger.Debug("No signer available", "error", err)
		return nil
	}
	return s
}
