// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"fmt"

	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Request is what a signer is asked to sign. When Prehashed is set Payload is
// already a 32-byte Blake2b digest and is signed as is.
type Request struct {
	Payload   []byte
	Prehashed bool
}

// Signature is a raw signature together with the curve that produced it.
type Signature struct {
	Bytes []byte
	Curve tezos.Curve
}

// Signer produces operation signatures. Implementations may hold keys in
// memory (InMemorySigner) or drive an external device (DeviceSigner).
type Signer interface {
	Sign(ctx context.Context, req Request) (Signature, error)

	// PublicKey returns the raw public key bytes.
	PublicKey() ([]byte, error)

	Curve() tezos.Curve
}

// Hardware is implemented by signers whose on-screen parser limits which
// operations can be reviewed on the device.
type Hardware interface {
	Signer
	Hardware()
}

// IsHardware reports whether s signs on a constrained device.
func IsHardware(s Signer) bool {
	_, ok := s.(Hardware)
	return ok
}

// SignerError is an error originating from a signing operation.
type SignerError struct {
	Op  string
	Msg string
	Err error
}

func (e *SignerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *SignerError) Unwrap() error {
	return e.Err
}

// Address derives the implicit account address of s.
func Address(s Signer) (string, error) {
	pub, err := s.PublicKey()
	if err != nil {
		return "", err
	}
	return tezos.AddressFromPublicKey(s.Curve(), pub)
}

// EncodedPublicKey returns the base58 public key of s, as used in a reveal.
func EncodedPublicKey(s Signer) (string, error) {
	pub, err := s.PublicKey()
	if err != nil {
		return "", err
	}
	return tezos.EncodePublicKey(s.Curve(), pub)
}
