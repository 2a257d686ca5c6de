// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"

	"github.com/dotandev/tzsubmit/internal/tezos"
)

// InMemorySigner holds an Ed25519 private key in process memory.
type InMemorySigner struct {
	privateKey ed25519.PrivateKey
}

// NewInMemorySigner creates an InMemorySigner from a hex-encoded Ed25519
// private key, either a 32-byte seed or a full 64-byte key.
func NewInMemorySigner(privateKeyHex string) (*InMemorySigner, error) {
	raw, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, &SignerError{Op: "inmemory", Msg: "invalid private key hex", Err: err}
	}

	switch len(raw) {
	case ed25519.SeedSize:
		return &InMemorySigner{privateKey: ed25519.NewKeyFromSeed(raw)}, nil
	case ed25519.PrivateKeySize:
		return &InMemorySigner{privateKey: ed25519.PrivateKey(raw)}, nil
	}
	return nil, &SignerError{Op: "inmemory", Msg: fmt.Sprintf("invalid private key length: %d", len(raw))}
}

func NewInMemorySignerFromKey(key ed25519.PrivateKey) *InMemorySigner {
	return &InMemorySigner{privateKey: key}
}

// Sign signs the Blake2b-256 digest of the payload, or the payload itself
// when it is already a digest.
func (s *InMemorySigner) Sign(_ context.Context, req Request) (Signature, error) {
	digest := req.Payload
	if !req.Prehashed {
		digest = tezos.Blake2b256(req.Payload)
	}
	return Signature{Bytes: ed25519.Sign(s.privateKey, digest), Curve: tezos.Ed25519}, nil
}

func (s *InMemorySigner) PublicKey() ([]byte, error) {
	pub, ok := s.privateKey.Public().(ed25519.PublicKey)
	if !ok {
		return nil, &SignerError{Op: "inmemory", Msg: "failed to derive public key"}
	}
	return []byte(pub), nil
}

func (s *InMemorySigner) Curve() tezos.Curve {
	return tezos.Ed25519
}
