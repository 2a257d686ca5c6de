// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import (
	"context"
	"sync"

	"github.com/dotandev/tzsubmit/internal/errors"
	"github.com/dotandev/tzsubmit/internal/logger"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Device is the transport to a hardware wallet. SignOperation may block until
// the user confirms on the device.
type Device interface {
	SignOperation(ctx context.Context, payload []byte, prehashed bool) ([]byte, error)
	PublicKey(ctx context.Context) ([]byte, error)
	Curve() tezos.Curve
}

// DeviceSigner signs on a hardware device. Only one request may be pending
// at a time and a failed request is never retried: the user must be asked
// again.
type DeviceSigner struct {
	device Device

	busy sync.Mutex

	keyOnce sync.Once
	pub     []byte
	pubErr  error
}

func NewDeviceSigner(d Device) *DeviceSigner {
	return &DeviceSigner{device: d}
}

func (s *DeviceSigner) Hardware() {}

func (s *DeviceSigner) Sign(ctx context.Context, req Request) (Signature, error) {
	if !s.busy.TryLock() {
		return Signature{}, errors.ErrSignerBusy
	}
	defer s.busy.Unlock()

	logger.Logger.Info("Waiting for confirmation on device", "bytes", len(req.Payload), "prehashed", req.Prehashed)
	sig, err := s.device.SignOperation(ctx, req.Payload, req.Prehashed)
	if err != nil {
		return Signature{}, &SignerError{Op: "device", Msg: "signing failed", Err: err}
	}
	if len(sig) != tezos.SignatureSize {
		return Signature{}, &SignerError{Op: "device", Msg: "device returned a malformed signature"}
	}
	return Signature{Bytes: sig, Curve: s.device.Curve()}, nil
}

// PublicKey reads the key once and caches it.
func (s *DeviceSigner) PublicKey() ([]byte, error) {
	s.keyOnce.Do(func() {
		s.pub, s.pubErr = s.device.PublicKey(context.Background())
		if s.pubErr != nil {
			s.pubErr = &SignerError{Op: "device", Msg: "reading public key", Err: s.pubErr}
		}
	})
	return s.pub, s.pubErr
}

func (s *DeviceSigner) Curve() tezos.Curve {
	return s.device.Curve()
}
