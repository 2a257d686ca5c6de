// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package signer

import "os"

const (
	TypeSoftware = "software"
	TypeDevice   = "device"
)

// Options selects and configures a signer.
type Options struct {
	Type          string
	PrivateKeyHex string
	// Device is required when Type is "device".
	Device Device
}

// New creates the signer described by opts. An empty type means software.
func New(opts Options) (Signer, error) {
	switch opts.Type {
	case "", TypeSoftware:
		if opts.PrivateKeyHex == "" {
			return nil, &SignerError{Op: "factory", Msg: "a private key is required for the software signer"}
		}
		return NewInMemorySigner(opts.PrivateKeyHex)

	case TypeDevice:
		if opts.Device == nil {
			return nil, &SignerError{Op: "factory", Msg: "no hardware device connected"}
		}
		return NewDeviceSigner(opts.Device), nil

	default:
		return nil, &SignerError{Op: "factory", Msg: "unsupported signer type: " + opts.Type}
	}
}

// NewFromEnv creates a software signer from TZSUBMIT_SIGNER_TYPE and
// TZSUBMIT_PRIVATE_KEY_HEX.
func NewFromEnv() (Signer, error) {
	return New(Options{
		Type:          os.Getenv("TZSUBMIT_SIGNER_TYPE"),
		PrivateKeyHex: os.Getenv("TZSUBMIT_PRIVATE_KEY_HEX"),
	})
}
