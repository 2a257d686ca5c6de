// Copyright 2025 Erst Users
// SPDX-License-Identifier: Apache-2.0

package tezos

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

// Curve identifies the signature scheme of a key.
type Curve string

const (
	Ed25519   Curve = "ed25519"
	Secp256k1 Curve = "secp256k1"
	P256      Curve = "p256"
)

// GenericOperationWatermark prefixes forged bytes before they are signed.
const GenericOperationWatermark byte = 0x03

// Sizes of the fixed-length placeholders used before a real signature exists.
const (
	SignatureSize    = 64
	BlockHashSize    = 32
	PublicKeyHashLen = 20
)

// DummySignatureHex is a zero signature appended to forged bytes so that size
// accounting matches the signed operation.
var DummySignatureHex = strings.Repeat("00", SignatureSize)

// DummySignature is the base58 form of a zero ed25519 signature, accepted by
// the dry-run endpoint which does not check signatures.
var DummySignature = mustEncode(prefixEdsig, make([]byte, SignatureSize))

var (
	prefixEdsig  = []byte{9, 245, 205, 134, 18}
	prefixSpsig  = []byte{13, 115, 101, 19, 63}
	prefixP2sig  = []byte{54, 240, 44, 52}
	prefixEdpk   = []byte{13, 15, 37, 217}
	prefixSppk   = []byte{3, 254, 226, 86}
	prefixP2pk   = []byte{3, 178, 139, 127}
	prefixTz1    = []byte{6, 161, 159}
	prefixTz2    = []byte{6, 161, 161}
	prefixTz3    = []byte{6, 161, 164}
	prefixKT1    = []byte{2, 90, 121}
	prefixBlock  = []byte{1, 52}
	prefixOpHash = []byte{5, 116}
)

func signaturePrefix(c Curve) ([]byte, error) {
	switch c {
	case Ed25519:
		return prefixEdsig, nil
	case Secp256k1:
		return prefixSpsig, nil
	case P256:
		return prefixP2sig, nil
	}
	return nil, fmt.Errorf("unsupported curve %q", c)
}

func publicKeyPrefix(c Curve) ([]byte, error) {
	switch c {
	case Ed25519:
		return prefixEdpk, nil
	case Secp256k1:
		return prefixSppk, nil
	case P256:
		return prefixP2pk, nil
	}
	return nil, fmt.Errorf("unsupported curve %q", c)
}

func addressPrefix(c Curve) ([]byte, error) {
	switch c {
	case Ed25519:
		return prefixTz1, nil
	case Secp256k1:
		return prefixTz2, nil
	case P256:
		return prefixTz3, nil
	}
	return nil, fmt.Errorf("unsupported curve %q", c)
}

func checksum(b []byte) []byte {
	first := sha256.Sum256(b)
	second := sha256.Sum256(first[:])
	return second[:4]
}

func encode(prefix, payload []byte) string {
	buf := make([]byte, 0, len(prefix)+len(payload)+4)
	buf = append(buf, prefix...)
	buf = append(buf, payload...)
	buf = append(buf, checksum(buf)...)
	return base58.Encode(buf)
}

func mustEncode(prefix, payload []byte) string {
	return encode(prefix, payload)
}

func decode(s string, prefix []byte, size int) ([]byte, error) {
	raw := base58.Decode(s)
	if len(raw) < len(prefix)+4 {
		return nil, fmt.Errorf("%q is not valid base58check", s)
	}
	body, sum := raw[:len(raw)-4], raw[len(raw)-4:]
	if !bytes.Equal(checksum(body), sum) {
		return nil, fmt.Errorf("%q has an invalid checksum", s)
	}
	if !bytes.HasPrefix(body, prefix) {
		return nil, fmt.Errorf("%q has an unexpected prefix", s)
	}
	payload := body[len(prefix):]
	if size > 0 && len(payload) != size {
		return nil, fmt.Errorf("%q decodes to %d bytes, want %d", s, len(payload), size)
	}
	return payload, nil
}

// EncodeSignature renders raw signature bytes with the curve's prefix.
func EncodeSignature(c Curve, sig []byte) (string, error) {
	prefix, err := signaturePrefix(c)
	if err != nil {
		return "", err
	}
	if len(sig) != SignatureSize {
		return "", fmt.Errorf("signature is %d bytes, want %d", len(sig), SignatureSize)
	}
	return encode(prefix, sig), nil
}

// EncodePublicKey renders a raw public key with the curve's prefix.
func EncodePublicKey(c Curve, pub []byte) (string, error) {
	prefix, err := publicKeyPrefix(c)
	if err != nil {
		return "", err
	}
	return encode(prefix, pub), nil
}

// AddressFromPublicKey derives the implicit account address of a public key.
func AddressFromPublicKey(c Curve, pub []byte) (string, error) {
	prefix, err := addressPrefix(c)
	if err != nil {
		return "", err
	}
	h, err := blake2b.New(PublicKeyHashLen, nil)
	if err != nil {
		return "", err
	}
	h.Write(pub)
	return encode(prefix, h.Sum(nil)), nil
}

// ValidateAddress checks an implicit (tz1/tz2/tz3) or originated (KT1) address.
func ValidateAddress(addr string) error {
	var prefix []byte
	switch {
	case strings.HasPrefix(addr, "tz1"):
		prefix = prefixTz1
	case strings.HasPrefix(addr, "tz2"):
		prefix = prefixTz2
	case strings.HasPrefix(addr, "tz3"):
		prefix = prefixTz3
	case strings.HasPrefix(addr, "KT1"):
		prefix = prefixKT1
	default:
		return fmt.Errorf("%q is not a known address type", addr)
	}
	_, err := decode(addr, prefix, PublicKeyHashLen)
	return err
}

// DecodeBlockHash validates a block hash and returns its raw bytes.
func DecodeBlockHash(b string) ([]byte, error) {
	return decode(b, prefixBlock, BlockHashSize)
}

// EncodeBlockHash renders raw block hash bytes.
func EncodeBlockHash(raw []byte) string {
	return encode(prefixBlock, raw)
}

// OperationHash computes the hash the chain assigns to signed operation bytes.
func OperationHash(signedHex string) (string, error) {
	raw, err := hex.DecodeString(signedHex)
	if err != nil {
		return "", fmt.Errorf("invalid operation hex: %w", err)
	}
	sum := blake2b.Sum256(raw)
	return encode(prefixOpHash, sum[:]), nil
}

// Watermark returns the watermarked bytes of a forged operation.
func Watermark(forgedHex string) ([]byte, error) {
	raw, err := hex.DecodeString(forgedHex)
	if err != nil {
		return nil, fmt.Errorf("invalid forged hex: %w", err)
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, GenericOperationWatermark)
	return append(out, raw...), nil
}

// Blake2b256 hashes b to 32 bytes.
func Blake2b256(b []byte) []byte {
	sum := blake2b.Sum256(b)
	return sum[:]
}
