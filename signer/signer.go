// Copyright 2024 The feedcore Authors
// This file is part of the feedcore library.
//
// The feedcore library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The feedcore library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the feedcore library. If not, see <http://www.gnu.org/licenses/>.

// Package signer derives owner identities from secp256k1 keys and produces
// recoverable signatures over 32-byte digests. A feed owner is the 20-byte
// account derived from the signing key; signatures recover back to it.
package signer

import (
	"crypto/ecdsa"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the byte length of a recoverable signature (r ‖ s ‖ v)
const SignatureLength = 65

var (
	// ErrInvalidKey is returned when key material cannot be parsed into a
	// usable private key.
	ErrInvalidKey = errors.New("invalid key material")

	// ErrInvalidSignature is returned when a signature is malformed, i.e.
	// has the wrong length or an unrecoverable format. A recovered address
	// that merely differs from an expected one is not a signature error.
	ErrInvalidSignature = errors.New("invalid signature")
)

// Signature is a 65-byte recoverable ECDSA signature
type Signature [SignatureLength]byte

// Bytes returns the signature as a byte slice
func (s Signature) Bytes() []byte {
	return s[:]
}

// Signer signs digests on behalf of a feed owner
type Signer interface {
	// Sign signs the digest, producing a signature recoverable to Address()
	Sign(digest common.Hash) (Signature, error)
	// Address returns the owner identity this signer signs for
	Address() common.Address
}

// GenericSigner implements Signer over an in-memory ECDSA private key
type GenericSigner struct {
	PrivKey *ecdsa.PrivateKey
	address common.Address
}

// New creates a GenericSigner from an already parsed private key
func New(privKey *ecdsa.PrivateKey) *GenericSigner {
	return &GenericSigner{
		PrivKey: privKey,
		address: crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

// FromHex parses a hex-encoded secp256k1 private key into a signer
func FromHex(hexkey string) (*GenericSigner, error) {
	key, err := crypto.HexToECDSA(hexkey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return New(key), nil
}

// Sign signs the digest with deterministic ECDSA. The same digest always
// yields the same signature for a given key, which makes rewriting an
// identical feed update byte-for-byte idempotent.
func (s *GenericSigner) Sign(digest common.Hash) (signature Signature, err error) {
	sigBytes, err := crypto.Sign(digest.Bytes(), s.PrivKey)
	if err != nil {
		return signature, err
	}
	copy(signature[:], sigBytes)
	return signature, nil
}

// Address returns the 20-byte owner identity of the signing key
func (s *GenericSigner) Address() common.Address {
	return s.address
}

// Recover extracts the signer's address from a signature over digest.
// It fails with ErrInvalidSignature only if the signature itself is
// malformed; checking the recovered address against an expected owner is
// the caller's responsibility.
func Recover(digest common.Hash, signature Signature) (common.Address, error) {
	pub, err := crypto.SigToPub(digest.Bytes(), signature[:])
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
