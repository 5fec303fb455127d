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

// Package soc implements single-owner chunks: content-addressed chunks whose
// address is derived from an identifier and an owner identity rather than
// from the data alone, and whose payload is authenticated by a recoverable
// signature of the owner.
//
// Chunk layout:
//
//	signature (65 bytes) ‖ owner (20 bytes) ‖ identifier (32 bytes) ‖
//	span (8 bytes, little-endian payload length) ‖ payload
//
// with
//
//	identifier = Keccak256(topic ‖ index)
//	address    = Keccak256(identifier ‖ owner)
//	digest     = Keccak256(identifier ‖ Keccak256(payload))
//
// A chunk is valid iff recovering the signer of the digest from the embedded
// signature yields exactly the embedded owner.
package soc

import (
	"encoding/binary"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/swarmforge/feedcore/signer"
	"github.com/swarmforge/feedcore/storage"
)

const (
	// IdentifierLength is the size of a chunk identifier
	IdentifierLength = 32

	spanLength = 8

	// HeaderLength is the fixed size of the wire header preceding the payload
	HeaderLength = signer.SignatureLength + common.AddressLength + IdentifierLength + spanLength

	// MaxPayloadLength is the largest payload that still fits a chunk
	MaxPayloadLength = storage.MaxChunkSize - HeaderLength
)

var (
	// ErrMalformed is returned when chunk data is too short to carry the
	// fixed header or its span contradicts the payload length.
	ErrMalformed = errors.New("malformed single-owner chunk")

	// ErrSignatureMismatch is returned when the embedded signature does not
	// authenticate the chunk contents for the embedded owner.
	ErrSignatureMismatch = errors.New("signature mismatch")

	// ErrIdentifierMismatch is returned when the embedded identifier differs
	// from the one the caller derived.
	ErrIdentifierMismatch = errors.New("identifier mismatch")

	// ErrPayloadTooLarge is returned when the payload exceeds MaxPayloadLength
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrPayloadTooSmall is returned when the payload is empty
	ErrPayloadTooSmall = errors.New("payload too small")
)

// Identifier is the content-independent half of a single-owner chunk address
type Identifier common.Hash

// Bytes returns the identifier as a byte slice
func (id Identifier) Bytes() []byte {
	return id[:]
}

// Hex renders the identifier as 0x-prefixed hex
func (id Identifier) Hex() string {
	return common.Hash(id).Hex()
}

// NewIdentifier derives a chunk identifier from a 32-byte topic and the
// serialized feed index.
func NewIdentifier(topic, index []byte) Identifier {
	return Identifier(common.BytesToHash(crypto.Keccak256(topic, index)))
}

// Address derives the chunk address owned by owner under the identifier.
// The derivation is a pure function of its inputs; distinct (identifier,
// owner) pairs collide only with hash-width probability.
func Address(id Identifier, owner common.Address) storage.Address {
	return crypto.Keccak256(id[:], owner[:])
}

// Digest computes the digest signed by the owner
func Digest(id Identifier, payload []byte) common.Hash {
	return common.BytesToHash(crypto.Keccak256(id[:], crypto.Keccak256(payload)))
}

// SOC is a single-owner chunk in its parsed form
type SOC struct {
	id        Identifier
	owner     common.Address
	signature signer.Signature
	payload   []byte
}

// New creates an unsigned single-owner chunk, validating payload bounds
func New(id Identifier, payload []byte) (*SOC, error) {
	if len(payload) == 0 {
		return nil, ErrPayloadTooSmall
	}
	if len(payload) > MaxPayloadLength {
		return nil, ErrPayloadTooLarge
	}
	return &SOC{id: id, payload: payload}, nil
}

// Identifier returns the chunk identifier
func (s *SOC) Identifier() Identifier {
	return s.id
}

// Owner returns the owner identity that signed the chunk
func (s *SOC) Owner() common.Address {
	return s.owner
}

// Signature returns the owner's signature over the chunk digest
func (s *SOC) Signature() signer.Signature {
	return s.signature
}

// Payload returns the chunk payload
func (s *SOC) Payload() []byte {
	return s.payload
}

// Address returns the chunk's store address
func (s *SOC) Address() storage.Address {
	return Address(s.id, s.owner)
}

// Sign signs the chunk digest and records the owner identity. It must be
// called before Chunk.
func (s *SOC) Sign(sg signer.Signer) error {
	sig, err := sg.Sign(Digest(s.id, s.payload))
	if err != nil {
		return err
	}
	s.signature = sig
	s.owner = sg.Address()
	return nil
}

// Chunk serializes the signed chunk into its wire form, addressed at
// Keccak256(identifier ‖ owner).
func (s *SOC) Chunk() (storage.Chunk, error) {
	if s.signature == (signer.Signature{}) {
		return nil, errors.New("single-owner chunk is not signed")
	}
	data := make([]byte, HeaderLength+len(s.payload))
	cursor := 0
	copy(data[cursor:], s.signature[:])
	cursor += signer.SignatureLength
	copy(data[cursor:], s.owner[:])
	cursor += common.AddressLength
	copy(data[cursor:], s.id[:])
	cursor += IdentifierLength
	binary.LittleEndian.PutUint64(data[cursor:], uint64(len(s.payload)))
	cursor += spanLength
	copy(data[cursor:], s.payload)
	return storage.NewChunk(s.Address(), data), nil
}

// FromChunk parses and authenticates a single-owner chunk. If expected is
// non-nil the embedded identifier must match it. A successfully parsed chunk
// guarantees payload authenticity: the signature recovers to the embedded
// owner over the recomputed digest.
func FromChunk(ch storage.Chunk, expected *Identifier) (*SOC, error) {
	return Decode(ch.Data(), expected)
}

// Decode parses and authenticates raw single-owner chunk data
func Decode(data []byte, expected *Identifier) (*SOC, error) {
	if len(data) < HeaderLength+1 || len(data) > storage.MaxChunkSize {
		return nil, ErrMalformed
	}
	s := &SOC{}
	cursor := 0
	copy(s.signature[:], data[cursor:cursor+signer.SignatureLength])
	cursor += signer.SignatureLength
	copy(s.owner[:], data[cursor:cursor+common.AddressLength])
	cursor += common.AddressLength
	copy(s.id[:], data[cursor:cursor+IdentifierLength])
	cursor += IdentifierLength
	span := binary.LittleEndian.Uint64(data[cursor : cursor+spanLength])
	cursor += spanLength
	s.payload = data[cursor:]
	if span != uint64(len(s.payload)) {
		return nil, ErrMalformed
	}
	if expected != nil && s.id != *expected {
		return nil, ErrIdentifierMismatch
	}
	recovered, err := signer.Recover(Digest(s.id, s.payload), s.signature)
	if err != nil {
		// unrecoverable signatures invalidate the chunk as a whole
		return nil, ErrSignatureMismatch
	}
	if recovered != s.owner {
		return nil, ErrSignatureMismatch
	}
	return s, nil
}
