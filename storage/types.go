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

// Package storage defines the chunk model shared by every other package:
// fixed-width content addresses, the Chunk unit of storage and the
// ChunkStore interface over which all feed I/O happens.
package storage

import (
	"bytes"
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	// AddressLength is the size in bytes of a chunk address
	AddressLength = 32

	// MaxChunkSize is the hard limit on the serialized size of a single chunk
	MaxChunkSize = 4096
)

// ErrChunkNotFound is returned by stores when the requested address holds no data.
// Absence is not corruption: callers such as the feed lookup machinery treat it
// as a miss signal rather than a failure.
var ErrChunkNotFound = errors.New("chunk not found")

// ErrChunkInvalid is returned when stored data does not belong at its address.
var ErrChunkInvalid = errors.New("invalid chunk")

// Address is a content address into the chunk store
type Address []byte

// ZeroAddr is the nil address
var ZeroAddr = Address(make([]byte, AddressLength))

// Hex renders the address as lowercase hex with 0x prefix
func (a Address) Hex() string {
	return hexutil.Encode(a[:])
}

func (a Address) String() string {
	return a.Hex()
}

// Equal tests two addresses for byte equality
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a, b)
}

// Chunk is the unit of storage. Address and data are bound together at
// construction time and immutable afterwards.
type Chunk interface {
	Address() Address
	Data() []byte
}

type chunk struct {
	addr  Address
	sdata []byte
}

// NewChunk constructs a chunk with an externally computed address, e.g. a
// single-owner chunk whose address is not the hash of its data.
func NewChunk(addr Address, data []byte) Chunk {
	return &chunk{addr: addr, sdata: data}
}

// NewContentChunk constructs a content-addressed chunk: the address is the
// Keccak-256 hash of the data, the scheme used for manifests and plain content.
func NewContentChunk(data []byte) Chunk {
	return &chunk{addr: crypto.Keccak256(data), sdata: data}
}

func (c *chunk) Address() Address {
	return c.addr
}

func (c *chunk) Data() []byte {
	return c.sdata
}

// ChunkStore is the collaborator contract all feed operations are written
// against. Put is idempotent: storing the same chunk twice is a no-op the
// second time. Get returns ErrChunkNotFound on a miss; there are no partial
// reads. Transport-level failures pass through unchanged.
type ChunkStore interface {
	Put(ctx context.Context, ch Chunk) error
	Get(ctx context.Context, addr Address) (Chunk, error)
	Close() error
}
