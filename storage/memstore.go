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

// memory storage layer

package storage

import (
	"context"

	lru "github.com/hashicorp/golang-lru"
)

const defaultCacheCapacity = 5000

// MemStore is an in-memory ChunkStore backed by an LRU cache. It is used in
// tests and as a front cache for slower backends.
type MemStore struct {
	cache *lru.Cache
}

// NewMemStore creates an in-memory chunk store holding at most capacity chunks.
// A capacity of zero selects the default.
func NewMemStore(capacity int) *MemStore {
	if capacity == 0 {
		capacity = defaultCacheCapacity
	}
	c, err := lru.New(capacity)
	if err != nil {
		panic(err)
	}
	return &MemStore{cache: c}
}

// Put stores the chunk. Storing the same chunk twice is a no-op.
func (m *MemStore) Put(_ context.Context, ch Chunk) error {
	m.cache.Add(string(ch.Address()), ch.Data())
	return nil
}

// Get retrieves the chunk at addr, or ErrChunkNotFound.
func (m *MemStore) Get(_ context.Context, addr Address) (Chunk, error) {
	data, ok := m.cache.Get(string(addr))
	if !ok {
		return nil, ErrChunkNotFound
	}
	return NewChunk(addr, data.([]byte)), nil
}

// Delete removes the chunk at addr, if present.
func (m *MemStore) Delete(addr Address) {
	m.cache.Remove(string(addr))
}

// Close releases the store.
func (m *MemStore) Close() error {
	m.cache.Purge()
	return nil
}
