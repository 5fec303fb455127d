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

// disk storage layer

package storage

import (
	"context"

	"github.com/ethereum/go-ethereum/log"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/errors"
)

// LDBStore is a persistent ChunkStore backed by LevelDB. Chunks are keyed
// directly by their address; values are the raw chunk data.
type LDBStore struct {
	db   *leveldb.DB
	path string
}

// NewLDBStore opens (or creates) a LevelDB-backed chunk store at path.
func NewLDBStore(path string) (*LDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		if errors.IsCorrupted(err) {
			db, err = leveldb.RecoverFile(path, nil)
		}
		if err != nil {
			return nil, err
		}
	}
	log.Debug("chunk db opened", "path", path)
	return &LDBStore{db: db, path: path}, nil
}

// Put stores the chunk. Re-storing an identical chunk overwrites the same
// key with the same value, so the operation is idempotent.
func (s *LDBStore) Put(_ context.Context, ch Chunk) error {
	return s.db.Put(ch.Address(), ch.Data(), nil)
}

// Get retrieves the chunk at addr, or ErrChunkNotFound.
func (s *LDBStore) Get(_ context.Context, addr Address) (Chunk, error) {
	data, err := s.db.Get(addr, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, ErrChunkNotFound
		}
		return nil, err
	}
	return NewChunk(addr, data), nil
}

// Close flushes and closes the underlying database.
func (s *LDBStore) Close() error {
	return s.db.Close()
}
