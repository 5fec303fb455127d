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

// Handler is the API for feeds.
// It enables publishing new feed updates and retrieving specific or latest
// updates over any ChunkStore.

package feed

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/swarmforge/feedcore/signer"
	"github.com/swarmforge/feedcore/soc"
	"github.com/swarmforge/feedcore/storage"
)

const defaultCacheSize = 1000

// Handler implements feed operations over a chunk store. It holds no state
// of its own beyond a cache of the latest known update per feed; every
// operation is self-contained given its explicit feed parameters.
type Handler struct {
	chunkStore storage.ChunkStore
	cache      *lru.Cache
}

// cacheEntry caches the latest known update of a feed
type cacheEntry struct {
	index   Index
	payload []byte
	addr    storage.Address
}

// NewHandler creates a new feed API over the given chunk store
func NewHandler(chunkStore storage.ChunkStore) *Handler {
	cache, err := lru.New(defaultCacheSize)
	if err != nil {
		panic(err)
	}
	return &Handler{
		chunkStore: chunkStore,
		cache:      cache,
	}
}

// NextIndex computes the index the next update of fd must be written at.
// prior is the index of the last persisted update, or nil for a new feed.
func (h *Handler) NextIndex(fd Feed, prior Index) (Index, error) {
	return NextIndex(fd.Type, prior, TimestampProvider.Now().Time)
}

// Update publishes a new feed update: it computes the next index after
// prior, builds a signed single-owner chunk around payload and stores it.
// The returned index must be persisted by the caller as the prior index of
// the subsequent update. The store call is the only I/O; all address and
// signature computation is local and deterministic, so re-publishing the
// same payload at the same index is idempotent.
func (h *Handler) Update(ctx context.Context, sg signer.Signer, fd Feed, prior Index, payload []byte) (storage.Address, Index, error) {
	if fd.User == (common.Address{}) {
		fd.User = sg.Address()
	} else if fd.User != sg.Address() {
		return nil, nil, NewErrorf(ErrUnauthorized, "signer %s does not own feed of user %s", sg.Address().Hex(), fd.User.Hex())
	}

	index, err := h.NextIndex(fd, prior)
	if err != nil {
		return nil, nil, err
	}
	id, err := fd.Identifier(index)
	if err != nil {
		return nil, nil, err
	}
	s, err := soc.New(id, payload)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Sign(sg); err != nil {
		return nil, nil, err
	}
	ch, err := s.Chunk()
	if err != nil {
		return nil, nil, err
	}
	if err := h.chunkStore.Put(ctx, ch); err != nil {
		return nil, nil, err
	}
	log.Trace("feed update stored", "topic", fd.Topic.Hex(), "index", index, "addr", ch.Address())
	h.updateCache(fd, &cacheEntry{index: index, payload: payload, addr: ch.Address()})
	return ch.Address(), index, nil
}

// ReadAt retrieves and authenticates the feed update at the given index.
// A store miss surfaces as ErrIndexNotFound; a chunk that fails
// authentication surfaces the soc error taxonomy unchanged.
func (h *Handler) ReadAt(ctx context.Context, fd Feed, index Index) ([]byte, error) {
	entry, err := h.readEntry(ctx, fd, index)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, NewErrorf(ErrIndexNotFound, "no update at index %s", index)
	}
	return entry.payload, nil
}

// ReadLatest resolves the highest existing update of the feed, returning its
// payload and index. A feed with no updates at all fails with ErrFeedNotFound.
func (h *Handler) ReadLatest(ctx context.Context, fd Feed) ([]byte, Index, error) {
	var entry *cacheEntry
	var err error
	switch fd.Type {
	case Sequence:
		entry, err = h.latestSequence(ctx, fd)
	case Epoch:
		entry, err = h.latestEpoch(ctx, fd)
	default:
		return nil, nil, NewErrorf(ErrUnsupportedFeedType, "unknown feed type %d", fd.Type)
	}
	if err != nil {
		return nil, nil, err
	}
	if entry == nil {
		return nil, nil, NewError(ErrFeedNotFound, "no updates found")
	}
	h.updateCache(fd, entry)
	return entry.payload, entry.index, nil
}

// readEntry fetches and authenticates one update. It returns (nil, nil) on a
// store miss. Chunks that decode but fail authentication are returned as
// errors here; resolution-level callers degrade them to misses.
func (h *Handler) readEntry(ctx context.Context, fd Feed, index Index) (*cacheEntry, error) {
	id, err := fd.Identifier(index)
	if err != nil {
		return nil, err
	}
	addr := soc.Address(id, fd.User)
	ch, err := h.chunkStore.Get(ctx, addr)
	if err != nil {
		if errors.Is(err, storage.ErrChunkNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s, err := soc.FromChunk(ch, &id)
	if err != nil {
		return nil, err
	}
	if s.Owner() != fd.User {
		// the store returned data that cannot live at this address
		return nil, storage.ErrChunkInvalid
	}
	return &cacheEntry{index: index, payload: s.Payload(), addr: addr}, nil
}

// probe is readEntry with authentication failures degraded to misses, for
// use during latest-update resolution and retrievability checks. An invalid
// chunk cannot be trusted as "the" update, but is logged so that corruption
// remains distinguishable from absence in diagnostics.
func (h *Handler) probe(ctx context.Context, fd Feed, index Index) (*cacheEntry, error) {
	entry, err := h.readEntry(ctx, fd, index)
	if err != nil {
		switch {
		case errors.Is(err, soc.ErrMalformed),
			errors.Is(err, soc.ErrSignatureMismatch),
			errors.Is(err, soc.ErrIdentifierMismatch),
			errors.Is(err, storage.ErrChunkInvalid):
			log.Debug("ignoring unauthenticated feed update", "topic", fd.Topic.Hex(), "index", index, "err", err)
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (h *Handler) getCache(fd Feed) *cacheEntry {
	if v, ok := h.cache.Get(fd.mapKey()); ok {
		return v.(*cacheEntry)
	}
	return nil
}

func (h *Handler) updateCache(fd Feed, entry *cacheEntry) {
	h.cache.Add(fd.mapKey(), entry)
}
