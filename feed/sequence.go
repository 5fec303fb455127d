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

package feed

import (
	"context"
	"math"

	"github.com/ethereum/go-ethereum/log"

	"github.com/swarmforge/feedcore/feed/lookup"
)

// latestSequence resolves the highest existing index of a sequence feed in
// O(log N) fetches: exponential probing (offsets 1, 2, 4, 8, …) from the
// last known-good index until a miss, then binary search inside the bracket
// to pinpoint the boundary. Returns nil when not even index 0 exists.
func (h *Handler) latestSequence(ctx context.Context, fd Feed) (*cacheEntry, error) {
	var lo uint64
	best, err := h.probe(ctx, fd, SequenceIndex(0))
	if err != nil {
		return nil, err
	}
	if best == nil {
		return nil, nil
	}

	// updates are immutable, so a cached index is a trustworthy lower bound
	if cached := h.getCache(fd); cached != nil {
		if s, ok := cached.index.(SequenceIndex); ok {
			lo = uint64(s)
			best = cached
		}
	}

	// gallop to the first missing index
	var probes int
	var hi uint64 // first known miss; 0 means not yet found
	for off := uint64(1); ; off *= 2 {
		next := lo + off
		if next < lo { // overflow
			next = math.MaxUint64
		}
		probes++
		entry, err := h.probe(ctx, fd, SequenceIndex(next))
		if err != nil {
			return nil, err
		}
		if entry == nil {
			hi = next
			break
		}
		lo = next
		best = entry
		if next == math.MaxUint64 {
			return best, nil
		}
	}

	// binary search the boundary: probe(lo) hit, probe(hi) miss
	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		probes++
		entry, err := h.probe(ctx, fd, SequenceIndex(mid))
		if err != nil {
			return nil, err
		}
		if entry == nil {
			hi = mid
		} else {
			lo = mid
			best = entry
		}
	}
	log.Trace("sequence feed lookup finished", "topic", fd.Topic.Hex(), "latest", lo, "probes", probes)
	return best, nil
}

// latestEpoch resolves the latest update of an epoch feed by descending the
// time grid from the coarsest window containing the present.
func (h *Handler) latestEpoch(ctx context.Context, fd Feed) (*cacheEntry, error) {
	now := TimestampProvider.Now().Time
	value, _, err := lookup.Latest(ctx, now, func(ctx context.Context, epoch lookup.Epoch) (interface{}, error) {
		entry, err := h.probe(ctx, fd, epoch)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil // interface nil, not a typed nil pointer
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}
	return value.(*cacheEntry), nil
}
