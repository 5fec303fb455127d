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

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/swarmforge/feedcore/feed/lookup"
)

// verifyFanout bounds the number of concurrent fetches during a chain check
const verifyFanout = 8

// ChainStatus is the outcome of a retrievability chain check
type ChainStatus struct {
	// Retrievable is true when the whole resolution chain resolves and
	// authenticates
	Retrievable bool
	// MissingIndex is the lowest index in the chain that failed to resolve;
	// nil when Retrievable is true
	MissingIndex Index
}

// IsRetrievable reports whether the feed is genuinely reconstructible by any
// network participant. With a nil target it reports whether a latest update
// resolves at all. With a target index it performs a chain check: a single
// fetchable chunk is a weak guarantee (it may have been directly pinned), so
// every chunk on the target's resolution path must independently resolve and
// authenticate.
func (h *Handler) IsRetrievable(ctx context.Context, fd Feed, target Index) (bool, error) {
	if target == nil {
		_, _, err := h.ReadLatest(ctx, fd)
		if err != nil {
			if Code(err) == ErrFeedNotFound {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	status, err := h.CheckChain(ctx, fd, target)
	if err != nil {
		return false, err
	}
	return status.Retrievable, nil
}

// CheckChain verifies the full resolution chain of the update at target.
// For sequence feeds the chain is every index from 0 through target; for
// epoch feeds it is the ancestor windows of the target epoch, which are
// sparse by design. The reported failure is always the lowest missing index,
// regardless of the completion order of concurrent fetches, and probing
// stops at the first gap.
func (h *Handler) CheckChain(ctx context.Context, fd Feed, target Index) (ChainStatus, error) {
	switch fd.Type {
	case Sequence:
		s, ok := target.(SequenceIndex)
		if !ok {
			return ChainStatus{}, NewErrorf(ErrInvalidValue, "index %s is not a sequence index", target)
		}
		return h.checkSequenceChain(ctx, fd, uint64(s))
	case Epoch:
		e, ok := target.(lookup.Epoch)
		if !ok {
			return ChainStatus{}, NewErrorf(ErrInvalidValue, "index %s is not an epoch index", target)
		}
		return h.checkEpochChain(ctx, fd, e)
	default:
		return ChainStatus{}, NewErrorf(ErrUnsupportedFeedType, "unknown feed type %d", fd.Type)
	}
}

// checkSequenceChain probes indices 0..target in windows of verifyFanout
// concurrent fetches. Results are reconciled in index order before the next
// window is issued, so the first gap found is deterministic and no probes
// are spent beyond it.
func (h *Handler) checkSequenceChain(ctx context.Context, fd Feed, target uint64) (ChainStatus, error) {
	for start := uint64(0); ; start += verifyFanout {
		end := target
		if target-start >= verifyFanout {
			end = start + verifyFanout - 1
		}
		found := make([]bool, end-start+1)
		g, gctx := errgroup.WithContext(ctx)
		for i := start; i <= end; i++ {
			i := i
			g.Go(func() error {
				entry, err := h.probe(gctx, fd, SequenceIndex(i))
				if err != nil {
					return err
				}
				found[i-start] = entry != nil
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return ChainStatus{}, err
		}
		for i := start; i <= end; i++ {
			if !found[i-start] {
				log.Debug("feed chain broken", "topic", fd.Topic.Hex(), "index", i, "target", target)
				return ChainStatus{MissingIndex: SequenceIndex(i)}, nil
			}
		}
		if end == target {
			return ChainStatus{Retrievable: true}, nil
		}
	}
}

// checkEpochChain walks the coarser-level ancestor windows of the target
// epoch and then the target itself, failing fast on the coarsest gap.
func (h *Handler) checkEpochChain(ctx context.Context, fd Feed, target lookup.Epoch) (ChainStatus, error) {
	chain := append(target.Ancestors(), target)
	for _, epoch := range chain {
		entry, err := h.probe(ctx, fd, epoch)
		if err != nil {
			return ChainStatus{}, err
		}
		if entry == nil {
			log.Debug("feed chain broken", "topic", fd.Topic.Hex(), "epoch", epoch, "target", target)
			return ChainStatus{MissingIndex: epoch}, nil
		}
	}
	return ChainStatus{Retrievable: true}, nil
}
