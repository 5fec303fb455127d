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
	"encoding"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/swarmforge/feedcore/feed/lookup"
)

// Index locates one update within a feed. It is a tagged variant: sequence
// feeds use SequenceIndex, epoch feeds use lookup.Epoch. An index is
// immutable once assigned to an update.
type Index interface {
	encoding.BinaryMarshaler
	fmt.Stringer
}

// SequenceIndex is the index of a sequence feed: a 64-bit update counter
// starting at zero.
type SequenceIndex uint64

// MarshalBinary encodes the counter as 8 big-endian bytes
func (i SequenceIndex) MarshalBinary() ([]byte, error) {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(i))
	return b, nil
}

func (i SequenceIndex) String() string {
	return fmt.Sprintf("%d", uint64(i))
}

// EncodeIndex canonicalizes an index into the fixed byte representation used
// for identifier derivation, validating that the index variant matches the
// feed type.
func EncodeIndex(t Type, index Index) ([]byte, error) {
	switch t {
	case Sequence:
		if _, ok := index.(SequenceIndex); !ok {
			return nil, NewErrorf(ErrInvalidValue, "index %s is not a sequence index", index)
		}
	case Epoch:
		if _, ok := index.(lookup.Epoch); !ok {
			return nil, NewErrorf(ErrInvalidValue, "index %s is not an epoch index", index)
		}
	default:
		return nil, NewErrorf(ErrUnsupportedFeedType, "unknown feed type %d", t)
	}
	return index.MarshalBinary()
}

// NextIndex computes the index a new update must be written at, given the
// index of the previous update, or nil for a feed's first update. For
// sequence feeds the counter increments by one and fails with
// ErrIndexOverflow when exhausted. For epoch feeds the next epoch is the
// deepest grid slot strictly after prior whose window contains now.
func NextIndex(t Type, prior Index, now uint64) (Index, error) {
	switch t {
	case Sequence:
		if prior == nil {
			return SequenceIndex(0), nil
		}
		s, ok := prior.(SequenceIndex)
		if !ok {
			return nil, NewErrorf(ErrInvalidValue, "index %s is not a sequence index", prior)
		}
		if uint64(s) == math.MaxUint64 {
			return nil, NewError(ErrIndexOverflow, "sequence feed exhausted its index space")
		}
		return s + 1, nil
	case Epoch:
		if prior == nil {
			return lookup.GetFirstEpoch(now), nil
		}
		e, ok := prior.(lookup.Epoch)
		if !ok {
			return nil, NewErrorf(ErrInvalidValue, "index %s is not an epoch index", prior)
		}
		return lookup.GetNextEpoch(e, now), nil
	default:
		return nil, NewErrorf(ErrUnsupportedFeedType, "unknown feed type %d", t)
	}
}
