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

// Package lookup defines epoch-based feed indices and the algorithm to find
// the latest update among them.
//
// The time axis is subdivided into a binary grid of epochs. Level 0 covers
// the whole axis in windows of 2^25 seconds (about one year); each deeper
// level halves the window, down to MaxLevel with one-second windows. An
// epoch is identified by its level and the base (start) time of its window.
// Successive updates of a feed occupy epochs that are strictly increasing
// in (base, level) order, so the latest update can be found by descending
// the grid from the coarsest window containing the present time.
package lookup

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

const (
	// MaxLevel is the finest subdivision level, with windows of one second
	MaxLevel uint8 = 25

	// EpochLength is the serialized size of an epoch index:
	// level byte followed by the 8-byte big-endian window base time.
	EpochLength = 9
)

// Epoch identifies one window of the time grid
type Epoch struct {
	// Time is the base (start) time of the window, in Unix seconds
	Time uint64 `json:"time"`
	// Level is the subdivision depth; 0 is coarsest, MaxLevel finest
	Level uint8 `json:"level"`
}

// Span returns the length in seconds of a window at the given level
func Span(level uint8) uint64 {
	return 1 << (MaxLevel - level)
}

// Base returns the start time of the level-sized window containing t
func Base(level uint8, t uint64) uint64 {
	return t &^ (Span(level) - 1)
}

// MarshalBinary serializes the epoch as level ‖ base. The base bytes of an
// epoch's ancestors are prefixes of its own base under window masking, which
// is what makes the ancestor chain recoverable from the index alone.
func (e Epoch) MarshalBinary() ([]byte, error) {
	b := make([]byte, EpochLength)
	b[0] = e.Level
	binary.BigEndian.PutUint64(b[1:], e.Time)
	return b, nil
}

// UnmarshalBinary restores an epoch from its serialized form
func (e *Epoch) UnmarshalBinary(data []byte) error {
	if len(data) != EpochLength {
		return fmt.Errorf("invalid epoch length %d, expected %d", len(data), EpochLength)
	}
	e.Level = data[0]
	e.Time = binary.BigEndian.Uint64(data[1:])
	if e.Level > MaxLevel {
		return fmt.Errorf("invalid epoch level %d", e.Level)
	}
	return nil
}

func (e Epoch) String() string {
	return fmt.Sprintf("(level %d, base %d)", e.Level, e.Time)
}

// Equals tests two epochs for equality
func (e Epoch) Equals(other Epoch) bool {
	return e.Level == other.Level && e.Time == other.Time
}

// After reports whether e is a strictly later update slot than other.
// A later window base wins; within the same window, the deeper level wins.
func (e Epoch) After(other Epoch) bool {
	if e.Time == other.Time {
		return e.Level > other.Level
	}
	return e.Time > other.Time
}

// Contains reports whether t falls within e's window
func (e Epoch) Contains(t uint64) bool {
	return Base(e.Level, t) == e.Time
}

// Ancestors returns the chain of coarser-level epochs whose windows contain
// e's window, ordered from level 0 down to e.Level-1. This is the resolution
// path a reader with no prior knowledge must walk to arrive at e.
func (e Epoch) Ancestors() []Epoch {
	chain := make([]Epoch, 0, e.Level)
	for l := uint8(0); l < e.Level; l++ {
		chain = append(chain, Epoch{Level: l, Time: Base(l, e.Time)})
	}
	return chain
}

// GetFirstEpoch returns the epoch of a feed's very first update written at
// time now: the coarsest window containing it.
func GetFirstEpoch(now uint64) Epoch {
	return Epoch{Level: 0, Time: Base(0, now)}
}

// GetNextEpoch returns the epoch for an update written at time now when the
// previous update occupies last. While now remains inside last's window the
// grid is descended one level; once now crosses into a later window the
// coarsest level at which the windows differ is selected.
func GetNextEpoch(last Epoch, now uint64) Epoch {
	if now < last.Time {
		// a clock running backwards must not break monotonicity
		now = last.Time
	}
	mix := last.Time ^ now
	hi := bits.Len64(mix) - 1 // highest differing bit, -1 if none
	if mix == 0 || hi < int(MaxLevel-last.Level) {
		level := last.Level
		if level < MaxLevel {
			level++
		}
		return Epoch{Level: level, Time: Base(level, now)}
	}
	var level uint8
	if hi < int(MaxLevel) {
		level = MaxLevel - uint8(hi)
	}
	return Epoch{Level: level, Time: Base(level, now)}
}
