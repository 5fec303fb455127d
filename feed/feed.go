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

// Package feed builds mutable, single-owner data feeds on top of an
// immutable chunk store. A feed is the series of updates of one owner about
// one topic; each update is a single-owner chunk whose address is a pure
// function of (topic, index, owner), so readers can locate updates without
// any registry.
package feed

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/swarmforge/feedcore/soc"
	"github.com/swarmforge/feedcore/storage"
)

// Feed represents one owner's series of updates about one topic
type Feed struct {
	Topic Topic          `json:"topic"`
	User  common.Address `json:"user"`
	Type  Type           `json:"type"`
}

// New constructs a feed descriptor
func New(topic Topic, user common.Address, t Type) Feed {
	return Feed{Topic: topic, User: user, Type: t}
}

// Identifier derives the single-owner chunk identifier of the update at index
func (f *Feed) Identifier(index Index) (soc.Identifier, error) {
	indexBytes, err := EncodeIndex(f.Type, index)
	if err != nil {
		return soc.Identifier{}, err
	}
	return soc.NewIdentifier(f.Topic[:], indexBytes), nil
}

// UpdateAddr derives the chunk store address of the update at index.
// The derivation is deterministic and local: no I/O is involved.
func (f *Feed) UpdateAddr(index Index) (storage.Address, error) {
	id, err := f.Identifier(index)
	if err != nil {
		return nil, err
	}
	return soc.Address(id, f.User), nil
}

// mapKey calculates a unique id for this feed for the handler's cache map
func (f *Feed) mapKey() common.Hash {
	return common.BytesToHash(crypto.Keccak256(f.Topic[:], f.User[:], []byte{byte(f.Type)}))
}
