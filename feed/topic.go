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
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// TopicLength establishes the max length of a topic string
const TopicLength = 32

// Topic identifies what a feed is about. Human-readable names are hashed
// down to the fixed width; raw 32-byte values are used verbatim.
type Topic [TopicLength]byte

// ErrInvalidTopicLength is returned by TopicFromBytes on inputs of the wrong size
var ErrInvalidTopicLength = NewErrorf(ErrInvalidValue, "topic is not exactly %d bytes long", TopicLength)

// NewTopic derives a topic from an arbitrary-length name. The derivation is
// deterministic: the same name always yields the same topic.
func NewTopic(name string) Topic {
	var topic Topic
	copy(topic[:], crypto.Keccak256([]byte(name)))
	return topic
}

// TopicFromBytes uses a raw 32-byte value as a topic verbatim
func TopicFromBytes(b []byte) (Topic, error) {
	var topic Topic
	if len(b) != TopicLength {
		return topic, ErrInvalidTopicLength
	}
	copy(topic[:], b)
	return topic, nil
}

// Hex serializes the topic to a hex string
func (t *Topic) Hex() string {
	return hexutil.Encode(t[:])
}

// FromHex loads a hex representation into the topic
func (t *Topic) FromHex(hex string) error {
	bytes, err := hexutil.Decode(hex)
	if err != nil || len(bytes) != TopicLength {
		return NewErrorf(ErrInvalidValue, "invalid topic %s", hex)
	}
	copy(t[:], bytes)
	return nil
}

// MarshalJSON implements the json.Marshaller interface
func (t Topic) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Hex() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (t *Topic) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return NewError(ErrInvalidValue, "topic is not a quoted hex string")
	}
	return t.FromHex(string(data[1 : len(data)-1]))
}
