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

// Type governs how a feed's indices are encoded and advanced
type Type uint8

const (
	// Sequence feeds index updates with a monotonically increasing counter
	Sequence Type = iota
	// Epoch feeds index updates with hierarchical time-subdivision coordinates
	Epoch
)

const typeCount = 2

var typeNames = [typeCount]string{"sequence", "epoch"}

func (t Type) String() string {
	if int(t) >= typeCount {
		return "unknown"
	}
	return typeNames[t]
}

// FromString parses a feed type name
func (t *Type) FromString(s string) error {
	for i := Type(0); i < typeCount; i++ {
		if typeNames[i] == s {
			*t = i
			return nil
		}
	}
	return NewErrorf(ErrUnsupportedFeedType, "unknown feed type %q", s)
}

// MarshalJSON implements the json.Marshaller interface
func (t Type) MarshalJSON() ([]byte, error) {
	if int(t) >= typeCount {
		return nil, NewErrorf(ErrUnsupportedFeedType, "unknown feed type %d", t)
	}
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaller interface
func (t *Type) UnmarshalJSON(data []byte) error {
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return NewError(ErrInvalidValue, "feed type is not a quoted string")
	}
	return t.FromString(string(data[1 : len(data)-1]))
}
