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

// Package manifest encodes feed manifests: small content-addressed
// descriptor chunks that let a feed be dereferenced through the same generic
// path lookup used for plain content. A resolver that lands on a feed
// manifest can transparently continue into the feed's latest update without
// the caller knowing a feed is involved.
package manifest

import (
	"context"
	"encoding/json"

	"github.com/swarmforge/feedcore/feed"
	"github.com/swarmforge/feedcore/storage"
)

// ContentType identifies feed manifests among generic manifest entries
const ContentType = "application/feed+json"

// Version is the feed manifest protocol version
const Version = 1

// FeedManifest describes a feed so that it can be dereferenced by address
type FeedManifest struct {
	Feed            feed.Feed `json:"feed"`
	ContentType     string    `json:"contentType"`
	ProtocolVersion uint8     `json:"protocolVersion"`
}

// NewFeedManifest builds the manifest chunk for fd, stores it and returns
// its address. The chunk is content-addressed, so the address is a pure
// function of the feed descriptor and identical manifests land on the same
// address.
func NewFeedManifest(ctx context.Context, store storage.ChunkStore, fd feed.Feed) (storage.Address, error) {
	m := &FeedManifest{
		Feed:            fd,
		ContentType:     ContentType,
		ProtocolVersion: Version,
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	ch := storage.NewContentChunk(data)
	if err := store.Put(ctx, ch); err != nil {
		return nil, err
	}
	return ch.Address(), nil
}

// FromChunk parses a feed manifest back from its chunk
func FromChunk(ch storage.Chunk) (*FeedManifest, error) {
	m := &FeedManifest{}
	if err := json.Unmarshal(ch.Data(), m); err != nil {
		return nil, err
	}
	if m.ContentType != ContentType {
		return nil, feed.NewErrorf(feed.ErrInvalidValue, "not a feed manifest: content type %q", m.ContentType)
	}
	return m, nil
}

// Resolve fetches the manifest at addr and returns the feed it describes
func Resolve(ctx context.Context, store storage.ChunkStore, addr storage.Address) (*feed.Feed, error) {
	ch, err := store.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	m, err := FromChunk(ch)
	if err != nil {
		return nil, err
	}
	return &m.Feed, nil
}
