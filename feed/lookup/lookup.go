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

package lookup

import "context"

// ReadFunc fetches the update stored at the given epoch. A nil value with a
// nil error signals a miss; a non-nil error aborts the lookup. Chunks that
// fail authentication must be reported as misses by the caller's ReadFunc.
type ReadFunc func(ctx context.Context, epoch Epoch) (interface{}, error)

// Latest finds the most recent update of an epoch-indexed feed as of time
// now. It starts at the coarsest window containing now (walking back over
// earlier level-0 windows if that one is empty), then repeatedly descends
// into the deepest child window consistent with the current time cursor,
// preferring the later half and falling back to the earlier one. The value
// and epoch of the deepest resolvable update are returned; a nil value means
// the feed has no updates at all.
func Latest(ctx context.Context, now uint64, read ReadFunc) (interface{}, Epoch, error) {
	cursor := now
	epoch := GetFirstEpoch(now)

	// locate the most recent non-empty level-0 window
	value, err := read(ctx, epoch)
	if err != nil {
		return nil, Epoch{}, err
	}
	for value == nil {
		if epoch.Time == 0 {
			return nil, Epoch{}, nil
		}
		epoch.Time -= Span(0)
		cursor = epoch.Time + Span(0) - 1
		value, err = read(ctx, epoch)
		if err != nil {
			return nil, Epoch{}, err
		}
	}

	// descend as deep as the chain of stored updates allows
	for epoch.Level < MaxLevel {
		child := Epoch{Level: epoch.Level + 1, Time: Base(epoch.Level+1, cursor)}
		v, err := read(ctx, child)
		if err != nil {
			return nil, Epoch{}, err
		}
		if v == nil && child.Time > epoch.Time {
			// the cursor sits in the later half; the update may be in the earlier one
			child.Time = epoch.Time
			v, err = read(ctx, child)
			if err != nil {
				return nil, Epoch{}, err
			}
			if v != nil {
				cursor = child.Time + Span(child.Level) - 1
			}
		}
		if v == nil {
			break
		}
		value, epoch = v, child
	}
	return value, epoch, nil
}
