// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package layout

import (
	"testing"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/stretchr/testify/require"
)

func TestParams_Validate(t *testing.T) {
	require.NoError(t, Params{EntrySize: 1, StripeWidth: 1, EntriesPerObject: 1}.Validate())
	require.NoError(t, Params{EntrySize: MaxEntrySize, StripeWidth: 1, EntriesPerObject: 1}.Validate())
	for _, p := range []Params{
		{EntrySize: MaxEntrySize + 1, StripeWidth: 1, EntriesPerObject: 1},
		{EntrySize: ^uint32(0), StripeWidth: 1, EntriesPerObject: 1},
		{EntrySize: 0, StripeWidth: 1, EntriesPerObject: 1},
		{EntrySize: 1, StripeWidth: 0, EntriesPerObject: 1},
		{EntrySize: 1, StripeWidth: 1, EntriesPerObject: 0},
	} {
		require.Equal(t, apierrors.ErrInvalidArgument, p.Validate(), p.String())
	}
}

func TestParams_Locate(t *testing.T) {
	p := Params{EntrySize: 1024, StripeWidth: 1, EntriesPerObject: 10}
	loc := p.Locate(3)
	require.Equal(t, Location{ObjectNo: 0, Slot: 3, Offset: 3 * 1025, SlotSize: 1025}, loc)
	loc = p.Locate(10)
	require.Equal(t, uint64(1), loc.ObjectNo)
	require.Equal(t, uint64(0), loc.Offset)

	p = Params{EntrySize: 2, StripeWidth: 3, EntriesPerObject: 2}
	// stripe 0: 0,1,2 -> objects 0,1,2 slot 0; stripe 1: 3,4,5 -> slot 1
	// stripe 2 starts the next object set at object 3
	expect := []Location{
		{0, 0, 0, 3}, {1, 0, 0, 3}, {2, 0, 0, 3},
		{0, 1, 3, 3}, {1, 1, 3, 3}, {2, 1, 3, 3},
		{3, 0, 0, 3}, {4, 0, 0, 3}, {5, 0, 0, 3},
	}
	for pos, want := range expect {
		require.Equal(t, want, p.Locate(uint64(pos)), "pos %d", pos)
	}
	require.Equal(t, uint64(6), p.ObjectSize())
}

func TestParams_LocateSweep(t *testing.T) {
	for _, es := range []uint32{1, 2, 1023, 1024} {
		for sw := uint32(1); sw < 10; sw++ {
			for eo := uint32(1); eo < 10; eo++ {
				p := Params{EntrySize: es, StripeWidth: sw, EntriesPerObject: eo}
				seen := make(map[[2]uint64]uint64)
				maxpos := uint64(sw) * uint64(eo) * 3
				for pos := uint64(0); pos < maxpos; pos++ {
					loc := p.Locate(pos)
					require.True(t, loc.Slot < uint64(eo))
					require.Equal(t, loc.Slot*p.SlotSize(), loc.Offset)
					require.True(t, loc.Offset+loc.SlotSize <= p.ObjectSize())

					// every (object, slot) holds exactly one position
					key := [2]uint64{loc.ObjectNo, loc.Slot}
					prev, dup := seen[key]
					require.False(t, dup, "pos %d collides with %d", pos, prev)
					seen[key] = pos

					// one object set later lands on another object
					next := p.Locate(pos + uint64(sw)*uint64(eo))
					require.NotEqual(t, loc.ObjectNo, next.ObjectNo)
					require.Equal(t, loc.Slot, next.Slot)

					require.Contains(t, p.Positions(loc.ObjectNo), pos)
				}
			}
		}
	}
}

func TestParams_Positions(t *testing.T) {
	p := Params{EntrySize: 8, StripeWidth: 3, EntriesPerObject: 2}
	require.Equal(t, []uint64{0, 3}, p.Positions(0))
	require.Equal(t, []uint64{2, 5}, p.Positions(2))
	require.Equal(t, []uint64{7, 10}, p.Positions(4))
}
