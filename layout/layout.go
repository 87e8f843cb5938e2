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

// Package layout maps log positions onto a set of fixed stride objects.
//
// Positions are dealt round robin over stripeWidth objects. Each object holds
// entriesPerObject slots, after which the next object set starts. A slot is
// one status byte followed by entrySize payload bytes.
package layout

import (
	"fmt"

	apierrors "github.com/cubefs/zlog/errors"
)

// Slot status byte values.
const (
	SlotUnused  byte = 0
	SlotTaken   byte = 1
	SlotInvalid byte = 2
)

// MaxEntrySize bounds entry_size so one slot never needs more than a default
// sized object.
const MaxEntrySize = 4 << 20

type Params struct {
	EntrySize        uint32 `json:"entry_size"`
	StripeWidth      uint32 `json:"stripe_width"`
	EntriesPerObject uint32 `json:"entries_per_object"`
}

// Location is where a position lives.
type Location struct {
	ObjectNo uint64
	Slot     uint64
	Offset   uint64
	SlotSize uint64
}

func (p Params) Validate() error {
	if p.EntrySize == 0 || p.StripeWidth == 0 || p.EntriesPerObject == 0 {
		return apierrors.ErrInvalidArgument
	}
	if p.EntrySize > MaxEntrySize {
		return apierrors.ErrInvalidArgument
	}
	return nil
}

func (p Params) SlotSize() uint64 {
	return 1 + uint64(p.EntrySize)
}

// ObjectSize is the byte size of a fully written object.
func (p Params) ObjectSize() uint64 {
	return p.SlotSize() * uint64(p.EntriesPerObject)
}

func (p Params) String() string {
	return fmt.Sprintf("entry_size=%d stripe_width=%d entries_per_object=%d",
		p.EntrySize, p.StripeWidth, p.EntriesPerObject)
}

// Locate maps pos to its object and byte offset. Params must be valid.
func (p Params) Locate(pos uint64) Location {
	sw := uint64(p.StripeWidth)
	eo := uint64(p.EntriesPerObject)

	stripeNum := pos / sw
	slot := stripeNum % eo
	stripePos := pos % sw
	objectSetNo := stripeNum / eo
	slotSize := p.SlotSize()

	return Location{
		ObjectNo: objectSetNo*sw + stripePos,
		Slot:     slot,
		Offset:   slot * slotSize,
		SlotSize: slotSize,
	}
}

// Positions returns the positions stored in object objectNo in slot order.
func (p Params) Positions(objectNo uint64) []uint64 {
	sw := uint64(p.StripeWidth)
	eo := uint64(p.EntriesPerObject)
	objectSetNo := objectNo / sw
	stripePos := objectNo % sw

	ret := make([]uint64, 0, eo)
	for slot := uint64(0); slot < eo; slot++ {
		stripeNum := objectSetNo*eo + slot
		ret = append(ret, stripeNum*sw+stripePos)
	}
	return ret
}
