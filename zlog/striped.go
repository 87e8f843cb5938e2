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

package zlog

import (
	"errors"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/layout"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
	"github.com/cubefs/zlog/util"
)

const metaXattr = "zlog.meta"

// stripedIndex finds each position at a fixed offset computed from the
// stripe layout registered by init.
type stripedIndex struct{}

type stripedMeta struct {
	params   layout.Params
	objectID uint64
}

func paramsFromProto(p *proto.StripeParams) layout.Params {
	if p == nil {
		return layout.Params{}
	}
	return layout.Params{
		EntrySize:        p.EntrySize,
		StripeWidth:      p.StripeWidth,
		EntriesPerObject: p.EntriesPerObject,
	}
}

func (x *stripedIndex) init(obj store.Object, op *proto.InitOp) error {
	params := paramsFromProto(op.Params)
	if err := params.Validate(); err != nil {
		return err
	}

	_, err := obj.Stat()
	if errors.Is(err, apierrors.ErrNotFound) {
		if err = obj.Create(true); err != nil {
			return err
		}
		raw, err := (&proto.ObjectMeta{Params: op.Params, ObjectID: op.ObjectID}).Marshal()
		if err != nil {
			return err
		}
		return obj.SetXattr(metaXattr, raw)
	}
	if err != nil {
		return err
	}

	meta, err := x.loadMeta(obj)
	if err != nil {
		return err
	}
	if meta.params != params || meta.objectID != op.ObjectID {
		return &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "object initialized with another layout"}
	}
	return nil
}

// loadMeta fails with ErrNotFound when the object does not exist and with
// an IO error when it exists without a usable layout.
func (x *stripedIndex) loadMeta(obj store.Object) (stripedMeta, error) {
	if _, err := obj.Stat(); err != nil {
		return stripedMeta{}, err
	}
	raw, err := obj.GetXattr(metaXattr)
	if errors.Is(err, apierrors.ErrNotFound) {
		return stripedMeta{}, apierrors.ErrMissingMeta
	}
	if err != nil {
		return stripedMeta{}, err
	}
	var m proto.ObjectMeta
	if err = m.Unmarshal(raw); err != nil {
		return stripedMeta{}, apierrors.ErrCorruptMeta
	}
	meta := stripedMeta{params: paramsFromProto(m.Params), objectID: m.ObjectID}
	if meta.params.Validate() != nil {
		return stripedMeta{}, apierrors.ErrCorruptMeta
	}
	return meta, nil
}

func (x *stripedIndex) locate(obj store.Object, pos uint64) (stripedMeta, layout.Location, error) {
	meta, err := x.loadMeta(obj)
	if err != nil {
		return meta, layout.Location{}, err
	}
	loc := meta.params.Locate(pos)
	if loc.ObjectNo != meta.objectID {
		return meta, loc, apierrors.ErrWrongTarget
	}
	return meta, loc, nil
}

// readSlot returns the status byte and the payload region of a slot. A slot
// past the end of the object reads as unused.
func (x *stripedIndex) readSlot(obj store.Object, meta stripedMeta, loc layout.Location) (byte, []byte, error) {
	raw, err := obj.Read(loc.Offset, loc.SlotSize)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) == 0 {
		return layout.SlotUnused, nil, nil
	}
	payload := make([]byte, meta.params.EntrySize)
	copy(payload, raw[1:])
	return raw[0], payload, nil
}

func (x *stripedIndex) writeSlot(obj store.Object, loc layout.Location, status byte, data []byte) error {
	buf := util.GetZeroBuffer(int(loc.SlotSize))
	defer util.PutBuffer(buf)
	buf[0] = status
	copy(buf[1:], data)
	return obj.Write(loc.Offset, buf)
}

func (x *stripedIndex) write(obj store.Object, pos uint64, data []byte) error {
	meta, loc, err := x.locate(obj, pos)
	if err != nil {
		return err
	}
	if uint64(len(data)) > uint64(meta.params.EntrySize) {
		return apierrors.ErrTooLarge
	}
	status, _, err := x.readSlot(obj, meta, loc)
	if err != nil {
		return err
	}
	if status != layout.SlotUnused {
		return apierrors.ErrReadOnly
	}
	return x.writeSlot(obj, loc, layout.SlotTaken, data)
}

func (x *stripedIndex) read(obj store.Object, pos uint64) ([]byte, error) {
	meta, loc, err := x.locate(obj, pos)
	if err != nil {
		return nil, err
	}
	status, payload, err := x.readSlot(obj, meta, loc)
	if err != nil {
		return nil, err
	}
	switch status {
	case layout.SlotTaken:
		return payload, nil
	case layout.SlotInvalid:
		return nil, apierrors.ErrInvalidated
	case layout.SlotUnused:
		return nil, apierrors.ErrNotWritten
	}
	return nil, &apierrors.Error{Code: apierrors.CodeIO, Msg: "unknown slot status"}
}

func (x *stripedIndex) fill(obj store.Object, pos uint64) error {
	return x.invalidate(obj, pos, false)
}

// trim retires the slot and zeroes its payload.
func (x *stripedIndex) trim(obj store.Object, pos uint64) error {
	_, loc, err := x.locate(obj, pos)
	if err != nil {
		return err
	}
	return x.writeSlot(obj, loc, layout.SlotInvalid, nil)
}

// invalidate only rewrites the status byte. The payload of a forcibly
// invalidated entry stays in place but is never returned again.
func (x *stripedIndex) invalidate(obj store.Object, pos uint64, force bool) error {
	meta, loc, err := x.locate(obj, pos)
	if err != nil {
		return err
	}
	status, _, err := x.readSlot(obj, meta, loc)
	if err != nil {
		return err
	}
	switch status {
	case layout.SlotInvalid:
		return nil
	case layout.SlotTaken:
		if !force {
			return apierrors.ErrReadOnly
		}
	}
	return obj.Write(loc.Offset, []byte{layout.SlotInvalid})
}
