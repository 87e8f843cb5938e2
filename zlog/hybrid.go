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
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

// hybridIndex keeps {flags, offset, length} per position in omap. Payloads
// are appended to the byte stream and never rewritten, a trimmed entry only
// drops its reference.
type hybridIndex struct {
	maxObjectSize uint64
}

func (x *hybridIndex) get(obj store.Object, pos uint64) (*proto.IndexEntry, bool, error) {
	entry := &proto.IndexEntry{}
	found, err := getRecord(obj, positionKey(indexKeyPrefix, pos), entry)
	return entry, found, err
}

func (x *hybridIndex) put(obj store.Object, pos uint64, entry *proto.IndexEntry) error {
	return putRecord(obj, positionKey(indexKeyPrefix, pos), entry)
}

func (x *hybridIndex) write(obj store.Object, pos uint64, data []byte) error {
	_, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if found {
		return apierrors.ErrReadOnly
	}

	size, err := objectSize(obj)
	if err != nil {
		return err
	}
	if size+uint64(len(data)) > x.maxObjectSize {
		return apierrors.ErrTooLarge
	}

	if err = obj.Write(size, data); err != nil {
		return err
	}
	return x.put(obj, pos, &proto.IndexEntry{Offset: size, Length: uint64(len(data))})
}

func (x *hybridIndex) read(obj store.Object, pos uint64) ([]byte, error) {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apierrors.ErrNotWritten
	}
	if entry.Flags&terminalFlags != 0 {
		return nil, apierrors.ErrInvalidated
	}
	data, err := obj.Read(entry.Offset, entry.Length)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) != entry.Length {
		return nil, &apierrors.Error{Code: apierrors.CodeIO, Msg: "short read of indexed entry"}
	}
	return data, nil
}

func (x *hybridIndex) fill(obj store.Object, pos uint64) error {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if !found {
		return x.put(obj, pos, &proto.IndexEntry{Flags: terminalFlags})
	}
	if entry.Flags&terminalFlags != 0 {
		return nil
	}
	return apierrors.ErrReadOnly
}

func (x *hybridIndex) trim(obj store.Object, pos uint64) error {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if found && entry.Flags&proto.EntryFlagTrimmed != 0 {
		return nil
	}
	return x.put(obj, pos, &proto.IndexEntry{Flags: entry.Flags | proto.EntryFlagTrimmed})
}

func (x *hybridIndex) invalidate(obj store.Object, pos uint64, force bool) error {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if found {
		if entry.Flags&terminalFlags != 0 {
			return nil
		}
		if !force {
			return apierrors.ErrReadOnly
		}
	}
	return x.put(obj, pos, &proto.IndexEntry{Flags: entry.Flags | proto.EntryFlagInvalidated})
}
