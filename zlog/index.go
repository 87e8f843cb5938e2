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
	"fmt"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

const (
	entryKeyPrefix = "____zlog.pos."
	indexKeyPrefix = "____zlog.idx."

	terminalFlags = proto.EntryFlagInvalidated | proto.EntryFlagTrimmed
)

var errCorruptEntry = &apierrors.Error{Code: apierrors.CodeIO, Msg: "corrupt log entry"}

// positionIndex keeps the state and payload of log positions within one
// object. Epoch checks happen before the index is consulted.
type positionIndex interface {
	write(obj store.Object, pos uint64, data []byte) error
	// read returns ErrNotWritten for holes and ErrInvalidated for filled,
	// trimmed or invalidated positions.
	read(obj store.Object, pos uint64) ([]byte, error)
	fill(obj store.Object, pos uint64) error
	trim(obj store.Object, pos uint64) error
	invalidate(obj store.Object, pos uint64, force bool) error
}

func newPositionIndex(cfg *Config) positionIndex {
	switch cfg.Strategy {
	case StrategyHybrid:
		return &hybridIndex{maxObjectSize: cfg.MaxObjectSize}
	case StrategyStriped:
		return &stripedIndex{}
	default:
		return &omapIndex{maxEntrySize: cfg.MaxEntrySize}
	}
}

// objectSize is the byte stream length, 0 for a missing object.
func objectSize(obj store.Object) (uint64, error) {
	st, err := obj.Stat()
	if errors.Is(err, apierrors.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return st.Size, nil
}

func positionKey(prefix string, pos uint64) string {
	return fmt.Sprintf("%s%020d", prefix, pos)
}

// getRecord loads the record stored under key. found is false when the
// position has never been touched.
func getRecord(obj store.Object, key string, m proto.Message) (found bool, err error) {
	raw, err := obj.MapGetVal(key)
	if errors.Is(err, apierrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err = m.Unmarshal(raw); err != nil {
		return false, errCorruptEntry
	}
	return true, nil
}

func putRecord(obj store.Object, key string, m proto.Message) error {
	raw, err := m.Marshal()
	if err != nil {
		return err
	}
	return obj.MapSetVal(key, raw)
}

// omapIndex embeds each entry with its payload in one omap value.
type omapIndex struct {
	maxEntrySize uint64
}

func (x *omapIndex) get(obj store.Object, pos uint64) (*proto.LogEntry, bool, error) {
	entry := &proto.LogEntry{}
	found, err := getRecord(obj, positionKey(entryKeyPrefix, pos), entry)
	return entry, found, err
}

func (x *omapIndex) put(obj store.Object, pos uint64, entry *proto.LogEntry) error {
	return putRecord(obj, positionKey(entryKeyPrefix, pos), entry)
}

func (x *omapIndex) write(obj store.Object, pos uint64, data []byte) error {
	if x.maxEntrySize > 0 && uint64(len(data)) > x.maxEntrySize {
		return apierrors.ErrTooLarge
	}
	_, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if found {
		return apierrors.ErrReadOnly
	}
	return x.put(obj, pos, &proto.LogEntry{Data: data})
}

func (x *omapIndex) read(obj store.Object, pos uint64) ([]byte, error) {
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
	return entry.Data, nil
}

func (x *omapIndex) fill(obj store.Object, pos uint64) error {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if !found {
		return x.put(obj, pos, &proto.LogEntry{Flags: terminalFlags})
	}
	if entry.Flags&terminalFlags != 0 {
		return nil
	}
	return apierrors.ErrReadOnly
}

func (x *omapIndex) trim(obj store.Object, pos uint64) error {
	entry, found, err := x.get(obj, pos)
	if err != nil {
		return err
	}
	if found && entry.Flags&proto.EntryFlagTrimmed != 0 {
		return nil
	}
	return x.put(obj, pos, &proto.LogEntry{Flags: entry.Flags | proto.EntryFlagTrimmed})
}

func (x *omapIndex) invalidate(obj store.Object, pos uint64, force bool) error {
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
	return x.put(obj, pos, &proto.LogEntry{Flags: entry.Flags | proto.EntryFlagInvalidated})
}
