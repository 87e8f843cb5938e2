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
	"encoding/binary"
	"errors"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/store"
)

const (
	epochKey   = "____zlog.epoch"
	epochXattr = "zlog.epoch"
)

var errCorruptEpoch = &apierrors.Error{Code: apierrors.CodeIO, Msg: "corrupt epoch value"}

type epochGuard struct {
	location EpochLocation
}

// load returns the sealed epoch. ok is false when none was ever sealed,
// which includes a missing object.
func (g epochGuard) load(obj store.Object) (epoch uint64, ok bool, err error) {
	var raw []byte
	switch g.location {
	case EpochInXattr:
		raw, err = obj.GetXattr(epochXattr)
	case EpochInOmapHeader:
		raw, err = obj.MapReadHeader()
	default:
		raw, err = obj.MapGetVal(epochKey)
	}
	if errors.Is(err, apierrors.ErrNotFound) || (err == nil && len(raw) == 0) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	epoch, err = decodeUint64(raw, errCorruptEpoch)
	if err != nil {
		return 0, false, err
	}
	return epoch, true, nil
}

func (g epochGuard) store(obj store.Object, epoch uint64) error {
	raw := encodeUint64(epoch)
	switch g.location {
	case EpochInXattr:
		return obj.SetXattr(epochXattr, raw)
	case EpochInOmapHeader:
		return obj.MapWriteHeader(raw)
	default:
		return obj.MapSetVal(epochKey, raw)
	}
}

func (g epochGuard) seal(obj store.Object, epoch uint64) error {
	cur, ok, err := g.load(obj)
	if err != nil {
		return err
	}
	if ok && epoch <= cur {
		return apierrors.ErrInvalidEpoch
	}
	return g.store(obj, epoch)
}

// check fails with ErrStaleEpoch unless epoch is newer than the sealed one.
// An object that was never sealed accepts every epoch.
func (g epochGuard) check(obj store.Object, epoch uint64) error {
	cur, ok, err := g.load(obj)
	if err != nil {
		return err
	}
	if ok && epoch <= cur {
		return apierrors.ErrStaleEpoch
	}
	return nil
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func decodeUint64(b []byte, corrupt error) (uint64, error) {
	if len(b) != 8 {
		return 0, corrupt
	}
	return binary.BigEndian.Uint64(b), nil
}

// getUint64Val reads an omap counter. ok is false when the key is absent.
func getUint64Val(obj store.Object, key string) (v uint64, ok bool, err error) {
	raw, err := obj.MapGetVal(key)
	if errors.Is(err, apierrors.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err = decodeUint64(raw, &apierrors.Error{Code: apierrors.CodeIO, Msg: "corrupt value of " + key})
	return v, err == nil, err
}
