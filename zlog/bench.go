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
	"context"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/objclass"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

// benchInitEpoch is the epoch append_init seeds an object with.
const benchInitEpoch = 10

// BenchClass returns the zlog_bench class. Its methods append to the byte
// stream with and without an epoch check, to measure the cost of fencing.
func BenchClass() *objclass.Class {
	b := &bench{epoch: epochGuard{location: EpochInOmap}}
	return objclass.NewClass(proto.ClassZlogBench).
		Register("append", objclass.FlagRDWR, b.append).
		Register("append_init", objclass.FlagRDWR, b.appendInit).
		Register("append_check_epoch", objclass.FlagRDWR, b.appendCheckEpoch)
}

type bench struct {
	epoch epochGuard
}

func appendData(obj store.Object, data []byte) error {
	size, err := objectSize(obj)
	if err != nil {
		return err
	}
	return obj.Write(size, data)
}

func (b *bench) append(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.AppendOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	return nil, appendData(obj, op.Data)
}

func (b *bench) appendInit(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	_, ok, err := b.epoch.load(obj)
	if err != nil {
		return nil, err
	}
	if ok {
		trace.SpanFromContextSafe(ctx).Warnf("object %s received multiple append_init", obj.Name())
		return nil, &apierrors.Error{Code: apierrors.CodeIO, Msg: "epoch already initialized"}
	}
	return nil, b.epoch.store(obj, benchInitEpoch)
}

// appendCheckEpoch rejects epochs not newer than the stored one with
// ErrInvalidArgument, then appends.
func (b *bench) appendCheckEpoch(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.AppendOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	cur, ok, err := b.epoch.load(obj)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apierrors.Error{Code: apierrors.CodeNotFound, Msg: "epoch not initialized"}
	}
	if op.Epoch <= cur {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "old epoch proposed"}
	}
	return nil, appendData(obj, op.Data)
}
