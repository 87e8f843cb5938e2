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
	"errors"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/objclass"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

const maxPositionKey = "____zlog.max_position"

// Log serves the methods of the zlog object class.
type Log struct {
	cfg   Config
	epoch epochGuard
	index positionIndex
}

func New(cfg Config) (*Log, error) {
	if err := cfg.checkAndFix(); err != nil {
		return nil, err
	}
	return &Log{
		cfg:   cfg,
		epoch: epochGuard{location: cfg.EpochLocation},
		index: newPositionIndex(&cfg),
	}, nil
}

func (l *Log) Config() Config {
	return l.cfg
}

func (l *Log) Class() *objclass.Class {
	// an indexed read runs as a write method so a pristine object reads as
	// holes, a striped object has to be initialized first
	readFlags := objclass.FlagRDWR
	if l.cfg.Strategy == StrategyStriped {
		readFlags = objclass.FlagRD
	}
	return objclass.NewClass(proto.ClassZlog).
		Register("seal", objclass.FlagRDWR, l.seal).
		Register("write", objclass.FlagRDWR, l.write).
		Register("read", readFlags, l.read).
		Register("fill", objclass.FlagRDWR, l.fill).
		Register("trim", objclass.FlagRDWR, l.trim).
		Register("invalidate", objclass.FlagRDWR, l.invalidate).
		Register("max_position", objclass.FlagRD, l.maxPosition).
		Register("set_projection", objclass.FlagRDWR, l.setProjection).
		Register("get_projection", objclass.FlagRD, l.getProjection).
		Register("init", objclass.FlagRDWR, l.init)
}

func (l *Log) seal(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.SealOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	if err := l.epoch.seal(obj, op.Epoch); err != nil {
		return nil, err
	}
	trace.SpanFromContextSafe(ctx).Infof("object %s sealed at epoch %d", obj.Name(), op.Epoch)
	return nil, nil
}

func (l *Log) write(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.WriteOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	if err := l.epoch.check(obj, op.Epoch); err != nil {
		return nil, err
	}
	if err := l.index.write(obj, op.Position, op.Data); err != nil {
		return nil, err
	}
	return nil, l.advanceMaxPosition(obj, op.Position)
}

func (l *Log) read(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.ReadOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	// slots of a striped log are read without fencing
	if l.cfg.Strategy != StrategyStriped {
		if err := l.epoch.check(obj, op.Epoch); err != nil {
			return nil, err
		}
	}
	data, err := l.index.read(obj, op.Position)
	if err != nil {
		return nil, err
	}
	return (&proto.ReadReply{Data: data}).Marshal()
}

func (l *Log) fill(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.FillOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	if err := l.epoch.check(obj, op.Epoch); err != nil {
		return nil, err
	}
	return nil, l.index.fill(obj, op.Position)
}

func (l *Log) trim(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.TrimOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	if err := l.epoch.check(obj, op.Epoch); err != nil {
		return nil, err
	}
	return nil, l.index.trim(obj, op.Position)
}

func (l *Log) invalidate(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.InvalidateOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	return nil, l.index.invalidate(obj, op.Position, op.Force)
}

// maxPosition answers with the position after the highest one written, 0
// for an empty log. The caller must present the sealed epoch exactly.
func (l *Log) maxPosition(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.MaxPositionOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	cur, ok, err := l.epoch.load(obj)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apierrors.Error{Code: apierrors.CodeNotFound, Msg: "object not sealed"}
	}
	if op.Epoch != cur {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "epoch does not match sealed epoch"}
	}

	maxPos, ok, err := getUint64Val(obj, maxPositionKey)
	if err != nil {
		return nil, err
	}
	reply := &proto.MaxPositionReply{}
	if ok {
		reply.Position = maxPos + 1
	}
	return reply.Marshal()
}

func (l *Log) advanceMaxPosition(obj store.Object, pos uint64) error {
	cur, ok, err := getUint64Val(obj, maxPositionKey)
	if err != nil {
		return err
	}
	if ok && pos <= cur {
		return nil
	}
	return obj.MapSetVal(maxPositionKey, encodeUint64(pos))
}

func (l *Log) init(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.InitOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}
	x, ok := l.index.(*stripedIndex)
	if !ok {
		return nil, &apierrors.Error{Code: apierrors.CodeNotSupported, Msg: "init needs the striped strategy"}
	}
	if err := x.init(obj, &op); err != nil {
		if errors.Is(err, apierrors.ErrIO) {
			trace.SpanFromContextSafe(ctx).Errorf("init object %s failed: %s", obj.Name(), err)
		}
		return nil, err
	}
	return nil, nil
}
