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
	"strconv"

	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

const (
	projectionKeyPrefix = "____zlog.projection."
	latestProjectionKey = "____zlog.latest_projection"
)

func projectionKey(epoch uint64) string {
	return projectionKeyPrefix + strconv.FormatUint(epoch, 10)
}

// setProjection stores projections write-once and gapless, starting at 0.
func (l *Log) setProjection(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.SetProjectionOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}

	latest, ok, err := getUint64Val(obj, latestProjectionKey)
	if err != nil {
		return nil, err
	}
	switch {
	case !ok && op.Epoch != 0:
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "first projection epoch must be 0"}
	case ok && op.Epoch != latest+1:
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "projection epoch must follow the latest"}
	}

	key := projectionKey(op.Epoch)
	_, err = obj.MapGetVal(key)
	if err == nil {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "projection already set"}
	}
	if !errors.Is(err, apierrors.ErrNotFound) {
		return nil, err
	}

	return nil, obj.MapSetVals(map[string][]byte{
		key:                 op.Data,
		latestProjectionKey: encodeUint64(op.Epoch),
	})
}

func (l *Log) getProjection(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.GetProjectionOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}

	epoch := op.Epoch
	if op.Latest {
		latest, ok, err := getUint64Val(obj, latestProjectionKey)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &apierrors.Error{Code: apierrors.CodeNotFound, Msg: "no projection set"}
		}
		epoch = latest
	}

	data, err := obj.MapGetVal(projectionKey(epoch))
	if err != nil {
		return nil, err
	}
	return (&proto.GetProjectionReply{Epoch: epoch, Data: data}).Marshal()
}
