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

package server

import (
	"context"
	"testing"

	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
	"github.com/cubefs/zlog/util/limiter"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	s, err := NewServer(context.Background(), &Config{
		StoreConfig: store.Config{KVType: kvstore.MemoryKVType},
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func execRequest(t *testing.T, oid, class, method string, in proto.Message) *proto.ExecRequest {
	raw, err := in.Marshal()
	require.NoError(t, err)
	return &proto.ExecRequest{Oid: oid, Class: class, Method: method, Input: raw}
}

func TestExecute(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	reply := s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "seal", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)
	require.Empty(t, reply.Message)

	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "write", &proto.WriteOp{Epoch: 2, Position: 3, Data: []byte("hello")}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)

	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "read", &proto.ReadOp{Epoch: 2, Position: 3}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)
	var rr proto.ReadReply
	require.NoError(t, rr.Unmarshal(reply.Output))
	require.Equal(t, []byte("hello"), rr.Data)

	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "write", &proto.WriteOp{Epoch: 0, Position: 4, Data: []byte("x")}))
	require.Equal(t, int32(apierrors.CodeStaleEpoch), reply.Code)
	require.NotEmpty(t, reply.Message)

	reply = s.Execute(ctx, execRequest(t, "missing", proto.ClassZlog, "read", &proto.ReadOp{Epoch: 1, Position: 0}))
	require.Equal(t, int32(apierrors.CodeNotWritten), reply.Code)

	reply = s.Execute(ctx, execRequest(t, "missing", proto.ClassZlog, "get_projection", &proto.GetProjectionOp{Latest: true}))
	require.Equal(t, int32(apierrors.CodeNotFound), reply.Code)
}

func TestExecuteBadRequest(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	reply := s.Execute(ctx, execRequest(t, "", proto.ClassZlog, "seal", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeInvalidArgument), reply.Code)

	reply = s.Execute(ctx, execRequest(t, "obj", "lock", "seal", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeNotSupported), reply.Code)

	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "compact", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeNotSupported), reply.Code)

	reply = s.Execute(ctx, &proto.ExecRequest{Oid: "obj", Class: proto.ClassZlog, Method: "seal", Input: []byte{0xff}})
	require.Equal(t, int32(apierrors.CodeInvalidArgument), reply.Code)
}

func TestExecuteBusy(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	require.NoError(t, s.SetLimit(ctx, limiter.LimitConfig{WriteConcurrency: 1}))
	require.NoError(t, s.limiter.AcquireWrite())

	reply := s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "seal", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeBusy), reply.Code)
	require.Equal(t, 1, s.limiter.Status().WriteRunning)

	// reads are admitted separately
	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "max_position", &proto.MaxPositionOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeNotFound), reply.Code)

	s.limiter.ReleaseWrite()
	reply = s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "seal", &proto.SealOp{Epoch: 1}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)
	require.Equal(t, 0, s.limiter.Status().WriteRunning)
}

func TestSetLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	require.ErrorIs(t, s.SetLimit(ctx, limiter.LimitConfig{ReadConcurrency: -1}), apierrors.ErrInvalidArgument)
	require.Equal(t, limiter.LimitConfig{}, s.limiter.GetConfig())

	cfg := limiter.LimitConfig{ReadConcurrency: 2, WriteConcurrency: 3, ReadMBPS: 4, WriteMBPS: 5}
	require.NoError(t, s.SetLimit(ctx, cfg))
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, cfg, stats.Limiter.Config)

	// lifting the limits again while calls run
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			s.Execute(ctx, execRequest(t, "obj", proto.ClassZlog, "seal", &proto.SealOp{Epoch: uint64(i)}))
		}
	}()
	for i := 0; i < 100; i++ {
		require.NoError(t, s.SetLimit(ctx, limiter.LimitConfig{WriteConcurrency: i % 3}))
	}
	<-done
	require.NoError(t, s.SetLimit(ctx, limiter.LimitConfig{}))
	require.Equal(t, 0, s.limiter.Status().WriteRunning)
}

func TestExecuteClasses(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	reply := s.Execute(ctx, execRequest(t, "bench", proto.ClassZlogBench, "append_init", &proto.AppendOp{}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)
	reply = s.Execute(ctx, execRequest(t, "bench", proto.ClassZlogBench, "append", &proto.AppendOp{Epoch: 11, Position: 0, Data: []byte("abc")}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)

	reply = s.Execute(ctx, execRequest(t, "phy", proto.ClassPhyDesign, "zlog", &proto.ProbeOp{Ops: []uint32{1}, Position: 0, Data: nil}))
	require.Equal(t, int32(apierrors.CodeOK), reply.Code)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{proto.ClassPhyDesign, proto.ClassZlog, proto.ClassZlogBench}, stats.Classes)
	require.True(t, stats.KV.Used > 0)
}
