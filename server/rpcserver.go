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
	"net"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/cubefs/zlog/metrics"
	"github.com/cubefs/zlog/proto"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type RPCServer struct {
	*Server

	grpcServer *grpc.Server
}

func NewRPCServer(server *Server) *RPCServer {
	rs := &RPCServer{Server: server}

	s := grpc.NewServer(
		grpc.ForceServerCodec(proto.Codec{}),
		grpc.ChainUnaryInterceptor(metrics.GRPCMetrics.UnaryServerInterceptor(), rs.unaryInterceptorWithTracer),
	)
	proto.RegisterObjectClassServer(s, rs)
	metrics.GRPCMetrics.InitializeMetrics(s)
	rs.grpcServer = s
	return rs
}

func (r *RPCServer) Serve(addr string) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		log.Fatalf("listen on %s failed: %s", addr, err)
	}
	r.ServeListener(lis)
	log.Info("grpc server is running at:", addr)
}

func (r *RPCServer) ServeListener(lis net.Listener) {
	go func() {
		if err := r.grpcServer.Serve(lis); err != nil && err != grpc.ErrServerStopped {
			log.Fatal("grpc server exits:", err)
		}
	}()
}

func (r *RPCServer) Stop() {
	r.grpcServer.GracefulStop()
}

func (r *RPCServer) Exec(ctx context.Context, req *proto.ExecRequest) (*proto.ExecReply, error) {
	return r.Execute(ctx, req), nil
}

func (r *RPCServer) unaryInterceptorWithTracer(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
	md, _ := metadata.FromIncomingContext(ctx)
	if reqID := md.Get(proto.ReqIdKey); len(reqID) > 0 && reqID[0] != "" {
		_, ctx = trace.StartSpanFromContextWithTraceID(ctx, info.FullMethod, reqID[0])
	} else {
		_, ctx = trace.StartSpanFromContext(ctx, info.FullMethod)
	}

	resp, err = handler(ctx, req)
	return
}
