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

package proto

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

const (
	CodecName = "zlog"

	ObjectClassServiceName = "zlog.ObjectClass"
	ObjectClassExecMethod  = "/zlog.ObjectClass/Exec"
)

// Codec marshals the records of this package on the gRPC wire.
type Codec struct{}

var _ encoding.Codec = Codec{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	m, ok := v.(Message)
	if !ok {
		return nil, fmt.Errorf("zlog codec: unexpected message type %T", v)
	}
	return m.Marshal()
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	m, ok := v.(Message)
	if !ok {
		return fmt.Errorf("zlog codec: unexpected message type %T", v)
	}
	return m.Unmarshal(data)
}

func (Codec) Name() string {
	return CodecName
}

type ObjectClassServer interface {
	Exec(ctx context.Context, req *ExecRequest) (*ExecReply, error)
}

type ObjectClassClient interface {
	Exec(ctx context.Context, req *ExecRequest, opts ...grpc.CallOption) (*ExecReply, error)
}

type objectClassClient struct {
	cc grpc.ClientConnInterface
}

func NewObjectClassClient(cc grpc.ClientConnInterface) ObjectClassClient {
	return &objectClassClient{cc: cc}
}

func (c *objectClassClient) Exec(ctx context.Context, req *ExecRequest, opts ...grpc.CallOption) (*ExecReply, error) {
	out := new(ExecReply)
	opts = append([]grpc.CallOption{grpc.ForceCodec(Codec{})}, opts...)
	if err := c.cc.Invoke(ctx, ObjectClassExecMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterObjectClassServer(s grpc.ServiceRegistrar, srv ObjectClassServer) {
	s.RegisterService(&ObjectClass_ServiceDesc, srv)
}

func _ObjectClass_Exec_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExecRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ObjectClassServer).Exec(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: ObjectClassExecMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ObjectClassServer).Exec(ctx, req.(*ExecRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ObjectClass_ServiceDesc is the grpc.ServiceDesc for the ObjectClass service.
// Servers must be created with grpc.ForceServerCodec(Codec{}).
var ObjectClass_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ObjectClassServiceName,
	HandlerType: (*ObjectClassServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Exec",
			Handler:    _ObjectClass_Exec_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "zlog",
}
