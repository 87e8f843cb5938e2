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
	"time"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/metrics"
	"github.com/cubefs/zlog/objclass"
	"github.com/cubefs/zlog/phydesign"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
	"github.com/cubefs/zlog/util/limiter"
	"github.com/cubefs/zlog/zlog"
)

type Config struct {
	StoreConfig store.Config        `json:"store_config"`
	ZlogConfig  zlog.Config         `json:"zlog_config"`
	LimitConfig limiter.LimitConfig `json:"limit_config"`
}

// Server runs object class methods against the local object store.
type Server struct {
	store    *store.Store
	registry *objclass.Registry
	limiter  limiter.Limiter
}

type Stats struct {
	Classes []string       `json:"classes"`
	Limiter limiter.Status `json:"limiter"`
	KV      kvstore.Stats  `json:"kv"`
}

func NewServer(ctx context.Context, cfg *Config) (*Server, error) {
	l, err := zlog.New(cfg.ZlogConfig)
	if err != nil {
		return nil, errors.Info(err, "new zlog class failed")
	}
	registry := objclass.NewRegistry()
	if err = registry.Add(l.Class(), zlog.BenchClass(), phydesign.Class()); err != nil {
		return nil, err
	}

	s, err := store.NewStore(ctx, &cfg.StoreConfig)
	if err != nil {
		return nil, err
	}
	zcfg := l.Config()
	log.Infof("zlog strategy: %s, epoch location: %s, classes: %v", zcfg.Strategy, zcfg.EpochLocation, registry.Classes())

	return &Server{
		store:    s,
		registry: registry,
		limiter:  limiter.NewLimiter(cfg.LimitConfig),
	}, nil
}

// Execute runs one method call. Method failures are reported in the reply
// code, never as a transport error.
func (s *Server) Execute(ctx context.Context, req *proto.ExecRequest) *proto.ExecReply {
	span := trace.SpanFromContextSafe(ctx)
	start := time.Now()

	out, err := s.execute(ctx, req)
	code := apierrors.CodeOf(err)

	metrics.ExecCounter.WithLabelValues(req.Class, req.Method, code.String()).Inc()
	metrics.ExecDuration.WithLabelValues(req.Class, req.Method).Observe(time.Since(start).Seconds())
	metrics.ExecBytes.WithLabelValues(req.Class, "in").Add(float64(len(req.Input)))
	metrics.ExecBytes.WithLabelValues(req.Class, "out").Add(float64(len(out)))

	reply := &proto.ExecReply{Code: int32(code), Output: out}
	if err != nil {
		reply.Message = err.Error()
		if code == apierrors.CodeIO {
			span.Errorf("exec %s.%s on %s failed: %s", req.Class, req.Method, req.Oid, errors.Detail(err))
		} else {
			span.Debugf("exec %s.%s on %s: %s", req.Class, req.Method, req.Oid, code)
		}
	}
	return reply
}

func (s *Server) execute(ctx context.Context, req *proto.ExecRequest) ([]byte, error) {
	if req.Oid == "" {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "empty object name"}
	}
	m, err := s.registry.Lookup(req.Class, req.Method)
	if err != nil {
		return nil, err
	}

	if m.Writes() {
		if err = s.limiter.AcquireWrite(); err != nil {
			return nil, err
		}
		defer s.limiter.ReleaseWrite()
		err = s.limiter.WaitWrite(ctx, len(req.Input))
	} else {
		if err = s.limiter.AcquireRead(); err != nil {
			return nil, err
		}
		defer s.limiter.ReleaseRead()
		err = s.limiter.WaitRead(ctx, len(req.Input))
	}
	if err != nil {
		return nil, &apierrors.Error{Code: apierrors.CodeBusy, Msg: err.Error()}
	}

	return m.Call(ctx, s.store, req.Oid, req.Input)
}

// SetLimit replaces the admission limits of running calls. Zero lifts a
// limit.
func (s *Server) SetLimit(ctx context.Context, cfg limiter.LimitConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.limiter.SetReadConcurrency(uint32(cfg.ReadConcurrency))
	s.limiter.SetWriteConcurrency(uint32(cfg.WriteConcurrency))
	s.limiter.SetReadMBPS(cfg.ReadMBPS)
	s.limiter.SetWriteMBPS(cfg.WriteMBPS)
	trace.SpanFromContextSafe(ctx).Infof("limit changed to %+v", cfg)
	return nil
}

func (s *Server) Stats(ctx context.Context) (Stats, error) {
	kvStats, err := s.store.Stats(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		Classes: s.registry.Classes(),
		Limiter: s.limiter.Status(),
		KV:      kvStats,
	}, nil
}

func (s *Server) Close() {
	s.store.Close()
}
