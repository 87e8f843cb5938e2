// Copyright 2023 The Cuber Authors.
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

package limiter

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	apierrors "github.com/cubefs/zlog/errors"
	"golang.org/x/time/rate"
)

const (
	mb = 1 << 20

	unlimited = math.MaxUint32
)

type (
	// Limiter admits object class calls. Read and write calls are counted
	// separately and their payload bytes are rate limited. A zero limit
	// means unlimited, limits may be changed while calls are running.
	Limiter interface {
		AcquireRead() error
		ReleaseRead()
		AcquireWrite() error
		ReleaseWrite()
		WaitRead(ctx context.Context, n int) error
		WaitWrite(ctx context.Context, n int) error
		SetReadConcurrency(value uint32)
		SetWriteConcurrency(value uint32)
		SetReadMBPS(mbps int)
		SetWriteMBPS(mbps int)
		GetConfig() LimitConfig
		Status() Status
	}
	CountLimit interface {
		Running() int
		Acquire() error
		Release()
		SetLimit(limit uint32)
	}
	LimitConfig struct {
		ReadConcurrency  int `json:"read_concurrency"`
		WriteConcurrency int `json:"write_concurrency"`
		ReadMBPS         int `json:"read_mbps"`
		WriteMBPS        int `json:"write_mbps"`
	}
	Status struct {
		Config       LimitConfig `json:"config"`
		ReadRunning  int         `json:"read_running"`
		WriteRunning int         `json:"write_running"`
		ReadWait     int         `json:"read_wait"`
		WriteWait    int         `json:"write_wait"`
	}
	limiter struct {
		readCountLimit  CountLimit
		writeCountLimit CountLimit
		rateReader      *rate.Limiter
		rateWriter      *rate.Limiter

		lock   sync.RWMutex
		config LimitConfig
	}
)

func (cfg LimitConfig) Validate() error {
	if cfg.ReadConcurrency < 0 || cfg.WriteConcurrency < 0 || cfg.ReadMBPS < 0 || cfg.WriteMBPS < 0 {
		return &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "negative limit"}
	}
	return nil
}

func NewLimiter(cfg LimitConfig) Limiter {
	limiter := &limiter{
		readCountLimit:  &countLimit{limit: concurrencyLimit(cfg.ReadConcurrency)},
		writeCountLimit: &countLimit{limit: concurrencyLimit(cfg.WriteConcurrency)},
		rateReader:      rate.NewLimiter(rateLimit(cfg.ReadMBPS), cfg.ReadMBPS*mb),
		rateWriter:      rate.NewLimiter(rateLimit(cfg.WriteMBPS), cfg.WriteMBPS*mb),
		config:          cfg,
	}
	return limiter
}

func concurrencyLimit(n int) uint32 {
	if n <= 0 {
		return unlimited
	}
	return uint32(n)
}

func rateLimit(mbps int) rate.Limit {
	if mbps <= 0 {
		return rate.Inf
	}
	return rate.Limit(mbps * mb)
}

func (lim *limiter) AcquireRead() error {
	return lim.readCountLimit.Acquire()
}

func (lim *limiter) AcquireWrite() error {
	return lim.writeCountLimit.Acquire()
}

func (lim *limiter) ReleaseRead() {
	lim.readCountLimit.Release()
}

func (lim *limiter) ReleaseWrite() {
	lim.writeCountLimit.Release()
}

func (lim *limiter) WaitRead(ctx context.Context, n int) error {
	return waitN(ctx, lim.rateReader, n)
}

func (lim *limiter) WaitWrite(ctx context.Context, n int) error {
	return waitN(ctx, lim.rateWriter, n)
}

func (lim *limiter) SetReadConcurrency(value uint32) {
	lim.lock.Lock()
	lim.readCountLimit.SetLimit(concurrencyLimit(int(value)))
	lim.config.ReadConcurrency = int(value)
	lim.lock.Unlock()
}

func (lim *limiter) SetWriteConcurrency(value uint32) {
	lim.lock.Lock()
	lim.writeCountLimit.SetLimit(concurrencyLimit(int(value)))
	lim.config.WriteConcurrency = int(value)
	lim.lock.Unlock()
}

func (lim *limiter) SetReadMBPS(mbps int) {
	lim.lock.Lock()
	setRate(lim.rateReader, mbps)
	lim.config.ReadMBPS = mbps
	lim.lock.Unlock()
}

func (lim *limiter) SetWriteMBPS(mbps int) {
	lim.lock.Lock()
	setRate(lim.rateWriter, mbps)
	lim.config.WriteMBPS = mbps
	lim.lock.Unlock()
}

func (lim *limiter) GetConfig() LimitConfig {
	lim.lock.RLock()
	defer lim.lock.RUnlock()
	return lim.config
}

func (lim *limiter) Status() Status {
	return Status{
		Config:       lim.GetConfig(),
		ReadRunning:  lim.readCountLimit.Running(),
		WriteRunning: lim.writeCountLimit.Running(),
		ReadWait:     rateWait(lim.rateReader),
		WriteWait:    rateWait(lim.rateWriter),
	}
}

func setRate(r *rate.Limiter, mbps int) {
	if mbps < 0 {
		mbps = 0
	}
	r.SetBurst(mbps * mb)
	r.SetLimit(rateLimit(mbps))
}

// waitN blocks until n bytes are allowed. Payloads larger than the burst
// are charged a full burst.
func waitN(ctx context.Context, r *rate.Limiter, n int) error {
	if n <= 0 || r.Limit() == rate.Inf {
		return nil
	}
	if burst := r.Burst(); n > burst {
		n = burst
	}
	return r.WaitN(ctx, n)
}

func rateWait(r *rate.Limiter) int {
	limit := r.Limit()
	if limit == rate.Inf {
		return 0
	}
	now := time.Now()
	reserve := r.ReserveN(now, int(limit)/2)
	duration := reserve.DelayFrom(now)
	reserve.Cancel()
	return int(duration.Milliseconds())
}

const minusOne = ^uint32(0)

type countLimit struct {
	limit   uint32
	current uint32
}

// NewCountLimit returns limiter with concurrent n
func NewCountLimit(n int) CountLimit {
	return &countLimit{limit: uint32(n)}
}

func (l *countLimit) Running() int {
	return int(atomic.LoadUint32(&l.current))
}

func (l *countLimit) Acquire() error {
	if atomic.AddUint32(&l.current, 1) > atomic.LoadUint32(&l.limit) {
		atomic.AddUint32(&l.current, minusOne)
		return apierrors.ErrBusy
	}
	return nil
}

func (l *countLimit) Release() {
	atomic.AddUint32(&l.current, minusOne)
}

func (l *countLimit) SetLimit(limit uint32) {
	atomic.StoreUint32(&l.limit, limit)
}
