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

// Package phydesign runs lists of storage probes against one object, to
// compare the cost of the places a log could keep its epoch and index.
package phydesign

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/objclass"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
)

type Probe uint32

const (
	InitState Probe = iota + 1
	ReadEpochOmap
	ReadEpochOmapHeader
	ReadEpochXattr
	ReadEpochNoop
	ReadEpochHeader
	ReadOmapIndexEntry
	WriteOmapIndexEntry
	AppendData
)

const (
	epochName = "epoch"
	// headerSize is the byte stream header init_state reserves in front of
	// appended data.
	headerSize = 4096
)

var probeNames = map[Probe]string{
	InitState:           "init_state",
	ReadEpochOmap:       "read_epoch_omap",
	ReadEpochOmapHeader: "read_epoch_omap_hdr",
	ReadEpochXattr:      "read_epoch_xattr",
	ReadEpochNoop:       "read_epoch_noop",
	ReadEpochHeader:     "read_epoch_header",
	ReadOmapIndexEntry:  "read_omap_index_entry",
	WriteOmapIndexEntry: "write_omap_index_entry",
	AppendData:          "append_data",
}

func (p Probe) String() string {
	if name, ok := probeNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParseProbe accepts a probe name as printed by String.
func ParseProbe(name string) (Probe, error) {
	for p, n := range probeNames {
		if n == name {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown probe %q", name)
}

func ProbesString(ops []uint32) string {
	names := make([]string, 0, len(ops))
	for _, op := range ops {
		names = append(names, Probe(op).String())
	}
	return strings.Join(names, " ")
}

func Class() *objclass.Class {
	return objclass.NewClass(proto.ClassPhyDesign).
		Register("zlog", objclass.FlagRDWR, run)
}

func indexKey(pos uint64) string {
	return fmt.Sprintf("pos.%020d", pos)
}

func run(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	var op proto.ProbeOp
	if err := op.Unmarshal(in); err != nil {
		return nil, err
	}

	span := trace.SpanFromContextSafe(ctx)
	span.Debugf("probes on %s: %s, pos: %d, len: %d", obj.Name(), ProbesString(op.Ops), op.Position, len(op.Data))
	for _, p := range op.Ops {
		if err := runProbe(obj, Probe(p), op.Position, op.Data); err != nil {
			span.Warnf("probe %s on %s failed: %s", Probe(p), obj.Name(), err)
			return nil, err
		}
	}
	return nil, nil
}

func runProbe(obj store.Object, p Probe, pos uint64, data []byte) error {
	switch p {
	case InitState:
		return initState(obj)
	case ReadEpochOmap:
		_, err := obj.MapGetVal(epochName)
		return err
	case ReadEpochOmapHeader:
		_, err := obj.MapReadHeader()
		return err
	case ReadEpochXattr:
		_, err := obj.GetXattr(epochName)
		return err
	case ReadEpochNoop:
		return nil
	case ReadEpochHeader:
		_, err := obj.Read(0, 8)
		return err
	case ReadOmapIndexEntry:
		_, err := obj.MapGetVal(indexKey(pos))
		if errors.Is(err, apierrors.ErrNotFound) {
			return nil
		}
		return err
	case WriteOmapIndexEntry:
		raw, err := (&proto.IndexEntry{Length: uint64(len(data))}).Marshal()
		if err != nil {
			return err
		}
		return obj.MapSetVal(indexKey(pos), raw)
	case AppendData:
		st, err := obj.Stat()
		if err != nil {
			return err
		}
		return obj.Write(st.Size, data)
	}
	return &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: fmt.Sprintf("invalid probe %d", uint32(p))}
}

// initState seeds the epoch in every candidate location and reserves a
// zeroed header at the front of the byte stream.
func initState(obj store.Object) error {
	if err := obj.Create(false); err != nil {
		return err
	}
	epoch := make([]byte, 8)
	if err := obj.MapSetVal(epochName, epoch); err != nil {
		return err
	}
	if err := obj.MapWriteHeader(epoch); err != nil {
		return err
	}
	if err := obj.SetXattr(epochName, epoch); err != nil {
		return err
	}
	return obj.Write(0, make([]byte, headerSize))
}
