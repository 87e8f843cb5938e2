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

package phydesign

import (
	"context"
	"testing"

	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/store"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, s *store.Store, oid string, pos uint64, data []byte, probes ...Probe) error {
	m, ok := Class().Method("zlog")
	require.True(t, ok)
	op := &proto.ProbeOp{Position: pos, Data: data}
	for _, p := range probes {
		op.Ops = append(op.Ops, uint32(p))
	}
	raw, err := op.Marshal()
	require.NoError(t, err)
	_, err = m.Call(context.Background(), s, oid, raw)
	return err
}

func TestProbes(t *testing.T) {
	ctx := context.Background()
	s, err := store.NewStore(ctx, &store.Config{KVType: kvstore.MemoryKVType})
	require.NoError(t, err)
	defer s.Close()

	// nothing to read before init_state
	for _, p := range []Probe{ReadEpochOmap, ReadEpochOmapHeader, ReadEpochXattr, ReadEpochHeader, AppendData} {
		require.Equal(t, apierrors.CodeNotFound, apierrors.CodeOf(probe(t, s, "obj", 0, nil, p)), p.String())
	}
	require.NoError(t, probe(t, s, "obj", 0, nil, ReadEpochNoop))

	require.NoError(t, probe(t, s, "obj", 0, nil, InitState))
	require.NoError(t, probe(t, s, "obj", 3, []byte("entry"),
		ReadEpochOmap, ReadEpochOmapHeader, ReadEpochXattr, ReadEpochNoop, ReadEpochHeader,
		ReadOmapIndexEntry, WriteOmapIndexEntry, ReadOmapIndexEntry, AppendData))
	require.NoError(t, probe(t, s, "obj", 4, []byte("more"), AppendData))

	require.NoError(t, s.View(ctx, "obj", func(obj store.Object) error {
		st, err := obj.Stat()
		require.NoError(t, err)
		require.Equal(t, uint64(headerSize+9), st.Size)
		data, err := obj.Read(headerSize, 9)
		require.NoError(t, err)
		require.Equal(t, []byte("entrymore"), data)

		header, err := obj.MapReadHeader()
		require.NoError(t, err)
		require.Equal(t, make([]byte, 8), header)

		raw, err := obj.MapGetVal("pos.00000000000000000003")
		require.NoError(t, err)
		var entry proto.IndexEntry
		require.NoError(t, entry.Unmarshal(raw))
		require.Equal(t, uint64(5), entry.Length)
		return nil
	}))

	// the first failing probe aborts the whole list
	err = probe(t, s, "obj", 7, nil, WriteOmapIndexEntry, Probe(42), AppendData)
	require.Equal(t, apierrors.CodeInvalidArgument, apierrors.CodeOf(err))
	require.NoError(t, s.View(ctx, "obj", func(obj store.Object) error {
		_, err := obj.MapGetVal(indexKey(7))
		require.Equal(t, apierrors.ErrNotFound, err)
		return nil
	}))

	require.Equal(t, apierrors.CodeInvalidArgument, apierrors.CodeOf(probe(t, s, "obj", 0, nil, 0)))
}

func TestProbeNames(t *testing.T) {
	for p := InitState; p <= AppendData; p++ {
		parsed, err := ParseProbe(p.String())
		require.NoError(t, err)
		require.Equal(t, p, parsed)
	}
	_, err := ParseProbe("unknown")
	require.Error(t, err)
	require.Equal(t, "init_state unknown append_data", ProbesString([]uint32{1, 10, 9}))
}
