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

package kvstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/cubefs/zlog/util"
	"github.com/stretchr/testify/require"
)

var engineTypes = []LsmKVType{RocksdbLsmKVType, MemoryKVType}

type testEg struct {
	engine Store
	path   string
	opt    *Option
}

func newEngine(ctx context.Context, lsmType LsmKVType, opt *Option) (*testEg, error) {
	path, err := util.GenTmpPath()
	if err != nil {
		return nil, err
	}
	var _opt *Option
	if opt != nil {
		_opt = opt
	} else {
		_opt = new(Option)
	}
	_opt.CreateIfMissing = true
	_opt.Sync = true
	engine, err := NewKVStore(ctx, path, lsmType, _opt)
	if err != nil {
		return nil, err
	}
	return &testEg{
		engine: engine,
		path:   path,
		opt:    _opt,
	}, nil
}

func (eg *testEg) close() {
	eg.engine.Close()
	os.RemoveAll(eg.path)
}

func forEachEngine(t *testing.T, f func(t *testing.T, eg *testEg)) {
	for _, typ := range engineTypes {
		t.Run(string(typ), func(t *testing.T) {
			eg, err := newEngine(context.TODO(), typ, nil)
			require.NoError(t, err)
			defer eg.close()
			f(t, eg)
		})
	}
}

func Test_openRocksdb(t *testing.T) {
	ctx := context.TODO()
	path, err := util.GenTmpPath()
	require.NoError(t, err)
	defer os.RemoveAll(path)
	opt := new(Option)
	opt.CreateIfMissing = true
	opt.BlockSize = 1 << 20
	opt.BlockCache = 1 << 20
	opt.MaxSubCompactions = 8
	opt.MaxBackgroundCompactions = 8
	opt.KeepLogFileNum = 10000
	opt.MaxLogFileSize = 1 << 30
	opt.ColumnFamily = []CF{"a", "b", "c"}
	opt.CompactionStyle = LevelStyle
	eg, err := newRocksdb(ctx, path, opt)
	require.NoError(t, err)
	eg.Close()

	// open with empty path
	_, err = newRocksdb(ctx, "", opt)
	require.Equal(t, errors.New("path is empty"), err)
	// reopen db
	eg, err = newRocksdb(ctx, path, opt)
	require.NoError(t, err)
	eg.Close()
	// open with wrong cf
	opt.ColumnFamily = []CF{"a", "b"}
	_, err = newRocksdb(ctx, path, opt)
	require.Error(t, err)
}

func TestNewKVStore_UnknownType(t *testing.T) {
	_, err := NewKVStore(context.TODO(), "", LsmKVType("leveldb"), new(Option))
	require.Equal(t, ErrKVTypeNotFound, err)
}

func TestInstance_CreateColumn(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		require.False(t, eg.engine.CheckColumns("colA"))
		require.NoError(t, eg.engine.CreateColumn("colA"))
		require.NoError(t, eg.engine.CreateColumn("colA"))
		require.True(t, eg.engine.CheckColumns("colA"))
		require.True(t, eg.engine.CheckColumns(""))
		require.Contains(t, eg.engine.GetAllColumns(), CF("colA"))
	})
}

func TestInstance_SetGetRaw(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		k := []byte("key1")
		v := []byte("value1")
		err := eg.engine.SetRaw(ctx, defaultCF, k, v, nil)
		require.NoError(t, err)
		v1, err := eg.engine.GetRaw(ctx, defaultCF, k, nil)
		require.NoError(t, err)
		v2, err := eg.engine.Get(ctx, defaultCF, k, nil)
		require.NoError(t, err)
		require.Equal(t, v, v1)
		require.Equal(t, v, v2.Value())
		v2.Close()

		// returned values do not alias engine memory
		v1[0] = 'X'
		v3, err := eg.engine.GetRaw(ctx, defaultCF, k, nil)
		require.NoError(t, err)
		require.Equal(t, v, v3)

		err = eg.engine.Delete(ctx, defaultCF, k, nil)
		require.NoError(t, err)
		_, err = eg.engine.GetRaw(ctx, defaultCF, k, nil)
		require.Equal(t, ErrNotFound, err)
	})
}

func TestWrite(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		col1 := CF("c1")
		require.NoError(t, eg.engine.CreateColumn(col1))

		for i := 0; i < 5; i++ {
			keyStr := []byte(fmt.Sprintf("k%d", i))
			valStr := []byte(fmt.Sprintf("v%d", i))
			err := eg.engine.SetRaw(ctx, col1, keyStr, valStr, nil)
			require.NoError(t, err)
		}

		batch := eg.engine.NewWriteBatch()
		defer batch.Close()
		batch.DeleteRange(col1, []byte("k0"), []byte("k4"))
		batch.Put(col1, []byte("k9"), []byte("v9"))
		batch.Delete(col1, []byte("k9"))
		batch.Put(col1, []byte("k8"), []byte("v8"))
		require.Equal(t, 4, batch.Count())
		err := eg.engine.Write(ctx, batch, nil)
		require.NoError(t, err)
		for i := 0; i < 4; i++ {
			keyStr := []byte(fmt.Sprintf("k%d", i))
			_, err = eg.engine.GetRaw(ctx, col1, keyStr, nil)
			require.Equal(t, ErrNotFound, err)
		}
		v, err := eg.engine.GetRaw(ctx, col1, []byte("k4"), nil)
		require.NoError(t, err)
		require.Equal(t, []byte("v4"), v)
		_, err = eg.engine.GetRaw(ctx, col1, []byte("k9"), nil)
		require.Equal(t, ErrNotFound, err)
		v, err = eg.engine.GetRaw(ctx, col1, []byte("k8"), nil)
		require.NoError(t, err)
		require.Equal(t, []byte("v8"), v)
	})
}

func TestValueGetter_Read(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		k := []byte("key")
		err := eg.engine.SetRaw(ctx, defaultCF, k, []byte("helloworld"), nil)
		require.NoError(t, err)
		vg, err := eg.engine.Get(ctx, defaultCF, k, nil)
		require.NoError(t, err)
		defer vg.Close()
		b := make([]byte, vg.Size()/2)
		n, err := vg.Read(b)
		require.NoError(t, err)
		require.Equal(t, []byte("hello"), b)
		require.Equal(t, vg.Size()/2, n)
		n, err = vg.Read(b)
		require.NoError(t, err)
		require.Equal(t, []byte("world"), b)
		require.Equal(t, vg.Size()/2, n)
		n, err = vg.Read(b)
		require.Equal(t, io.EOF, err)
		require.Equal(t, 0, n)
	})
}

func TestInstance_NewWriteOption(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		wo := eg.engine.NewWriteOption()
		defer wo.Close()
		wo.SetSync(false)
		wo.DisableWAL(true)
		ro := eg.engine.NewReadOption()
		defer ro.Close()
		k := []byte("key1")
		v := []byte("value1")
		err := eg.engine.SetRaw(ctx, defaultCF, k, v, wo)
		require.NoError(t, err)
		v1, err := eg.engine.GetRaw(ctx, defaultCF, k, ro)
		require.NoError(t, err)
		require.Equal(t, v, v1)
	})
}

func TestInstance_List(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		kvs := [][2]string{
			{"key1", "value1"}, {"word1", "w1"}, {"key2", "value2"}, {"check", "0"},
			{"word2", "w2"}, {"key3", "value3"}, {"word3", "w3"}, {"xyz", "zyx"}, {"key4", "value4"},
		}
		for _, kv := range kvs {
			require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, []byte(kv[0]), []byte(kv[1]), nil))
		}

		ls := eg.engine.List(ctx, defaultCF, []byte("word"), nil, nil)
		ls.SeekTo([]byte("word2"))
		kg, vg, err := ls.ReadNext()
		require.NoError(t, err)
		require.Equal(t, []byte("word2"), kg.Key())
		require.Equal(t, []byte("w2"), vg.Value())
		kg, vg, err = ls.ReadNext()
		require.NoError(t, err)
		require.Equal(t, []byte("word3"), kg.Key())
		require.Equal(t, []byte("w3"), vg.Value())
		kg, _, err = ls.ReadNext()
		require.NoError(t, err)
		require.Nil(t, kg)
		ls.Close()

		// prefix read
		ls = eg.engine.List(ctx, defaultCF, []byte("key"), nil, nil)
		i := 0
		for {
			k, v, err := ls.ReadNextCopy()
			require.NoError(t, err)
			if k == nil {
				break
			}
			i++
			require.Equal(t, []byte("key"+strconv.Itoa(i)), k)
			require.Equal(t, []byte("value"+strconv.Itoa(i)), v)
		}
		require.Equal(t, 4, i)
		ls.Close()

		// marker read
		ls = eg.engine.List(ctx, defaultCF, []byte("key"), []byte("key3"), nil)
		k, v, err := ls.ReadNextCopy()
		require.NoError(t, err)
		require.Equal(t, []byte("key3"), k)
		require.Equal(t, []byte("value3"), v)
		ls.Close()
	})
}

func TestInstance_Stats(t *testing.T) {
	forEachEngine(t, func(t *testing.T, eg *testEg) {
		ctx := context.TODO()
		require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, []byte("k"), []byte("v"), nil))
		_, err := eg.engine.Stats(ctx)
		require.NoError(t, err)
	})
}

func TestMemory_StatsTracksUsage(t *testing.T) {
	ctx := context.TODO()
	eg, err := newEngine(ctx, MemoryKVType, nil)
	require.NoError(t, err)
	defer eg.close()

	require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, []byte("ab"), []byte("cd"), nil))
	stats, err := eg.engine.Stats(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(4), stats.Used)

	require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, []byte("ab"), []byte("c"), nil))
	stats, _ = eg.engine.Stats(ctx)
	require.Equal(t, uint64(3), stats.Used)

	require.NoError(t, eg.engine.Delete(ctx, defaultCF, []byte("ab"), nil))
	stats, _ = eg.engine.Stats(ctx)
	require.Equal(t, uint64(0), stats.Used)
}

func TestMemory_UnknownColumnPanics(t *testing.T) {
	ctx := context.TODO()
	eg, err := newEngine(ctx, MemoryKVType, nil)
	require.NoError(t, err)
	defer eg.close()

	require.Panics(t, func() {
		eg.engine.GetRaw(ctx, CF("nope"), []byte("k"), nil)
	})
}

func TestMemory_ListBatches(t *testing.T) {
	ctx := context.TODO()
	eg, err := newEngine(ctx, MemoryKVType, nil)
	require.NoError(t, err)
	defer eg.close()

	total := 3*memListBatch + 5
	for i := 0; i < total; i++ {
		key := []byte(fmt.Sprintf("p%05d", i))
		require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, key, []byte(strconv.Itoa(i)), nil))
	}
	require.NoError(t, eg.engine.SetRaw(ctx, defaultCF, []byte("q"), []byte("other"), nil))

	// a short read copies one batch only
	ls := eg.engine.List(ctx, defaultCF, []byte("p"), nil, nil)
	for i := 0; i < 3; i++ {
		k, v, err := ls.ReadNextCopy()
		require.NoError(t, err)
		require.Equal(t, []byte(fmt.Sprintf("p%05d", i)), k)
		require.Equal(t, []byte(strconv.Itoa(i)), v)
	}
	require.Len(t, ls.(*memListReader).items, memListBatch)
	ls.Close()

	// batch boundaries neither skip nor repeat keys
	ls = eg.engine.List(ctx, defaultCF, []byte("p"), []byte("p00010"), nil)
	n := 10
	for {
		k, v, err := ls.ReadNextCopy()
		require.NoError(t, err)
		if k == nil {
			break
		}
		require.Equal(t, []byte(fmt.Sprintf("p%05d", n)), k)
		require.Equal(t, []byte(strconv.Itoa(n)), v)
		n++
	}
	require.Equal(t, total, n)
	ls.Close()

	// keys written behind a batch are seen by the next one
	ls = eg.engine.List(ctx, defaultCF, []byte("p"), nil, nil)
	for i := 0; i < memListBatch; i++ {
		_, _, err := ls.ReadNextCopy()
		require.NoError(t, err)
	}
	require.NoError(t, eg.engine.Delete(ctx, defaultCF, []byte(fmt.Sprintf("p%05d", memListBatch)), nil))
	k, _, err := ls.ReadNextCopy()
	require.NoError(t, err)
	require.Equal(t, []byte(fmt.Sprintf("p%05d", memListBatch+1)), k)

	// seeking resets the batch position
	ls.SeekTo([]byte(fmt.Sprintf("p%05d", 2*memListBatch)))
	k, _, err = ls.ReadNextCopy()
	require.NoError(t, err)
	require.Equal(t, []byte(fmt.Sprintf("p%05d", 2*memListBatch)), k)
	ls.SeekTo([]byte("p"))
	k, _, err = ls.ReadNextCopy()
	require.NoError(t, err)
	require.Equal(t, []byte("p00000"), k)
	ls.Close()
}
