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
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/cubefs/cubefs/util/btree"
)

const (
	memoryBTreeDegree = 32
	// memListBatch bounds how many items a list reader copies under the lock
	memListBatch = 64
)

type (
	// memory is an in-process engine on ordered btrees, one per column family.
	// Values are copied on the way in and on the way out.
	memory struct {
		trees map[CF]*btree.BTree
		used  int64
		lock  sync.RWMutex
	}
	memItem struct {
		key   []byte
		value []byte
	}
	memListReader struct {
		s       *memory
		col     CF
		prefix  []byte
		items   []*memItem
		idx     int
		loaded  bool
		done    bool
		startAt []byte
		// after is the last key copied, the next batch starts past it
		after []byte
	}
	memKey   []byte
	memValue struct {
		index int
		value []byte
	}
	memOp struct {
		col      CF
		key      []byte
		value    []byte
		endKey   []byte
		isDelete bool
		isRange  bool
	}
	memWriteBatch struct {
		ops []memOp
	}
	memReadOption  struct{}
	memWriteOption struct{}
)

func newMemory(ctx context.Context, option *Option) (Store, error) {
	s := &memory{trees: make(map[CF]*btree.BTree)}
	s.trees[defaultCF] = btree.New(memoryBTreeDegree)
	if option != nil {
		for _, col := range option.ColumnFamily {
			s.trees[col] = btree.New(memoryBTreeDegree)
		}
	}
	return s, nil
}

func (i *memItem) Less(than btree.Item) bool {
	return bytes.Compare(i.key, than.(*memItem).key) < 0
}

func (i *memItem) Copy() btree.Item {
	return &memItem{key: i.key, value: i.value}
}

func (k memKey) Key() []byte { return k }
func (k memKey) Close() {}

func (v *memValue) Value() []byte { return v.value }
func (v *memValue) Size() int     { return len(v.value) }
func (v *memValue) Close() error  { return nil }

func (v *memValue) Read(b []byte) (n int, err error) {
	if v.index >= len(v.value) {
		return 0, io.EOF
	}
	n = copy(b, v.value[v.index:])
	v.index += n
	return
}

func (memReadOption) Close() {}
func (memWriteOption) SetSync(value bool) {}
func (memWriteOption) DisableWAL(value bool) {}
func (memWriteOption) Close() {}

func (w *memWriteBatch) Put(col CF, key, value []byte) {
	w.ops = append(w.ops, memOp{col: col, key: copyBytes(key), value: copyBytes(value)})
}

func (w *memWriteBatch) Delete(col CF, key []byte) {
	w.ops = append(w.ops, memOp{col: col, key: copyBytes(key), isDelete: true})
}

func (w *memWriteBatch) DeleteRange(col CF, startKey, endKey []byte) {
	w.ops = append(w.ops, memOp{col: col, key: copyBytes(startKey), endKey: copyBytes(endKey), isRange: true})
}

func (w *memWriteBatch) Count() int {
	return len(w.ops)
}

func (w *memWriteBatch) Close() {
	w.ops = nil
}

func (s *memory) CreateColumn(col CF) error {
	s.lock.Lock()
	if _, ok := s.trees[col]; !ok {
		s.trees[col] = btree.New(memoryBTreeDegree)
	}
	s.lock.Unlock()
	return nil
}

func (s *memory) GetAllColumns() (ret []CF) {
	s.lock.RLock()
	for col := range s.trees {
		ret = append(ret, col)
	}
	s.lock.RUnlock()
	return
}

func (s *memory) CheckColumns(col CF) bool {
	if col == "" {
		return true
	}
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.trees[col]
	return ok
}

func (s *memory) Get(ctx context.Context, col CF, key []byte, readOpt ReadOption) (ValueGetter, error) {
	value, err := s.GetRaw(ctx, col, key, readOpt)
	if err != nil {
		return nil, err
	}
	return &memValue{value: value}, nil
}

func (s *memory) GetRaw(ctx context.Context, col CF, key []byte, readOpt ReadOption) ([]byte, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	found := s.getTree(col).Get(&memItem{key: key})
	if found == nil {
		return nil, ErrNotFound
	}
	return copyBytes(found.(*memItem).value), nil
}

func (s *memory) SetRaw(ctx context.Context, col CF, key []byte, value []byte, writeOpt WriteOption) error {
	batch := s.NewWriteBatch()
	batch.Put(col, key, value)
	return s.Write(ctx, batch, writeOpt)
}

func (s *memory) Delete(ctx context.Context, col CF, key []byte, writeOpt WriteOption) error {
	batch := s.NewWriteBatch()
	batch.Delete(col, key)
	return s.Write(ctx, batch, writeOpt)
}

func (s *memory) List(ctx context.Context, col CF, prefix []byte, marker []byte, readOpt ReadOption) ListReader {
	// resolve the column up front so a missing one panics like rocksdb
	s.lock.RLock()
	s.getTree(col)
	s.lock.RUnlock()

	startAt := marker
	if len(startAt) == 0 {
		startAt = prefix
	}
	return &memListReader{s: s, col: col, prefix: prefix, startAt: copyBytes(startAt)}
}

func (s *memory) Write(ctx context.Context, batch WriteBatch, writeOpt WriteOption) error {
	b := batch.(*memWriteBatch)
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, op := range b.ops {
		tree := s.getTree(op.col)
		switch {
		case op.isRange:
			var doomed []btree.Item
			tree.AscendGreaterOrEqual(&memItem{key: op.key}, func(i btree.Item) bool {
				if bytes.Compare(i.(*memItem).key, op.endKey) >= 0 {
					return false
				}
				doomed = append(doomed, i)
				return true
			})
			for _, i := range doomed {
				tree.Delete(i)
				s.used -= int64(len(i.(*memItem).key) + len(i.(*memItem).value))
			}
		case op.isDelete:
			if old := tree.Delete(&memItem{key: op.key}); old != nil {
				s.used -= int64(len(old.(*memItem).key) + len(old.(*memItem).value))
			}
		default:
			old := tree.ReplaceOrInsert(&memItem{key: op.key, value: op.value})
			if old != nil {
				s.used -= int64(len(old.(*memItem).key) + len(old.(*memItem).value))
			}
			s.used += int64(len(op.key) + len(op.value))
		}
	}
	return nil
}

func (s *memory) NewReadOption() ReadOption {
	return memReadOption{}
}

func (s *memory) NewWriteOption() WriteOption {
	return memWriteOption{}
}

func (s *memory) NewWriteBatch() WriteBatch {
	return &memWriteBatch{}
}

func (s *memory) Stats(ctx context.Context) (Stats, error) {
	s.lock.RLock()
	used := uint64(s.used)
	s.lock.RUnlock()
	return Stats{
		Used:        used,
		MemoryUsage: MemoryUsage{MemtableUsage: used, Total: used},
	}, nil
}

func (s *memory) Close() {
	s.lock.Lock()
	s.trees = make(map[CF]*btree.BTree)
	s.lock.Unlock()
}

// getTree must be called with lock held.
func (s *memory) getTree(col CF) *btree.BTree {
	if col == "" {
		col = defaultCF
	}
	tree, ok := s.trees[col]
	if !ok {
		panic(fmt.Sprintf("col:%s not exist", col.String()))
	}
	return tree
}

// load copies the next batch of at most memListBatch items. Writes that land
// between two batches are seen by the later one.
func (lr *memListReader) load() {
	lr.items = lr.items[:0]
	lr.idx = 0
	lr.loaded = true
	lr.s.lock.RLock()
	defer lr.s.lock.RUnlock()

	visit := func(i btree.Item) bool {
		item := i.(*memItem)
		if lr.after != nil && bytes.Equal(item.key, lr.after) {
			return true
		}
		if lr.prefix != nil && !bytes.HasPrefix(item.key, lr.prefix) {
			lr.done = true
			return false
		}
		if len(lr.items) == memListBatch {
			return false
		}
		lr.items = append(lr.items, &memItem{key: copyBytes(item.key), value: copyBytes(item.value)})
		return true
	}
	tree := lr.s.getTree(lr.col)
	switch {
	case lr.after != nil:
		tree.AscendGreaterOrEqual(&memItem{key: lr.after}, visit)
	case len(lr.startAt) == 0:
		tree.Ascend(visit)
	default:
		tree.AscendGreaterOrEqual(&memItem{key: lr.startAt}, visit)
	}
	if len(lr.items) < memListBatch {
		lr.done = true
	}
	if n := len(lr.items); n > 0 {
		lr.after = lr.items[n-1].key
	}
}

func (lr *memListReader) ReadNext() (key KeyGetter, val ValueGetter, err error) {
	if !lr.loaded || (lr.idx >= len(lr.items) && !lr.done) {
		lr.load()
	}
	if lr.idx >= len(lr.items) {
		return nil, nil, nil
	}
	item := lr.items[lr.idx]
	lr.idx++
	return memKey(item.key), &memValue{value: item.value}, nil
}

func (lr *memListReader) ReadNextCopy() (key []byte, value []byte, err error) {
	kg, vg, err := lr.ReadNext()
	if err != nil || kg == nil {
		return nil, nil, err
	}
	return kg.Key(), vg.Value(), nil
}

func (lr *memListReader) SeekTo(key []byte) {
	lr.startAt = copyBytes(key)
	lr.after = nil
	lr.loaded = false
	lr.done = false
}

func (lr *memListReader) Close() {
	lr.items = nil
}

func copyBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	ret := make([]byte, len(b))
	copy(ret, b)
	return ret
}
