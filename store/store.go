package store

import (
	"context"
	"encoding/binary"
	"hash/crc32"
	"sync"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/cubefs/blobstore/util/log"
	"github.com/cubefs/zlog/common/kvstore"
	"github.com/cubefs/zlog/util"
)

const (
	objectLocksNum   = 1024
	defaultChunkSize = 64 << 10

	objectCF = kvstore.CF("object")
	dataCF   = kvstore.CF("data")
	xattrCF  = kvstore.CF("xattr")
	omapCF   = kvstore.CF("omap")

	metaSuffix   = 'm'
	headerSuffix = 'h'
)

var columns = []kvstore.CF{objectCF, dataCF, xattrCF, omapCF}

type Config struct {
	Path      string            `json:"path"`
	KVType    kvstore.LsmKVType `json:"kv_type"`
	KVOption  kvstore.Option    `json:"kv_option"`
	ChunkSize int               `json:"chunk_size"`
}

// Store keeps named objects, each a byte stream with xattrs and an omap,
// on top of a kvstore. Calls against one object are serialized, calls
// against different objects run in parallel.
type Store struct {
	kvStore   kvstore.Store
	chunkSize int

	objectLocks [objectLocksNum]sync.RWMutex
}

func NewStore(ctx context.Context, cfg *Config) (*Store, error) {
	if cfg.KVType == "" {
		cfg.KVType = kvstore.RocksdbLsmKVType
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = defaultChunkSize
	}
	cfg.KVOption.CreateIfMissing = true
	cfg.KVOption.ColumnFamily = mergeColumns(cfg.KVOption.ColumnFamily, columns)

	kvStorePath := cfg.Path + "/kv"
	kvStore, err := kvstore.NewKVStore(ctx, kvStorePath, cfg.KVType, &cfg.KVOption)
	if err != nil {
		return nil, errors.Info(err, "open kv store failed")
	}
	log.Infof("object store opened, type: %s, path: %s, chunk size: %d", cfg.KVType, kvStorePath, cfg.ChunkSize)

	return &Store{kvStore: kvStore, chunkSize: cfg.ChunkSize}, nil
}

func (s *Store) KVStore() kvstore.Store {
	return s.kvStore
}

// Update runs fn against object oid and commits every change fn made in
// one write batch. Nothing is committed when fn returns an error.
func (s *Store) Update(ctx context.Context, oid string, fn func(obj Object) error) error {
	lock := s.getObjectLock(oid)
	lock.Lock()
	defer lock.Unlock()

	tx := newTxn(ctx, s, oid, false)
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.commit(); err != nil {
		span := trace.SpanFromContextSafe(ctx)
		span.Errorf("commit object %s failed: %s", oid, errors.Detail(err))
		return err
	}
	return nil
}

// View runs fn against object oid. Mutations are rejected.
func (s *Store) View(ctx context.Context, oid string, fn func(obj Object) error) error {
	lock := s.getObjectLock(oid)
	lock.RLock()
	defer lock.RUnlock()

	return fn(newTxn(ctx, s, oid, true))
}

// Exists reports whether oid has been created.
func (s *Store) Exists(ctx context.Context, oid string) (bool, error) {
	var exists bool
	err := s.View(ctx, oid, func(obj Object) error {
		tx := obj.(*txn)
		if err := tx.loadMeta(); err != nil {
			return err
		}
		exists = tx.exists
		return nil
	})
	return exists, err
}

// Remove deletes oid with all its data, xattrs and omap entries.
func (s *Store) Remove(ctx context.Context, oid string) error {
	lock := s.getObjectLock(oid)
	lock.Lock()
	defer lock.Unlock()

	prefix := objectPrefix(oid)
	end := prefixEnd(prefix)
	batch := s.kvStore.NewWriteBatch()
	defer batch.Close()
	batch.Delete(objectCF, metaKey(prefix))
	batch.Delete(objectCF, headerKey(prefix))
	batch.DeleteRange(dataCF, prefix, end)
	batch.DeleteRange(xattrCF, prefix, end)
	batch.DeleteRange(omapCF, prefix, end)
	if err := s.kvStore.Write(ctx, batch, nil); err != nil {
		return errors.Info(err, "remove object failed")
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (kvstore.Stats, error) {
	return s.kvStore.Stats(ctx)
}

func (s *Store) Close() {
	s.kvStore.Close()
}

func (s *Store) getObjectLock(oid string) *sync.RWMutex {
	idx := crc32.ChecksumIEEE(util.StringsToBytes(oid)) % objectLocksNum
	return &s.objectLocks[idx]
}

func mergeColumns(have, want []kvstore.CF) []kvstore.CF {
	seen := make(map[kvstore.CF]bool, len(have))
	for _, col := range have {
		seen[col] = true
	}
	for _, col := range want {
		if !seen[col] {
			have = append(have, col)
		}
	}
	return have
}

// objectPrefix is len(oid) as big endian uint32 followed by oid, so no
// object's keys are a prefix of another object's keys.
func objectPrefix(oid string) []byte {
	prefix := make([]byte, 4+len(oid))
	binary.BigEndian.PutUint32(prefix, uint32(len(oid)))
	copy(prefix[4:], oid)
	return prefix
}

func prefixEnd(prefix []byte) []byte {
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}

func metaKey(prefix []byte) []byte {
	return append(append(make([]byte, 0, len(prefix)+1), prefix...), metaSuffix)
}

func headerKey(prefix []byte) []byte {
	return append(append(make([]byte, 0, len(prefix)+1), prefix...), headerSuffix)
}

func chunkKey(prefix []byte, idx uint64) []byte {
	key := make([]byte, len(prefix)+8)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], idx)
	return key
}

func namedKey(prefix []byte, name string) []byte {
	key := make([]byte, len(prefix)+len(name))
	copy(key, prefix)
	copy(key[len(prefix):], name)
	return key
}
