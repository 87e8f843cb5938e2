package store

import (
	"context"
	"encoding/binary"
	"sort"
	"strings"
	"time"

	"github.com/cubefs/cubefs/blobstore/util/errors"
	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
)

const objectMetaSize = 16

var errReadOnlyTxn = &apierrors.Error{Code: apierrors.CodeNotSupported, Msg: "mutation in read only method"}

// Object is the view an object class method has of the one object it runs
// against. Reads observe the method's own pending writes.
type Object interface {
	Name() string
	// Create makes the object exist. With exclusive set it fails with
	// ErrAlreadyExists when the object already exists.
	Create(exclusive bool) error
	Stat() (Stat, error)
	// Read returns up to length bytes at off. The result is short or empty
	// past the end of the object.
	Read(off, length uint64) ([]byte, error)
	// Write extends the object as needed. Holes read back as zeros.
	Write(off uint64, data []byte) error
	WriteFull(data []byte) error
	GetXattr(name string) ([]byte, error)
	SetXattr(name string, value []byte) error
	MapGetVal(key string) ([]byte, error)
	MapSetVal(key string, value []byte) error
	MapSetVals(kvs map[string][]byte) error
	// MapGetVals lists omap entries with the given prefix whose key sorts
	// after startAfter, in key order, at most max of them. more is set when
	// entries remain.
	MapGetVals(startAfter, prefix string, max int) (kvs []KV, more bool, err error)
	MapReadHeader() ([]byte, error)
	MapWriteHeader(data []byte) error
}

type Stat struct {
	Size  uint64
	Mtime time.Time
}

type KV struct {
	Key   string
	Value []byte
}

type objectMeta struct {
	size  uint64
	mtime int64
}

func (m *objectMeta) marshal() []byte {
	b := make([]byte, objectMetaSize)
	binary.BigEndian.PutUint64(b, m.size)
	binary.BigEndian.PutUint64(b[8:], uint64(m.mtime))
	return b
}

func (m *objectMeta) unmarshal(b []byte) error {
	if len(b) != objectMetaSize {
		return apierrors.ErrCorruptMeta
	}
	m.size = binary.BigEndian.Uint64(b)
	m.mtime = int64(binary.BigEndian.Uint64(b[8:]))
	return nil
}

// txn buffers every mutation of one object until commit.
type txn struct {
	ctx      context.Context
	s        *Store
	name     string
	prefix   []byte
	readOnly bool

	metaLoaded bool
	exists     bool
	meta       objectMeta
	metaDirty  bool

	truncated   bool
	chunks      map[uint64][]byte
	xattrs      map[string][]byte
	omap        map[string][]byte
	header      []byte
	headerDirty bool
}

func newTxn(ctx context.Context, s *Store, name string, readOnly bool) *txn {
	return &txn{
		ctx:      ctx,
		s:        s,
		name:     name,
		prefix:   objectPrefix(name),
		readOnly: readOnly,
		chunks:   make(map[uint64][]byte),
		xattrs:   make(map[string][]byte),
		omap:     make(map[string][]byte),
	}
}

func (t *txn) Name() string {
	return t.name
}

func (t *txn) loadMeta() error {
	if t.metaLoaded {
		return nil
	}
	raw, err := t.s.kvStore.GetRaw(t.ctx, objectCF, metaKey(t.prefix), nil)
	if err == kvstore.ErrNotFound {
		t.metaLoaded = true
		return nil
	}
	if err != nil {
		return errors.Info(err, "get object meta failed")
	}
	if err = t.meta.unmarshal(raw); err != nil {
		return err
	}
	t.metaLoaded = true
	t.exists = true
	return nil
}

// mustExist loads the object record and fails with ErrNotFound when the
// object has not been created.
func (t *txn) mustExist() error {
	if err := t.loadMeta(); err != nil {
		return err
	}
	if !t.exists {
		return apierrors.ErrNotFound
	}
	return nil
}

// prepareWrite creates the object on first mutation.
func (t *txn) prepareWrite() error {
	if t.readOnly {
		return errReadOnlyTxn
	}
	if err := t.loadMeta(); err != nil {
		return err
	}
	if !t.exists {
		t.exists = true
		t.meta = objectMeta{}
	}
	t.meta.mtime = time.Now().UnixNano()
	t.metaDirty = true
	return nil
}

func (t *txn) Create(exclusive bool) error {
	if err := t.loadMeta(); err != nil {
		return err
	}
	if t.exists {
		if exclusive {
			return apierrors.ErrAlreadyExists
		}
		return nil
	}
	return t.prepareWrite()
}

func (t *txn) Stat() (Stat, error) {
	if err := t.mustExist(); err != nil {
		return Stat{}, err
	}
	return Stat{Size: t.meta.size, Mtime: time.Unix(0, t.meta.mtime)}, nil
}

func (t *txn) Read(off, length uint64) ([]byte, error) {
	if err := t.mustExist(); err != nil {
		return nil, err
	}
	if off >= t.meta.size || length == 0 {
		return []byte{}, nil
	}
	end := off + length
	if end > t.meta.size || end < off {
		end = t.meta.size
	}

	ret := make([]byte, end-off)
	chunkSize := uint64(t.s.chunkSize)
	for pos := off; pos < end; {
		idx := pos / chunkSize
		chunkOff := pos % chunkSize
		n := chunkSize - chunkOff
		if n > end-pos {
			n = end - pos
		}
		chunk, err := t.getChunk(idx)
		if err != nil {
			return nil, err
		}
		if chunkOff < uint64(len(chunk)) {
			copy(ret[pos-off:pos-off+n], chunk[chunkOff:])
		}
		pos += n
	}
	return ret, nil
}

func (t *txn) Write(off uint64, data []byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	end := off + uint64(len(data))
	chunkSize := uint64(t.s.chunkSize)
	for pos := off; pos < end; {
		idx := pos / chunkSize
		chunkOff := pos % chunkSize
		n := chunkSize - chunkOff
		if n > end-pos {
			n = end - pos
		}
		chunk, err := t.getChunk(idx)
		if err != nil {
			return err
		}
		if need := chunkOff + n; uint64(len(chunk)) < need {
			grown := make([]byte, need)
			copy(grown, chunk)
			chunk = grown
		} else {
			chunk = append([]byte(nil), chunk...)
		}
		copy(chunk[chunkOff:], data[pos-off:pos-off+n])
		t.chunks[idx] = chunk
		pos += n
	}
	if end > t.meta.size {
		t.meta.size = end
	}
	return nil
}

func (t *txn) WriteFull(data []byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	t.truncated = true
	t.chunks = make(map[uint64][]byte)
	t.meta.size = 0
	return t.Write(0, data)
}

func (t *txn) getChunk(idx uint64) ([]byte, error) {
	if chunk, ok := t.chunks[idx]; ok {
		return chunk, nil
	}
	if t.truncated {
		return nil, nil
	}
	chunk, err := t.s.kvStore.GetRaw(t.ctx, dataCF, chunkKey(t.prefix, idx), nil)
	if err == kvstore.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Info(err, "get object chunk failed")
	}
	return chunk, nil
}

func (t *txn) GetXattr(name string) ([]byte, error) {
	if err := t.mustExist(); err != nil {
		return nil, err
	}
	if value, ok := t.xattrs[name]; ok {
		return value, nil
	}
	return t.getNamed(xattrCF, name)
}

func (t *txn) SetXattr(name string, value []byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	t.xattrs[name] = append([]byte{}, value...)
	return nil
}

func (t *txn) MapGetVal(key string) ([]byte, error) {
	if err := t.mustExist(); err != nil {
		return nil, err
	}
	if value, ok := t.omap[key]; ok {
		return value, nil
	}
	return t.getNamed(omapCF, key)
}

func (t *txn) MapSetVal(key string, value []byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	t.omap[key] = append([]byte{}, value...)
	return nil
}

func (t *txn) MapSetVals(kvs map[string][]byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	for key, value := range kvs {
		t.omap[key] = append([]byte{}, value...)
	}
	return nil
}

func (t *txn) MapGetVals(startAfter, prefix string, max int) ([]KV, bool, error) {
	if err := t.mustExist(); err != nil {
		return nil, false, err
	}
	if max <= 0 {
		return nil, false, nil
	}

	match := func(key string) bool {
		return strings.HasPrefix(key, prefix) && key > startAfter
	}
	merged := make(map[string][]byte)

	// max+1 stored entries are enough to decide both the page and more,
	// since every pending entry is merged in as well
	seek := prefix
	if startAfter > seek {
		seek = startAfter
	}
	lr := t.s.kvStore.List(t.ctx, omapCF, namedKey(t.prefix, prefix), namedKey(t.prefix, seek), nil)
	defer lr.Close()
	for n := 0; n <= max; {
		key, value, err := lr.ReadNextCopy()
		if err != nil {
			return nil, false, errors.Info(err, "list omap failed")
		}
		if key == nil {
			break
		}
		name := string(key[len(t.prefix):])
		if !match(name) {
			continue
		}
		merged[name] = value
		n++
	}
	for key, value := range t.omap {
		if match(key) {
			merged[key] = value
		}
	}

	kvs := make([]KV, 0, len(merged))
	for key, value := range merged {
		kvs = append(kvs, KV{Key: key, Value: value})
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].Key < kvs[j].Key })
	if len(kvs) > max {
		return kvs[:max], true, nil
	}
	return kvs, false, nil
}

func (t *txn) MapReadHeader() ([]byte, error) {
	if err := t.mustExist(); err != nil {
		return nil, err
	}
	if t.headerDirty {
		return t.header, nil
	}
	header, err := t.s.kvStore.GetRaw(t.ctx, objectCF, headerKey(t.prefix), nil)
	if err == kvstore.ErrNotFound {
		return []byte{}, nil
	}
	if err != nil {
		return nil, errors.Info(err, "get omap header failed")
	}
	return header, nil
}

func (t *txn) MapWriteHeader(data []byte) error {
	if err := t.prepareWrite(); err != nil {
		return err
	}
	t.header = append([]byte{}, data...)
	t.headerDirty = true
	return nil
}

func (t *txn) getNamed(col kvstore.CF, name string) ([]byte, error) {
	value, err := t.s.kvStore.GetRaw(t.ctx, col, namedKey(t.prefix, name), nil)
	if err == kvstore.ErrNotFound {
		return nil, apierrors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Info(err, "get "+col.String()+" failed")
	}
	return value, nil
}

func (t *txn) commit() error {
	if t.readOnly || !t.metaDirty {
		return nil
	}

	kvStore := t.s.kvStore
	batch := kvStore.NewWriteBatch()
	defer batch.Close()

	batch.Put(objectCF, metaKey(t.prefix), t.meta.marshal())
	if t.headerDirty {
		batch.Put(objectCF, headerKey(t.prefix), t.header)
	}
	if t.truncated {
		start := chunkKey(t.prefix, 0)
		batch.DeleteRange(dataCF, start, prefixEnd(t.prefix))
	}
	idxs := make([]uint64, 0, len(t.chunks))
	for idx := range t.chunks {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })
	for _, idx := range idxs {
		batch.Put(dataCF, chunkKey(t.prefix, idx), t.chunks[idx])
	}
	for name, value := range t.xattrs {
		batch.Put(xattrCF, namedKey(t.prefix, name), value)
	}
	for key, value := range t.omap {
		batch.Put(omapCF, namedKey(t.prefix, key), value)
	}

	if err := kvStore.Write(t.ctx, batch, nil); err != nil {
		return errors.Info(err, "write object batch failed")
	}
	return nil
}
