package objclass

import (
	"context"
	"errors"
	"testing"

	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/store"
	"github.com/stretchr/testify/require"
)

func nop(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
	return in, nil
}

func TestRegistry(t *testing.T) {
	c := NewClass("test").
		Register("get", FlagRD, nop).
		Register("put", FlagRDWR, nop)
	require.Equal(t, []string{"get", "put"}, c.Methods())
	require.Panics(t, func() { c.Register("get", FlagRD, nop) })

	r := NewRegistry()
	require.NoError(t, r.Add(c))
	require.True(t, errors.Is(r.Add(NewClass("test")), apierrors.ErrAlreadyExists))
	require.Equal(t, []string{"test"}, r.Classes())

	m, err := r.Lookup("test", "get")
	require.NoError(t, err)
	require.False(t, m.Writes())
	m, err = r.Lookup("test", "put")
	require.NoError(t, err)
	require.True(t, m.Writes())

	_, err = r.Lookup("nope", "get")
	require.Equal(t, apierrors.CodeNotSupported, apierrors.CodeOf(err))
	_, err = r.Lookup("test", "nope")
	require.Equal(t, apierrors.ErrUnknownMethod, err)
}

func newMemStore(t *testing.T) *store.Store {
	s, err := store.NewStore(context.Background(), &store.Config{KVType: kvstore.MemoryKVType})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	s := newMemStore(t)

	put := func(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
		return nil, obj.MapSetVal("k", in)
	}
	get := func(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
		return obj.MapGetVal("k")
	}
	fail := func(ctx context.Context, obj store.Object, in []byte) ([]byte, error) {
		if err := obj.MapSetVal("k", []byte("lost")); err != nil {
			return nil, err
		}
		return []byte("ignored"), apierrors.ErrReadOnly
	}
	c := NewClass("kv").
		Register("put", FlagRDWR, put).
		Register("get", FlagRD, get).
		Register("fail", FlagWR, fail).
		Register("sneak", FlagRD, put)

	method := func(name string) *Method {
		m, ok := c.Method(name)
		require.True(t, ok)
		return m
	}

	_, err := method("get").Call(ctx, s, "obj", nil)
	require.Equal(t, apierrors.ErrNotFound, err)

	_, err = method("put").Call(ctx, s, "obj", []byte("v1"))
	require.NoError(t, err)
	out, err := method("get").Call(ctx, s, "obj", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), out)

	out, err = method("fail").Call(ctx, s, "obj", nil)
	require.Equal(t, apierrors.ErrReadOnly, err)
	require.Nil(t, out)
	out, err = method("get").Call(ctx, s, "obj", nil)
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), out)

	// read only methods cannot mutate
	_, err = method("sneak").Call(ctx, s, "obj", []byte("v2"))
	require.Error(t, err)
}

func TestFlagString(t *testing.T) {
	require.Equal(t, "rd", FlagRD.String())
	require.Equal(t, "wr", FlagWR.String())
	require.Equal(t, "rdwr", FlagRDWR.String())
	require.Equal(t, "none", Flag(0).String())
}
