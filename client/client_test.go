package client

import (
	"context"
	"net"
	"testing"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	"github.com/cubefs/zlog/common/kvstore"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/layout"
	"github.com/cubefs/zlog/proto"
	"github.com/cubefs/zlog/server"
	"github.com/cubefs/zlog/store"
	"github.com/cubefs/zlog/zlog"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, strategy zlog.Strategy) grpc.DialOption {
	s, err := server.NewServer(context.Background(), &server.Config{
		StoreConfig: store.Config{KVType: kvstore.MemoryKVType},
		ZlogConfig:  zlog.Config{Strategy: strategy},
	})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	rs := server.NewRPCServer(s)
	rs.ServeListener(lis)
	t.Cleanup(func() {
		rs.Stop()
		s.Close()
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

func newTestPool(t *testing.T, strategy zlog.Strategy) *Pool {
	dialer := startServer(t, strategy)
	p, err := NewPool(&Config{Addresses: []string{"bufnet"}}, dialer)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestNewClient(t *testing.T) {
	_, err := NewClient("", nil)
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	_, err = NewPool(&Config{})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)
}

func TestClientCall(t *testing.T) {
	_, ctx := trace.StartSpanFromContext(context.Background(), "")
	c := newTestPool(t, zlog.StrategyOmap).Get("obj")

	require.NoError(t, c.Seal(ctx, "obj", 2))
	require.ErrorIs(t, c.Seal(ctx, "obj", 2), apierrors.ErrInvalidEpoch)
	require.NoError(t, c.Write(ctx, "obj", 3, 0, []byte("a")))
	require.ErrorIs(t, c.Write(ctx, "obj", 3, 0, []byte("b")), apierrors.ErrReadOnly)
	require.ErrorIs(t, c.Write(ctx, "obj", 2, 1, []byte("b")), apierrors.ErrStaleEpoch)

	data, err := c.Read(ctx, "obj", 3, 0)
	require.NoError(t, err)
	require.Equal(t, []byte("a"), data)
	_, err = c.Read(ctx, "obj", 3, 1)
	require.ErrorIs(t, err, apierrors.ErrNotWritten)
	_, err = c.Read(ctx, "none", 3, 0)
	require.ErrorIs(t, err, apierrors.ErrNotWritten)

	require.NoError(t, c.Fill(ctx, "obj", 3, 1))
	require.NoError(t, c.Trim(ctx, "obj", 3, 0))
	_, err = c.Read(ctx, "obj", 3, 0)
	require.ErrorIs(t, err, apierrors.ErrInvalidated)
	require.NoError(t, c.Invalidate(ctx, "obj", 5, true))

	pos, err := c.MaxPosition(ctx, "obj", 2)
	require.NoError(t, err)
	require.Equal(t, uint64(6), pos)
	_, err = c.MaxPosition(ctx, "obj", 3)
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)

	err = c.Call(ctx, "obj", "lock", "lock", &proto.SealOp{}, nil)
	require.ErrorIs(t, err, apierrors.ErrNotSupported)
}

func TestClientBenchAndProbe(t *testing.T) {
	ctx := context.Background()
	c := newTestPool(t, zlog.StrategyOmap).Get("bench")

	require.NoError(t, c.AppendInit(ctx, "bench"))
	require.ErrorIs(t, c.AppendInit(ctx, "bench"), apierrors.ErrIO)
	require.NoError(t, c.Append(ctx, "bench", []byte("x")))
	require.NoError(t, c.AppendCheckEpoch(ctx, "bench", 11, []byte("y")))
	require.ErrorIs(t, c.AppendCheckEpoch(ctx, "bench", 10, []byte("z")), apierrors.ErrInvalidArgument)

	require.NoError(t, c.Probe(ctx, "phy", []uint32{1, 2, 4, 8, 7, 9}, 3, []byte("entry")))
	require.ErrorIs(t, c.Probe(ctx, "phy", []uint32{100}, 0, nil), apierrors.ErrInvalidArgument)
}

func TestLogStriped(t *testing.T) {
	ctx := context.Background()
	pool := newTestPool(t, zlog.StrategyStriped)
	params := layout.Params{EntrySize: 16, StripeWidth: 3, EntriesPerObject: 2}
	l, err := OpenLog(pool, LogConfig{Name: "log", Params: params, Striped: true})
	require.NoError(t, err)

	require.NoError(t, l.Seal(ctx, 1, 2))
	for pos := uint64(0); pos < 12; pos++ {
		require.NoError(t, l.Write(ctx, 2, pos, []byte{byte(pos)}))
	}
	for pos := uint64(0); pos < 12; pos++ {
		data, err := l.Read(ctx, 2, pos)
		require.NoError(t, err)
		require.Len(t, data, int(params.EntrySize))
		require.Equal(t, byte(pos), data[0])
	}

	maxPos, err := l.MaxPosition(ctx, 1, 2)
	require.NoError(t, err)
	require.Equal(t, uint64(12), maxPos)

	// position 12 opens object set 2, its objects are created on demand
	require.NoError(t, l.Write(ctx, 2, 12, []byte("late")))
	data, err := l.Read(ctx, 2, 12)
	require.NoError(t, err)
	require.Equal(t, []byte("late"), data[:4])

	_, err = l.Read(ctx, 2, 13)
	require.ErrorIs(t, err, apierrors.ErrNotFound)
	require.NoError(t, l.Fill(ctx, 2, 13))
	_, err = l.Read(ctx, 2, 13)
	require.ErrorIs(t, err, apierrors.ErrInvalidated)

	require.NoError(t, l.Trim(ctx, 2, 0))
	_, err = l.Read(ctx, 2, 0)
	require.ErrorIs(t, err, apierrors.ErrInvalidated)
	require.ErrorIs(t, l.Write(ctx, 1, 3, []byte("old")), apierrors.ErrStaleEpoch)
}

func TestLogIndexed(t *testing.T) {
	ctx := context.Background()
	for _, strategy := range []zlog.Strategy{zlog.StrategyOmap, zlog.StrategyHybrid} {
		pool := newTestPool(t, strategy)
		l, err := OpenLog(pool, LogConfig{Name: "log", Params: layout.Params{EntrySize: 1, StripeWidth: 4, EntriesPerObject: 8}})
		require.NoError(t, err)

		require.NoError(t, l.Seal(ctx, 5, 1))
		require.NoError(t, l.Write(ctx, 6, 0, []byte("zero")))
		require.NoError(t, l.Write(ctx, 6, 9, []byte("nine")))
		data, err := l.Read(ctx, 6, 9)
		require.NoError(t, err)
		require.Equal(t, []byte("nine"), data)
		require.ErrorIs(t, l.Fill(ctx, 6, 9), apierrors.ErrReadOnly)
		require.NoError(t, l.Invalidate(ctx, 9, true))
		_, err = l.Read(ctx, 6, 9)
		require.ErrorIs(t, err, apierrors.ErrInvalidated)

		maxPos, err := l.MaxPosition(ctx, 5, 1)
		require.NoError(t, err)
		require.Equal(t, uint64(10), maxPos, strategy)
	}
}

func TestLogProjection(t *testing.T) {
	ctx := context.Background()
	l, err := OpenLog(newTestPool(t, zlog.StrategyOmap), LogConfig{Name: "log", Params: layout.Params{EntrySize: 1, StripeWidth: 1, EntriesPerObject: 1}})
	require.NoError(t, err)

	require.NoError(t, l.SetProjection(ctx, 0, []byte("p0")))
	require.ErrorIs(t, l.SetProjection(ctx, 2, []byte("p2")), apierrors.ErrInvalidArgument)
	require.NoError(t, l.SetProjection(ctx, 1, []byte("p1")))

	epoch, data, err := l.GetProjection(ctx, 0, true)
	require.NoError(t, err)
	require.Equal(t, uint64(1), epoch)
	require.Equal(t, []byte("p1"), data)
	_, data, err = l.GetProjection(ctx, 0, false)
	require.NoError(t, err)
	require.Equal(t, []byte("p0"), data)

	_, err = OpenLog(nil, LogConfig{Params: layout.Params{EntrySize: 1, StripeWidth: 1, EntriesPerObject: 1}})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)
	_, err = OpenLog(nil, LogConfig{Name: "log"})
	require.ErrorIs(t, err, apierrors.ErrInvalidArgument)
}
