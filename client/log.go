package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cubefs/cubefs/blobstore/common/trace"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/layout"
	"github.com/cubefs/zlog/proto"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const defaultFanout = 16

type LogConfig struct {
	Name   string        `json:"name"`
	Params layout.Params `json:"params"`
	// Striped must match the server strategy. Striped objects are
	// initialized with their layout before first use.
	Striped bool `json:"striped"`
	Fanout  int  `json:"fanout"`
}

// Log maps log positions onto objects named "<name>.<object no>" and runs
// the per object methods on them. Positions are striped over objects with
// Params for every server strategy, the projection history lives in the
// "<name>.head" object.
type Log struct {
	pool *Pool
	cfg  LogConfig

	initialized sync.Map
	initGroup   singleflight.Group
}

func OpenLog(pool *Pool, cfg LogConfig) (*Log, error) {
	if cfg.Name == "" {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "empty log name"}
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Fanout <= 0 {
		cfg.Fanout = defaultFanout
	}
	return &Log{pool: pool, cfg: cfg}, nil
}

func (l *Log) ObjectName(objectNo uint64) string {
	return fmt.Sprintf("%s.%d", l.cfg.Name, objectNo)
}

func (l *Log) headName() string {
	return l.cfg.Name + ".head"
}

func (l *Log) Write(ctx context.Context, epoch, pos uint64, data []byte) error {
	return l.mutate(ctx, pos, func(c *Client, oid string) error {
		return c.Write(ctx, oid, epoch, pos, data)
	})
}

func (l *Log) Read(ctx context.Context, epoch, pos uint64) ([]byte, error) {
	oid := l.ObjectName(l.cfg.Params.Locate(pos).ObjectNo)
	return l.pool.Get(oid).Read(ctx, oid, epoch, pos)
}

func (l *Log) Fill(ctx context.Context, epoch, pos uint64) error {
	return l.mutate(ctx, pos, func(c *Client, oid string) error {
		return c.Fill(ctx, oid, epoch, pos)
	})
}

func (l *Log) Trim(ctx context.Context, epoch, pos uint64) error {
	return l.mutate(ctx, pos, func(c *Client, oid string) error {
		return c.Trim(ctx, oid, epoch, pos)
	})
}

func (l *Log) Invalidate(ctx context.Context, pos uint64, force bool) error {
	return l.mutate(ctx, pos, func(c *Client, oid string) error {
		return c.Invalidate(ctx, oid, pos, force)
	})
}

// Seal seals every object of the first objectSets object sets with epoch.
func (l *Log) Seal(ctx context.Context, epoch, objectSets uint64) error {
	return l.forEachObject(ctx, objectSets, func(ctx context.Context, objectNo uint64) error {
		oid := l.ObjectName(objectNo)
		c := l.pool.Get(oid)
		if err := l.ensureInit(ctx, c, oid, objectNo); err != nil {
			return err
		}
		return c.Seal(ctx, oid, epoch)
	})
}

// MaxPosition returns one past the largest position written to the first
// objectSets object sets. Every object must have been sealed with epoch.
func (l *Log) MaxPosition(ctx context.Context, epoch, objectSets uint64) (uint64, error) {
	var (
		lock   sync.Mutex
		maxPos uint64
	)
	err := l.forEachObject(ctx, objectSets, func(ctx context.Context, objectNo uint64) error {
		oid := l.ObjectName(objectNo)
		pos, err := l.pool.Get(oid).MaxPosition(ctx, oid, epoch)
		if err != nil {
			return err
		}
		lock.Lock()
		if pos > maxPos {
			maxPos = pos
		}
		lock.Unlock()
		return nil
	})
	return maxPos, err
}

func (l *Log) SetProjection(ctx context.Context, epoch uint64, data []byte) error {
	oid := l.headName()
	return l.pool.Get(oid).SetProjection(ctx, oid, epoch, data)
}

func (l *Log) GetProjection(ctx context.Context, epoch uint64, latest bool) (uint64, []byte, error) {
	oid := l.headName()
	return l.pool.Get(oid).GetProjection(ctx, oid, epoch, latest)
}

func (l *Log) forEachObject(ctx context.Context, objectSets uint64, fn func(ctx context.Context, objectNo uint64) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(l.cfg.Fanout)
	objects := objectSets * uint64(l.cfg.Params.StripeWidth)
	for no := uint64(0); no < objects; no++ {
		objectNo := no
		g.Go(func() error {
			return fn(ctx, objectNo)
		})
	}
	return g.Wait()
}

// mutate runs fn on the object holding pos. A striped object that does not
// exist yet is initialized and fn is retried once.
func (l *Log) mutate(ctx context.Context, pos uint64, fn func(c *Client, oid string) error) error {
	objectNo := l.cfg.Params.Locate(pos).ObjectNo
	oid := l.ObjectName(objectNo)
	c := l.pool.Get(oid)

	err := fn(c, oid)
	if !l.cfg.Striped || !errors.Is(err, apierrors.ErrNotFound) {
		return err
	}
	trace.SpanFromContextSafe(ctx).Debugf("init striped object %s for position %d", oid, pos)
	if err = l.ensureInit(ctx, c, oid, objectNo); err != nil {
		return err
	}
	return fn(c, oid)
}

func (l *Log) ensureInit(ctx context.Context, c *Client, oid string, objectNo uint64) error {
	if !l.cfg.Striped {
		return nil
	}
	if _, ok := l.initialized.Load(oid); ok {
		return nil
	}
	_, err, _ := l.initGroup.Do(oid, func() (interface{}, error) {
		p := l.cfg.Params
		params := &proto.StripeParams{EntrySize: p.EntrySize, StripeWidth: p.StripeWidth, EntriesPerObject: p.EntriesPerObject}
		if err := c.Init(ctx, oid, params, objectNo); err != nil {
			return nil, err
		}
		l.initialized.Store(oid, struct{}{})
		return nil, nil
	})
	return err
}
