package client

import (
	"context"

	"github.com/cubefs/zlog/proto"
)

func (c *Client) Seal(ctx context.Context, oid string, epoch uint64) error {
	return c.Call(ctx, oid, proto.ClassZlog, "seal", &proto.SealOp{Epoch: epoch}, nil)
}

func (c *Client) Write(ctx context.Context, oid string, epoch, pos uint64, data []byte) error {
	return c.Call(ctx, oid, proto.ClassZlog, "write", &proto.WriteOp{Epoch: epoch, Position: pos, Data: data}, nil)
}

func (c *Client) Read(ctx context.Context, oid string, epoch, pos uint64) ([]byte, error) {
	var reply proto.ReadReply
	if err := c.Call(ctx, oid, proto.ClassZlog, "read", &proto.ReadOp{Epoch: epoch, Position: pos}, &reply); err != nil {
		return nil, err
	}
	return reply.Data, nil
}

func (c *Client) Fill(ctx context.Context, oid string, epoch, pos uint64) error {
	return c.Call(ctx, oid, proto.ClassZlog, "fill", &proto.FillOp{Epoch: epoch, Position: pos}, nil)
}

func (c *Client) Trim(ctx context.Context, oid string, epoch, pos uint64) error {
	return c.Call(ctx, oid, proto.ClassZlog, "trim", &proto.TrimOp{Epoch: epoch, Position: pos}, nil)
}

func (c *Client) Invalidate(ctx context.Context, oid string, pos uint64, force bool) error {
	return c.Call(ctx, oid, proto.ClassZlog, "invalidate", &proto.InvalidateOp{Position: pos, Force: force}, nil)
}

// MaxPosition returns one past the largest position written to oid, or 0
// when nothing was written.
func (c *Client) MaxPosition(ctx context.Context, oid string, epoch uint64) (uint64, error) {
	var reply proto.MaxPositionReply
	if err := c.Call(ctx, oid, proto.ClassZlog, "max_position", &proto.MaxPositionOp{Epoch: epoch}, &reply); err != nil {
		return 0, err
	}
	return reply.Position, nil
}

func (c *Client) SetProjection(ctx context.Context, oid string, epoch uint64, data []byte) error {
	return c.Call(ctx, oid, proto.ClassZlog, "set_projection", &proto.SetProjectionOp{Epoch: epoch, Data: data}, nil)
}

// GetProjection returns the projection of epoch, or the newest one when
// latest is set.
func (c *Client) GetProjection(ctx context.Context, oid string, epoch uint64, latest bool) (uint64, []byte, error) {
	var reply proto.GetProjectionReply
	if err := c.Call(ctx, oid, proto.ClassZlog, "get_projection", &proto.GetProjectionOp{Epoch: epoch, Latest: latest}, &reply); err != nil {
		return 0, nil, err
	}
	return reply.Epoch, reply.Data, nil
}

func (c *Client) Init(ctx context.Context, oid string, params *proto.StripeParams, objectID uint64) error {
	return c.Call(ctx, oid, proto.ClassZlog, "init", &proto.InitOp{Params: params, ObjectID: objectID}, nil)
}

func (c *Client) Append(ctx context.Context, oid string, data []byte) error {
	return c.Call(ctx, oid, proto.ClassZlogBench, "append", &proto.AppendOp{Data: data}, nil)
}

func (c *Client) AppendInit(ctx context.Context, oid string) error {
	return c.Call(ctx, oid, proto.ClassZlogBench, "append_init", &proto.AppendOp{}, nil)
}

func (c *Client) AppendCheckEpoch(ctx context.Context, oid string, epoch uint64, data []byte) error {
	return c.Call(ctx, oid, proto.ClassZlogBench, "append_check_epoch", &proto.AppendOp{Epoch: epoch, Data: data}, nil)
}

func (c *Client) Probe(ctx context.Context, oid string, ops []uint32, pos uint64, data []byte) error {
	return c.Call(ctx, oid, proto.ClassPhyDesign, "zlog", &proto.ProbeOp{Ops: ops, Position: pos, Data: data}, nil)
}
