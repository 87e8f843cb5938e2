package client

import (
	"context"
	"time"

	"github.com/cubefs/cubefs/blobstore/util/errors"
	apierrors "github.com/cubefs/zlog/errors"
	"github.com/cubefs/zlog/proto"
	"google.golang.org/grpc"
)

type (
	Config struct {
		Addresses       []string        `json:"addresses"`
		TransportConfig TransportConfig `json:"transport"`
	}
	TransportConfig struct {
		MaxTimeoutMs       uint32 `json:"max_timeout_ms"`
		ConnectTimeoutMs   uint32 `json:"connect_timeout_ms"`
		KeepaliveTimeoutS  uint32 `json:"keepalive_timeout_s"`
		BackoffBaseDelayMs uint32 `json:"backoff_base_delay_ms"`
		BackoffMaxDelayMs  uint32 `json:"backoff_max_delay_ms"`
	}

	// Client calls object class methods on one zlog server.
	Client struct {
		proto.ObjectClassClient
		conn    *grpc.ClientConn
		timeout time.Duration
	}
)

func NewClient(address string, tc *TransportConfig, opts ...grpc.DialOption) (*Client, error) {
	if address == "" {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "server address can't be nil"}
	}
	if tc == nil {
		tc = &TransportConfig{}
	}
	dialOpts := append(generateDialOpts(tc), opts...)

	conn, err := grpc.Dial(address, dialOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{
		ObjectClassClient: proto.NewObjectClassClient(conn),
		conn:              conn,
		timeout:           time.Duration(tc.MaxTimeoutMs) * time.Millisecond,
	}, nil
}

func (c *Client) Address() string {
	return c.conn.Target()
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// Call runs class.method against object oid. A non zero reply code comes
// back as the matching zlog error, out is decoded only on success and may
// be nil when the method has no output.
func (c *Client) Call(ctx context.Context, oid, class, method string, in, out proto.Message) error {
	input, err := in.Marshal()
	if err != nil {
		return err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reply, err := c.Exec(ctx, &proto.ExecRequest{Oid: oid, Class: class, Method: method, Input: input})
	if err != nil {
		return errors.Info(err, "exec", class, method, "on", oid)
	}
	if err = apierrors.FromCode(apierrors.Code(reply.Code), reply.Message); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return out.Unmarshal(reply.Output)
}
