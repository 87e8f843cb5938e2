package client

import (
	"hash/crc32"

	apierrors "github.com/cubefs/zlog/errors"
	"google.golang.org/grpc"
)

// Pool spreads objects over a fixed set of servers. An object always maps
// to the same server for a given address list.
type Pool struct {
	clients []*Client
}

func NewPool(cfg *Config, opts ...grpc.DialOption) (*Pool, error) {
	if len(cfg.Addresses) == 0 {
		return nil, &apierrors.Error{Code: apierrors.CodeInvalidArgument, Msg: "no server address"}
	}
	p := &Pool{clients: make([]*Client, 0, len(cfg.Addresses))}
	for _, addr := range cfg.Addresses {
		tc := cfg.TransportConfig
		c, err := NewClient(addr, &tc, opts...)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.clients = append(p.clients, c)
	}
	return p, nil
}

func (p *Pool) Get(oid string) *Client {
	return p.clients[crc32.ChecksumIEEE([]byte(oid))%uint32(len(p.clients))]
}

func (p *Pool) Close() {
	for _, c := range p.clients {
		c.Close()
	}
}
