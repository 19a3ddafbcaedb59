package syncmode

import (
	"context"
	"net"
	"time"
)

// Probe is a point-in-time reachability check of the remote store.
type Probe interface {
	Reachable(ctx context.Context) bool
}

type ProbeFunc func(ctx context.Context) bool

func (f ProbeFunc) Reachable(ctx context.Context) bool { return f(ctx) }

// NetProbe dials Addr over TCP.
type NetProbe struct {
	Addr    string
	Timeout time.Duration
}

func (p NetProbe) Reachable(ctx context.Context) bool {
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
