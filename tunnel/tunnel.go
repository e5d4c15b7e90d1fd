// Package tunnel carries Telnet sessions across an SSH gateway.  The
// [Tunnel] interface is what the transport layer consumes; [SSHTunnel]
// is the golang.org/x/crypto/ssh implementation behind the -T flag.
package tunnel

import (
	"context"
	"net"
)

// Tunnel is an encrypted path that TCP connections can be forwarded
// through.  Implementations distinguish a deliberate Close (terminal)
// from a dropped link (recoverable with another Connect).
type Tunnel interface {
	// Connect establishes, or re-establishes, the link to the gateway.
	Connect(ctx context.Context) error

	// Dial opens a forwarded connection to address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close tears the tunnel down for good.
	Close() error

	// IsAlive reports whether the gateway link is currently up.
	IsAlive() bool
}

var _ Tunnel = (*SSHTunnel)(nil)
