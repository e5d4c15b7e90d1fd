package transport

import (
	"context"
	"net"
	"time"
)

// TCPDialer dials destinations directly.
type TCPDialer struct {
	// Timeout bounds connection establishment; zero means the
	// operating system default.
	Timeout time.Duration
}

func (d *TCPDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	return dialer.DialContext(ctx, network, address)
}

// Close is a no-op; plain TCP dialers hold no state.
func (d *TCPDialer) Close() error { return nil }
