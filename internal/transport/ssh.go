package transport

import (
	"context"
	"fmt"
	"net"
	"sync"

	ncerr "gotelnet/internal/errors"
	"gotelnet/tunnel"
	"gotelnet/util"
)

// SSHDialer is a Dialer that reaches the target through an SSH
// gateway.  Nothing touches the network until the first Dial call, so
// constructing one is free even when the gateway is down.
type SSHDialer struct {
	gw      *tunnel.SSHTunnel
	gateway string
	log     *util.Logger

	mu sync.Mutex
	up bool
}

// NewSSHDialer wraps an SSH tunnel in the Dialer interface.
func NewSSHDialer(cfg *tunnel.SSHConfig, logger *util.Logger) *SSHDialer {
	return &SSHDialer{
		gw:      tunnel.NewSSHTunnel(cfg, logger),
		gateway: fmt.Sprintf("%s@%s:%d", cfg.User, cfg.Host, cfg.Port),
		log:     logger,
	}
}

// ensure brings the gateway link up exactly once; callers after the
// first get the cached link.
func (d *SSHDialer) ensure(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.up {
		return nil
	}
	d.log.Verbose("opening SSH tunnel via %s", d.gateway)
	if err := d.gw.Connect(ctx); err != nil {
		return fmt.Errorf("tunnel: %w", err)
	}
	d.up = true
	return nil
}

func (d *SSHDialer) markDown() {
	d.mu.Lock()
	d.up = false
	d.mu.Unlock()
}

// Dial opens a connection to address, forwarded through the gateway.
// A gateway link that dropped on its own since the previous dial is
// rebuilt once before giving up, so client reconnects survive a
// bounced SSH server.
func (d *SSHDialer) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}

	conn, err := d.gw.Dial(ctx, network, address)
	if !ncerr.Is(err, ncerr.ErrNotConnected) {
		return conn, err
	}

	// Dropped gateway link.  A deliberate Close is left alone.
	d.log.Verbose("SSH tunnel lost, rebuilding")
	d.markDown()
	if err := d.ensure(ctx); err != nil {
		return nil, err
	}
	return d.gw.Dial(ctx, network, address)
}

// Close tears down the gateway link.  Safe to call more than once.
func (d *SSHDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.up {
		return nil
	}
	d.up = false
	return d.gw.Close()
}
