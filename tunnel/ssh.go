package tunnel

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	ncerr "gotelnet/internal/errors"
	"gotelnet/util"
)

// SSHConfig describes the SSH gateway and how to authenticate to it.
type SSHConfig struct {
	User          string
	Host          string
	Port          int
	KeyPath       string        // explicit private key, highest priority
	PromptPass    bool          // ask for a password on the terminal
	UseAgent      bool          // try the SSH agent
	StrictHostKey bool          // verify the gateway against known_hosts
	KnownHosts    string        // custom known_hosts path, "" for the default
	ConnTimeout   time.Duration // TCP+handshake budget, default 30s
	KeepAlive     time.Duration // keepalive probe interval, 0 disables
}

// SSHTunnel implements [Tunnel] over a single SSH client connection,
// forwarding streams with ssh.Client.Dial.
type SSHTunnel struct {
	config *SSHConfig
	logger *util.Logger

	mu     sync.RWMutex
	client *ssh.Client
	alive  bool
	closed bool // deliberately shut, as opposed to a dropped link
}

// NewSSHTunnel fills in config defaults and returns a tunnel; nothing
// touches the network until Connect.
func NewSSHTunnel(cfg *SSHConfig, logger *util.Logger) *SSHTunnel {
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.ConnTimeout == 0 {
		cfg.ConnTimeout = 30 * time.Second
	}
	return &SSHTunnel{config: cfg, logger: logger}
}

// clientConfig assembles auth methods and host key policy.
func (t *SSHTunnel) clientConfig() (*ssh.ClientConfig, error) {
	auth, err := BuildAuthMethods(t.config)
	if err != nil {
		return nil, ncerr.WrapSSH("auth", t.config.Host, t.config.Port, err)
	}
	hostKeys, err := hostKeyCallback(t.config)
	if err != nil {
		return nil, ncerr.WrapSSH("hostkey", t.config.Host, t.config.Port, err)
	}
	return &ssh.ClientConfig{
		User:            t.config.User,
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         t.config.ConnTimeout,
	}, nil
}

// Connect dials the SSH gateway and completes the handshake.  It may
// be called again after the link drops.
func (t *SSHTunnel) Connect(ctx context.Context) error {
	sshCfg, err := t.clientConfig()
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	t.logger.Debug("SSH: dialing %s as %s", addr, t.config.User)

	// Dial the TCP leg ourselves so the context can cancel it.
	var dialer net.Dialer
	tcpConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return ncerr.Wrap("dial", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(tcpConn, addr, sshCfg)
	if err != nil {
		tcpConn.Close()
		return ncerr.WrapSSH("handshake", t.config.Host, t.config.Port, classifyHandshake(err))
	}
	client := ssh.NewClient(sshConn, chans, reqs)

	t.mu.Lock()
	t.client = client
	t.alive = true
	t.closed = false
	t.mu.Unlock()

	go t.watch(client)

	return nil
}

// Dial forwards a connection through the tunnel.  After Close it
// returns ErrTunnelClosed; if the gateway link dropped on its own it
// returns ErrNotConnected, and a fresh Connect may revive it.
func (t *SSHTunnel) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	t.mu.RLock()
	client := t.client
	alive := t.alive
	closed := t.closed
	t.mu.RUnlock()

	if closed {
		return nil, ncerr.ErrTunnelClosed
	}
	if !alive || client == nil {
		return nil, ncerr.ErrNotConnected
	}

	t.logger.Debug("tunnel: forwarding %s to %s", network, address)
	conn, err := client.Dial(network, address)
	if err != nil {
		return nil, fmt.Errorf("forward to %s: %w", address, err)
	}
	return conn, nil
}

// Close shuts down the SSH connection for good.
func (t *SSHTunnel) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.alive = false
	t.closed = true
	if t.client != nil {
		err := t.client.Close()
		t.client = nil
		return err
	}
	return nil
}

// IsAlive reports whether the gateway link is currently up.
func (t *SSHTunnel) IsAlive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.alive
}

// watch runs for the lifetime of one SSH client: it keeps the link
// probed and flips the alive flag the moment the connection dies.
func (t *SSHTunnel) watch(client *ssh.Client) {
	done := make(chan struct{})
	go t.keepalive(client, done)

	err := client.Wait()
	close(done)

	t.mu.Lock()
	// A reconnect may already have installed a newer client; only the
	// current one gets to declare the tunnel down.
	if t.client == client {
		t.alive = false
	}
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("gateway link shut down: %v", err)
	} else {
		t.logger.Debug("gateway link shut down")
	}
}

// keepalive probes the gateway at the configured interval.  A failed
// probe closes the client, which wakes watch and marks the tunnel
// down instead of leaving dials to time out one by one.
func (t *SSHTunnel) keepalive(client *ssh.Client, done <-chan struct{}) {
	if t.config.KeepAlive <= 0 {
		return
	}
	ticker := time.NewTicker(t.config.KeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if _, _, err := client.SendRequest("keepalive@openssh.com", true, nil); err != nil {
				t.logger.Warn("SSH keepalive lost: %v", err)
				client.Close()
				return
			}
			t.logger.Debug("SSH keepalive OK")
		}
	}
}
