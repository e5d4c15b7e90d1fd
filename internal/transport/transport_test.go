package transport

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"gotelnet/tunnel"
	"gotelnet/util"
)

func echoListener(t *testing.T) net.Addr {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				io.Copy(c, c) //nolint:errcheck
			}(conn)
		}
	}()
	return ln.Addr()
}

// TestTCPDialer_RoundTrip dials a live listener and pushes bytes both
// ways through the returned conn.
func TestTCPDialer_RoundTrip(t *testing.T) {
	addr := echoListener(t)

	d := &TCPDialer{Timeout: 2 * time.Second}
	conn, err := d.Dial(context.Background(), "tcp", addr.String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping" {
		t.Errorf("echoed %q, want %q", buf, "ping")
	}
}

// TestTCPDialer_HonoursContext verifies a dead context aborts the dial
// before the network gets a say.
func TestTCPDialer_HonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &TCPDialer{Timeout: 5 * time.Second}
	if _, err := d.Dial(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

// TestTCPDialer_CloseIsStateless verifies Close needs no prior Dial.
func TestTCPDialer_CloseIsStateless(t *testing.T) {
	if err := (&TCPDialer{}).Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

// TestSSHDialer_LazyConnect verifies that constructing the dialer does
// not touch the network; the tunnel comes up on first Dial.
func TestSSHDialer_LazyConnect(t *testing.T) {
	d := NewSSHDialer(&tunnel.SSHConfig{
		User: "nobody",
		Host: "ssh.invalid",
		Port: 22,
	}, util.NewLogger(0))

	// Close before any Dial: nothing to tear down.
	if err := d.Close(); err != nil {
		t.Fatalf("Close before Dial: %v", err)
	}
}

// TestSSHDialer_DeadGateway verifies that Dial fails when the gateway
// is unreachable, whichever stage (auth setup or TCP dial) trips first.
func TestSSHDialer_DeadGateway(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	d := NewSSHDialer(&tunnel.SSHConfig{
		User:        "nobody",
		Host:        "127.0.0.1",
		Port:        port,
		ConnTimeout: 2 * time.Second,
	}, util.NewLogger(0))
	defer d.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := d.Dial(ctx, "tcp", "example.com:23"); err == nil {
		t.Fatal("Dial through dead gateway succeeded")
	}
}
