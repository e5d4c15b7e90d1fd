package core

import (
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"gotelnet/internal/capability"
	"gotelnet/internal/metrics"
	"gotelnet/internal/session"
	sh "gotelnet/internal/shell"
	"gotelnet/util"
)

// serverFixture is a running ListenMode with the full shell stack.
type serverFixture struct {
	mode   *ListenMode
	addr   string
	cancel context.CancelFunc
	errc   chan error
}

func startServer(t *testing.T, maxPerIP int) *serverFixture {
	t.Helper()

	port, err := util.FindFreePort()
	if err != nil {
		t.Fatal(err)
	}

	registry := session.NewRegistry()
	collector := metrics.New()
	mode := &ListenMode{
		Address: fmt.Sprintf("127.0.0.1:%d", port),
		Capability: &capability.Shell{
			Dispatcher: sh.NewDispatcher(registry, collector, false),
			Metrics:    collector,
			Banner:     "core-test",
			Prompt:     "> ",
		},
		Registry:         registry,
		Metrics:          collector,
		Logger:           util.NewLogger(0),
		MaxPerIP:         maxPerIP,
		GracePeriod:      2 * time.Second,
		AcceptRetryDelay: 10 * time.Millisecond,
		AcceptRetryMax:   100 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	f := &serverFixture{
		mode:   mode,
		addr:   fmt.Sprintf("127.0.0.1:%d", port),
		cancel: cancel,
		errc:   make(chan error, 1),
	}
	go func() { f.errc <- mode.Run(ctx) }()

	// Give the server a moment to start listening.
	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		select {
		case <-f.errc:
		case <-time.After(3 * time.Second):
		}
	})
	return f
}

func (f *serverFixture) dial(t *testing.T) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", f.addr, 2*time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// expect reads from conn until want appears or the deadline hits.
func expect(t *testing.T, conn net.Conn, want string) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck

	var got []byte
	tmp := make([]byte, 512)
	for !strings.Contains(string(got), want) {
		n, err := conn.Read(tmp)
		got = append(got, tmp[:n]...)
		if err != nil {
			t.Fatalf("waiting for %q, got %q: %v", want, got, err)
		}
	}
	return string(got)
}

// TestListenMode_ServesShellSession verifies the full server path:
// accept, greet, dispatch a command, quit.
func TestListenMode_ServesShellSession(t *testing.T) {
	f := startServer(t, 0)
	conn := f.dial(t)

	greeting := expect(t, conn, "> ")
	if !strings.Contains(greeting, "core-test") {
		t.Errorf("missing banner in %q", greeting)
	}

	conn.Write([]byte("echo end-to-end\r\n")) //nolint:errcheck
	expect(t, conn, "end-to-end")

	conn.Write([]byte("quit\r\n")) //nolint:errcheck
	expect(t, conn, "bye.")

	deadline := time.Now().Add(2 * time.Second)
	for f.mode.Registry.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := f.mode.Registry.Len(); got != 0 {
		t.Errorf("registry = %d after quit, want 0", got)
	}
	if got := f.mode.Metrics.TotalSessions(); got != 1 {
		t.Errorf("total sessions = %d, want 1", got)
	}
}

// TestListenMode_GracefulShutdown verifies cancellation closes live
// sessions and Run returns cleanly within the grace period.
func TestListenMode_GracefulShutdown(t *testing.T) {
	f := startServer(t, 0)

	connA := f.dial(t)
	expect(t, connA, "> ")
	connB := f.dial(t)
	expect(t, connB, "> ")

	if got := f.mode.Registry.Len(); got != 2 {
		t.Fatalf("registry = %d, want 2", got)
	}

	f.cancel()

	select {
	case err := <-f.errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	if got := f.mode.Registry.Len(); got != 0 {
		t.Errorf("registry = %d after shutdown, want 0", got)
	}

	// Clients observe the closure.
	connA.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	buf := make([]byte, 256)
	for {
		if _, err := connA.Read(buf); err != nil {
			break
		}
	}
}

// TestListenMode_PerIPLimit verifies the connection cap per source
// address turns extra connections away without hurting live ones.
func TestListenMode_PerIPLimit(t *testing.T) {
	f := startServer(t, 1)

	first := f.dial(t)
	expect(t, first, "> ")

	second := f.dial(t)
	refusal := expect(t, second, "too many connections")
	if strings.Contains(refusal, "> ") {
		t.Errorf("refused connection saw a prompt: %q", refusal)
	}

	// The refused socket closes; the first session keeps working.
	second.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck
	buf := make([]byte, 64)
	for {
		if _, err := second.Read(buf); err != nil {
			break
		}
	}

	first.Write([]byte("echo still-here\r\n")) //nolint:errcheck
	expect(t, first, "still-here")

	if got := f.mode.Registry.Len(); got != 1 {
		t.Errorf("registry = %d, want 1", got)
	}
}

// TestListenMode_AddressInUse verifies a hard listen failure surfaces
// instead of retrying forever.
func TestListenMode_AddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	mode := &ListenMode{
		Address:    ln.Addr().String(),
		Capability: &capability.Relay{},
		Registry:   session.NewRegistry(),
		Metrics:    metrics.New(),
		Logger:     util.NewLogger(0),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := mode.Run(ctx); err == nil {
		t.Fatal("expected an error for an address already in use")
	}
}
