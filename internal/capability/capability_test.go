package capability

import (
	"bytes"
	"context"
	"io"
	"net"
	"testing"
	"time"

	"gotelnet/internal/session"
	"gotelnet/util"
)

// echoConn dials a throwaway echo server and returns the client side.
// The server echoes until the peer half-closes, then hangs up.
func echoConn(t *testing.T) net.Conn {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		io.Copy(conn, conn) //nolint:errcheck
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	return conn
}

// relayOnce pushes in through a Relay session against an echo server
// and returns whatever came back out.
func relayOnce(t *testing.T, in []byte) []byte {
	t.Helper()
	conn := echoConn(t)

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sess := session.New(conn, bytes.NewReader(in), &out, util.NewLogger(0))
	if err := (&Relay{}).Handle(ctx, sess); err != nil {
		t.Fatalf("Relay.Handle: %v", err)
	}
	return out.Bytes()
}

func TestRelay_RoundTrip(t *testing.T) {
	got := relayOnce(t, []byte("hello relay\n"))
	if string(got) != "hello relay\n" {
		t.Errorf("output = %q, want %q", got, "hello relay\n")
	}
}

// Raw mode performs no telnet interpretation: IAC bytes travel both
// directions untouched.
func TestRelay_LeavesProtocolBytesAlone(t *testing.T) {
	raw := []byte{0xFF, 0xFB, 0x01, 'd', 'a', 't', 'a', 0xFF, 0xFF}
	if got := relayOnce(t, raw); !bytes.Equal(got, raw) {
		t.Errorf("output = % X, want % X", got, raw)
	}
}
