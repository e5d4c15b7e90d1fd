// Package session represents a single connection lifecycle, binding a
// network connection with I/O endpoints, per-connection protocol state,
// and shared context.
//
// Sessions decouple capabilities from concrete I/O sources: a
// capability doesn't need to know whether it's reading from os.Stdin
// or a test buffer, it just uses the session's Reader/Writer.  Each
// session is mutated only by the handler that owns it; the registry
// tracks existence, nothing more.
package session

import (
	"io"
	"net"
	"time"

	"go.uber.org/atomic"

	ncerr "gotelnet/internal/errors"
	"gotelnet/telnet"
	"gotelnet/util"
)

// Session encapsulates the runtime context for a single connection:
// the socket, the local I/O pair, and the Telnet protocol state that
// accumulates over the connection's life.  Capabilities operate on
// sessions rather than raw connections, enabling clean testing and
// I/O abstraction.
type Session struct {
	ID     uint64 // assigned by the registry; 0 until Add
	Conn   net.Conn
	Stdin  io.Reader
	Stdout io.Writer
	Logger *util.Logger

	StartedAt  time.Time
	Negotiator *telnet.Negotiator
	Assembler  *telnet.Assembler

	closed   atomic.Bool
	bytesIn  atomic.Int64
	bytesOut atomic.Int64
	lines    atomic.Int64
}

// New creates a Session bound to the given connection and I/O pair.
func New(conn net.Conn, stdin io.Reader, stdout io.Writer, logger *util.Logger) *Session {
	return &Session{
		Conn:       conn,
		Stdin:      stdin,
		Stdout:     stdout,
		Logger:     logger,
		StartedAt:  time.Now(),
		Negotiator: telnet.NewNegotiator(),
		Assembler:  &telnet.Assembler{},
	}
}

// RemoteAddr returns the peer's address, or "" without a connection.
func (s *Session) RemoteAddr() string {
	if s.Conn == nil {
		return ""
	}
	return s.Conn.RemoteAddr().String()
}

// IP returns the peer's address without the port, for per-IP counting.
func (s *Session) IP() string {
	addr := s.RemoteAddr()
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// Write sends p on the connection and counts the bytes.  A closed
// session refuses the write, so a handler racing shutdown fails fast
// instead of writing into a dead socket.
func (s *Session) Write(p []byte) (int, error) {
	if s.closed.Load() {
		return 0, ncerr.ErrSessionClosed
	}
	n, err := s.Conn.Write(p)
	s.bytesOut.Add(int64(n))
	return n, err
}

// AddBytesIn records n bytes read from the connection.
func (s *Session) AddBytesIn(n int64) { s.bytesIn.Add(n) }

// CountLine records one completed input line.
func (s *Session) CountLine() { s.lines.Add(1) }

// BytesIn returns the total bytes read from the peer.
func (s *Session) BytesIn() int64 { return s.bytesIn.Load() }

// BytesOut returns the total bytes written to the peer.
func (s *Session) BytesOut() int64 { return s.bytesOut.Load() }

// Lines returns the number of completed input lines.
func (s *Session) Lines() int64 { return s.lines.Load() }

// Closed reports whether Close has been called.
func (s *Session) Closed() bool { return s.closed.Load() }

// Close shuts the connection down exactly once.  Later calls are
// no-ops, so the owning handler and a process-wide shutdown can race
// safely.
func (s *Session) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}
