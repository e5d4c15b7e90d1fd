// Package errors defines the error vocabulary shared across gotelnet:
// lifecycle sentinels, structured types carrying network and SSH
// context, and the retryability classification the reconnect loops
// key off.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// Lifecycle sentinels.  Wrap them with %w so callers can match.
var (
	// ErrTunnelClosed means the SSH tunnel was shut down on purpose;
	// dialers must not revive it behind the caller's back.
	ErrTunnelClosed = errors.New("tunnel is closed")

	// ErrNotConnected means the link dropped underneath us; a fresh
	// Connect may bring it back.
	ErrNotConnected = errors.New("not connected")

	ErrServerClosed    = errors.New("server is shutting down")
	ErrSessionClosed   = errors.New("session is closed")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrHostKeyMismatch = errors.New("host key mismatch")
)

// ── Structured types ─────────────────────────────────────────────────

// NetworkError is a failed network operation with enough context to
// log and to decide on a retry.
type NetworkError struct {
	Op        string // "dial", "listen", "accept", "read", "write"
	Addr      string
	Err       error
	Retryable bool
}

func (e *NetworkError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("%s %s: %v (retryable)", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Wrap builds a NetworkError around err, classifying retryability
// automatically.
func Wrap(op, addr string, err error) *NetworkError {
	return &NetworkError{Op: op, Addr: addr, Err: err, Retryable: IsRetryable(err)}
}

// SSHError is a tunnel failure tagged with the gateway endpoint.
type SSHError struct {
	Op   string // "handshake", "auth", "hostkey", "dial"
	Host string
	Port int
	Err  error
}

func (e *SSHError) Error() string {
	gw := net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
	return fmt.Sprintf("ssh %s %s: %v", e.Op, gw, e.Err)
}

func (e *SSHError) Unwrap() error { return e.Err }

// WrapSSH tags err with the failing SSH operation and gateway.
func WrapSSH(op, host string, port int, err error) *SSHError {
	return &SSHError{Op: op, Host: host, Port: port, Err: err}
}

// ConfigError reports a bad configuration value the way the CLI
// prints it, flag-style with an optional hint line.
type ConfigError struct {
	Field   string
	Value   interface{} // nil when the field is missing entirely
	Message string
	Hint    string
}

func (e *ConfigError) Error() string {
	msg := "config: --" + e.Field
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Classification ───────────────────────────────────────────────────

// IsRetryable reports whether err is worth another attempt.
// Deliberate shutdowns never are; for everything else the net
// package's own timeout/temporary signals decide.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Retryable
	}
	if errors.Is(err, ErrServerClosed) || errors.Is(err, ErrSessionClosed) || errors.Is(err, net.ErrClosed) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return nerr.Timeout() || nerr.Temporary() //nolint:staticcheck // Temporary is deprecated but still the accept-loop signal
	}
	return false
}

// ── Stdlib re-exports ────────────────────────────────────────────────
//
// So callers that alias this package don't need a second errors
// import for matching.

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }
