package core

import (
	"context"
	"fmt"
	"io"
	"os"

	"gotelnet/config"
	"gotelnet/internal/capability"
	"gotelnet/internal/metrics"
	"gotelnet/internal/retry"
	"gotelnet/internal/session"
	"gotelnet/internal/transport"
	"gotelnet/util"
)

// ConnectMode dials a remote address and runs a capability on the
// resulting connection, the default client mode.  With Retries > 0
// a dropped session is re-established with exponential backoff; a
// session the capability ends cleanly is never re-dialed.  Every
// attempt runs the same Capability value, which is how the
// interactive client keeps one keyboard across sessions.
type ConnectMode struct {
	Dialer     transport.Dialer
	Capability capability.Capability
	Address    string
	Logger     *util.Logger
	Metrics    *metrics.Collector

	// Retries is the reconnect budget after an abnormal disconnect.
	// 0 means a single attempt.
	Retries int

	// Stdin and Stdout fall back to the process's own when nil;
	// tests inject buffers here.
	Stdin  io.Reader
	Stdout io.Writer
}

func (m *ConnectMode) stdin() io.Reader {
	if m.Stdin != nil {
		return m.Stdin
	}
	return os.Stdin
}

func (m *ConnectMode) stdout() io.Writer {
	if m.Stdout != nil {
		return m.Stdout
	}
	return os.Stdout
}

// Run dials the target, wraps the connection in a session, and lets
// the capability drive it.  The dialer is torn down when Run returns.
func (m *ConnectMode) Run(ctx context.Context) error {
	defer m.Dialer.Close()

	if m.Retries == 0 {
		return m.runOnce(ctx)
	}

	bo := &retry.Backoff{
		InitialDelay: config.DefaultReconnectDelay,
		MaxDelay:     config.DefaultMaxReconnectBackoff,
		MaxAttempts:  m.Retries + 1, // the budget counts re-dials, not the first dial
		Jitter:       true,
	}
	return bo.Do(ctx, func(attempt int) error {
		if attempt > 1 {
			m.Metrics.Reconnect()
			m.Logger.Info("reconnecting to %s (attempt %d of %d)",
				m.Address, attempt-1, m.Retries)
		}
		err := m.runOnce(ctx)
		if err == nil {
			// Clean close: the user quit or the server said goodbye.
			return nil
		}
		m.Logger.Warn("session ended: %v", err)
		return err
	})
}

func (m *ConnectMode) runOnce(ctx context.Context) error {
	m.Logger.Verbose("connecting to %s", m.Address)

	conn, err := m.Dialer.Dial(ctx, "tcp", m.Address)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", m.Address, err)
	}
	defer conn.Close()

	m.Logger.Info("connected to %s", conn.RemoteAddr())

	sess := session.New(conn, m.stdin(), m.stdout(), m.Logger)
	return m.Capability.Handle(ctx, sess)
}
