package core

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/atomic"

	"gotelnet/config"
	"gotelnet/internal/capability"
	ncerr "gotelnet/internal/errors"
	"gotelnet/internal/metrics"
	"gotelnet/internal/retry"
	"gotelnet/internal/session"
	"gotelnet/util"
)

// ListenMode accepts inbound connections and runs a capability on
// each one, goroutine per connection.  Every accepted session is
// visible in Registry for as long as its handler runs, so shell
// builtins and shutdown always see the same population.
type ListenMode struct {
	Address    string // ":port"
	Capability capability.Capability
	Registry   *session.Registry
	Metrics    *metrics.Collector
	Logger     *util.Logger

	// MaxPerIP rejects a connection when its source IP already has
	// this many live sessions.  0 disables the check.
	MaxPerIP int

	// GracePeriod bounds how long shutdown waits for handlers after
	// their sockets have been closed.
	GracePeriod time.Duration

	// AcceptRetryDelay and AcceptRetryMax shape the backoff applied
	// to transient accept failures such as descriptor exhaustion.
	AcceptRetryDelay time.Duration
	AcceptRetryMax   time.Duration
}

// Run serves the listener until the context is cancelled, then closes
// every live session and waits for its handler to drain.
func (m *ListenMode) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", m.Address, err)
	}
	defer ln.Close()

	m.Logger.Info("listening on %s", ln.Addr())

	// Shut the listener down when the context expires.  stopped
	// distinguishes deliberate shutdown from a broken listener.
	stopped := atomic.NewBool(false)
	go func() {
		<-ctx.Done()
		stopped.Store(true)
		ln.Close()
	}()

	var handlers sync.WaitGroup
	defer m.drain(&handlers)

	for {
		conn, err := m.accept(ctx, ln, stopped)
		if err != nil {
			if ncerr.Is(err, ncerr.ErrServerClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		sess := session.New(conn, nil, nil, m.Logger)
		if m.MaxPerIP > 0 && m.Registry.CountByIP(sess.IP()) >= m.MaxPerIP {
			m.Logger.Warn("refusing %s: per-IP limit (%d) reached",
				sess.RemoteAddr(), m.MaxPerIP)
			sess.Write([]byte("too many connections from your address\r\n")) //nolint:errcheck
			sess.Close()
			continue
		}

		id := m.Registry.Add(sess)
		m.Metrics.SessionOpened()
		m.Logger.Verbose("session %d: connection from %s", id, sess.RemoteAddr())

		handlers.Add(1)
		go func() {
			defer handlers.Done()
			defer func() {
				m.Registry.Remove(id)
				sess.Close()
				m.Metrics.SessionClosed()
				m.Logger.Info("session %d from %s closed (in=%dB out=%dB lines=%d)",
					id, sess.RemoteAddr(), sess.BytesIn(), sess.BytesOut(), sess.Lines())
			}()
			if err := m.Capability.Handle(ctx, sess); err != nil {
				m.Metrics.RecordError(err)
				m.Logger.Warn("session %d from %s: %v", id, sess.RemoteAddr(), err)
			}
		}()
	}
}

// accept retries transient failures with backoff so a descriptor-
// exhausted listener recovers instead of spinning or dying.
func (m *ListenMode) accept(ctx context.Context, ln net.Listener, stopped *atomic.Bool) (net.Conn, error) {
	bo := &retry.Backoff{
		InitialDelay: m.AcceptRetryDelay,
		MaxDelay:     m.AcceptRetryMax,
		MaxAttempts:  0, // retry until the listener closes
		Jitter:       true,
	}

	var conn net.Conn
	err := bo.Do(ctx, func(attempt int) error {
		c, aerr := ln.Accept()
		if aerr != nil {
			if stopped.Load() {
				return retry.Permanent(ncerr.ErrServerClosed)
			}
			if !ncerr.IsRetryable(aerr) {
				return retry.Permanent(aerr)
			}
			m.Logger.Warn("accept failed (attempt %d): %v", attempt, aerr)
			return aerr
		}
		conn = c
		return nil
	})
	return conn, err
}

// drain closes every live session socket and waits for the handlers
// to finish, at most GracePeriod.
func (m *ListenMode) drain(handlers *sync.WaitGroup) {
	if n := m.Registry.Len(); n > 0 {
		m.Logger.Info("shutting down, closing %d session(s)", n)
	}
	m.Registry.CloseAll()

	done := make(chan struct{})
	go func() {
		handlers.Wait()
		close(done)
	}()

	grace := m.GracePeriod
	if grace == 0 {
		grace = config.DefaultGracePeriod
	}
	select {
	case <-done:
	case <-time.After(grace):
		m.Logger.Warn("grace period expired with %d session(s) still draining",
			m.Registry.Len())
	}

	if m.Metrics != nil {
		m.Logger.Verbose("final stats: %s", m.Metrics.JSON())
	}
}
