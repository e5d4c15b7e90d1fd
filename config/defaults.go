package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// Every tuneable default is declared in this one block; flags, the
// config file, and env loading all draw from here rather than
// repeating literals.

const (
	// DefaultPort is the Telnet port used by both modes when none is
	// given.  Non-privileged, distinct from the standard port 23.
	DefaultPort = 2323

	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultBanner greets a peer once its connection is accepted.
	DefaultBanner = "Welcome to gotelnet."

	// DefaultPrompt is written after the banner and after each
	// command response.
	DefaultPrompt = "> "

	// DefaultConnTimeout is the TCP/SSH connection timeout.  It bounds
	// connection establishment only; established sessions never time
	// out.
	DefaultConnTimeout = 30 * time.Second

	// DefaultReconnectDelay is the pause before the first reconnection
	// attempt after a dropped session.
	DefaultReconnectDelay = 500 * time.Millisecond

	// DefaultMaxReconnectBackoff caps the exponential backoff between
	// reconnection attempts.
	DefaultMaxReconnectBackoff = 60 * time.Second

	// DefaultAcceptRetryDelay is the initial pause after a failed
	// accept, so a descriptor-exhausted listener does not spin.
	DefaultAcceptRetryDelay = 100 * time.Millisecond

	// DefaultAcceptRetryMax caps the accept retry pause.
	DefaultAcceptRetryMax = 5 * time.Second

	// DefaultGracePeriod is how long shutdown waits for session
	// handlers to drain after their sockets are closed.
	DefaultGracePeriod = 5 * time.Second

	// DefaultSSHKeepAlive is the probe interval that detects a dead
	// SSH gateway between dials.
	DefaultSSHKeepAlive = 15 * time.Second
)
