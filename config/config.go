// Package config defines the runtime configuration for gotelnet and
// provides helpers for parsing ports and tunnel specifications.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds every tuneable for a single gotelnet run.
type Config struct {
	// ── Connection ───────────────────────────────────────────────────
	Host      string
	Port      int // destination port (connect mode)
	LocalPort int // -p: listen port (listen mode)
	Listen    bool
	NoDNS     bool
	Timeout   time.Duration // dial timeout; never applied to live sessions

	// ── Server behaviour ─────────────────────────────────────────────
	Banner    string // written once per connection before the first prompt
	Prompt    string // written after the banner and after each response
	MaxPerIP  int    // 0 = unlimited concurrent connections per source IP
	AllowExec bool   // enable the "sys" shell builtin

	// ── Client behaviour ─────────────────────────────────────────────
	Raw     bool // relay bytes verbatim, no protocol engine
	Retries int  // reconnect attempts after an abnormal disconnect

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose int
}

// ── Port helper ──────────────────────────────────────────────────────

// ParsePort parses a decimal port and checks its range.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// ParseTunnelSpec splits a -T argument such as
// "admin@bastion.example.com:2222" into its parts.  The port defaults
// to 22; the user may be empty, in which case the SSH layer will pick
// one up from the environment.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	bad := func() (string, string, int, error) {
		return "", "", 0, fmt.Errorf("bad tunnel spec %q – want [user@]host[:port]", spec)
	}

	rest := spec
	if u, r, ok := strings.Cut(rest, "@"); ok {
		if u == "" {
			return bad()
		}
		user, rest = u, r
	}

	host = rest
	port = DefaultSSHPort
	if h, p, ok := strings.Cut(rest, ":"); ok {
		host = h
		if p == "" || strings.Trim(p, "0123456789") != "" {
			return "", "", 0, fmt.Errorf("bad tunnel port %q", p)
		}
		if port, err = ParsePort(p); err != nil {
			return "", "", 0, err
		}
	}

	if host == "" || strings.ContainsAny(host, "@:") {
		return bad()
	}
	return user, host, port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate rejects configurations that mix flags across modes or
// carry out-of-range values.  ApplyDefaults must run first so optional
// fields are filled in.
func (c *Config) Validate() error {
	if c.Listen {
		if c.LocalPort < 1 || c.LocalPort > 65535 {
			return fmt.Errorf("listen port %d out of range 1-65535", c.LocalPort)
		}
		if c.TunnelEnabled {
			return fmt.Errorf("listen mode through an SSH tunnel is not supported")
		}
		if c.Raw {
			return fmt.Errorf("--raw applies to connect mode only")
		}
		if c.Retries > 0 {
			return fmt.Errorf("--retry applies to connect mode only")
		}
	} else {
		if c.Host == "" {
			return fmt.Errorf("hostname is required (use --help for usage)")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("destination port %d out of range 1-65535", c.Port)
		}
		if c.AllowExec {
			return fmt.Errorf("--allow-exec applies to listen mode only")
		}
		if c.MaxPerIP > 0 {
			return fmt.Errorf("--max-per-ip applies to listen mode only")
		}
	}

	if c.MaxPerIP < 0 {
		return fmt.Errorf("--max-per-ip must not be negative")
	}
	if c.Retries < 0 {
		return fmt.Errorf("--retry must not be negative")
	}

	if c.TunnelEnabled && c.TunnelHost == "" {
		return fmt.Errorf("tunnel host is required")
	}

	return nil
}

// ApplyDefaults fills in values the user left unset.
func (c *Config) ApplyDefaults() {
	if c.Listen && c.LocalPort == 0 {
		c.LocalPort = DefaultPort
	}
	if !c.Listen && c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Prompt == "" {
		c.Prompt = DefaultPrompt
	}
	if c.Banner == "" {
		c.Banner = DefaultBanner
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultConnTimeout
	}
}
