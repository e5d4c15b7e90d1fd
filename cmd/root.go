// Package cmd wires up the CLI flags and dispatches to the core.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"gotelnet/config"
	"gotelnet/internal/core"
	ncerr "gotelnet/internal/errors"
	"gotelnet/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X gotelnet/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// Execute parses args and runs the appropriate gotelnet mode.
//
// Configuration precedence, highest first: flags, environment
// (GOTELNET_*), config file (--config), built-in defaults.  The
// environment loads before flag registration so flag defaults are
// seeded from it; the file fills only what is still unset.
func Execute(ctx context.Context, args []string) error {
	cfg := &config.Config{}
	config.LoadFromEnv(cfg)

	fs := flag.NewFlagSet("gotelnet", flag.ContinueOnError)

	// ── connection ───────────────────────────────────────────────
	fs.BoolVarP(&cfg.Listen, "listen", "l", cfg.Listen, "Listen mode (Telnet server)")
	fs.IntVarP(&cfg.LocalPort, "port", "p", cfg.LocalPort, "Listen port (with -l)")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only, no DNS resolution")

	var timeoutSec int
	fs.IntVarP(&timeoutSec, "timeout", "w", 0, "Connection timeout in seconds")

	// ── server behaviour ─────────────────────────────────────────
	fs.StringVar(&cfg.Banner, "banner", cfg.Banner, "Greeting line for new sessions")
	fs.StringVar(&cfg.Prompt, "prompt", cfg.Prompt, "Command prompt")
	fs.IntVar(&cfg.MaxPerIP, "max-per-ip", cfg.MaxPerIP, "Max sessions per source IP (0 = unlimited)")
	fs.BoolVar(&cfg.AllowExec, "allow-exec", cfg.AllowExec, "Enable the sys builtin (runs host commands)")

	// ── client behaviour ─────────────────────────────────────────
	fs.BoolVar(&cfg.Raw, "raw", cfg.Raw, "Relay bytes verbatim, no Telnet processing")
	fs.IntVar(&cfg.Retries, "retry", cfg.Retries, "Reconnect attempts after a dropped session")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "SSH tunnel via [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output / misc ────────────────────────────────────────────
	var verboseFlag int
	fs.CountVarP(&verboseFlag, "verbose", "v", "Increase verbosity (repeatable)")

	var configPath string
	fs.StringVar(&configPath, "config", "", "YAML config file")

	var dryRun, showVersion, showHelp bool
	fs.BoolVar(&dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if showHelp {
		printUsage(fs)
		return nil
	}
	if showVersion {
		fmt.Printf("gotelnet %s\n", version)
		return nil
	}

	if configPath != "" {
		if err := config.LoadFile(cfg, configPath); err != nil {
			return err
		}
	}
	if verboseFlag > 0 {
		cfg.Verbose = verboseFlag
	}
	if timeoutSec > 0 {
		cfg.Timeout = time.Duration(timeoutSec) * time.Second
	}

	// ── positional arguments ─────────────────────────────────────
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	if len(args) == 0 && !cfg.Listen && cfg.Host == "" {
		printUsage(fs)
		return nil
	}

	// ── tunnel spec ──────────────────────────────────────────────
	if cfg.TunnelSpec != "" {
		user, host, port, err := config.ParseTunnelSpec(cfg.TunnelSpec)
		if err != nil {
			return fmt.Errorf("tunnel: %w", err)
		}
		cfg.TunnelEnabled = true
		cfg.TunnelUser = user
		cfg.TunnelHost = host
		cfg.TunnelPort = port
	}

	// ── defaults + validate ──────────────────────────────────────
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Verbose)

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}

	if dryRun {
		logger.Info("configuration valid (%s mode)", modeName(cfg))
		return nil
	}

	return mode.Run(ctx)
}

// ── helpers ──────────────────────────────────────────────────────────

func modeName(cfg *config.Config) string {
	if cfg.Listen {
		return "listen"
	}
	return "connect"
}

func parsePositional(cfg *config.Config, remaining []string) error {
	if cfg.Listen {
		if len(remaining) > 0 {
			return fmt.Errorf("listen mode takes no positional arguments")
		}
		return nil
	}

	// Connect mode: host [port]
	switch len(remaining) {
	case 0:
		// Host may come from the environment or the config file.
	case 1:
		cfg.Host = remaining[0]
	case 2:
		cfg.Host = remaining[0]
		port, err := config.ParsePort(remaining[1])
		if err != nil {
			return &ncerr.ConfigError{
				Field:   "port",
				Value:   remaining[1],
				Message: "not a valid TCP port",
				Hint:    "ports are 1-65535, e.g. gotelnet example.com 2323",
			}
		}
		cfg.Port = port
	default:
		return fmt.Errorf("too many arguments (want host [port])")
	}
	return nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gotelnet – line-mode Telnet server and client v%s

Usage:
  gotelnet [options] <host> [port]            Connect (default port 2323)
  gotelnet -l [-p <port>] [options]           Serve the command shell
  gotelnet -T user@gateway <host> [port]      Connect through an SSH tunnel

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Examples:
  gotelnet example.com                        Interactive session, port 2323
  gotelnet -l -p 2323 --banner "lab box"      Server with a custom banner
  gotelnet --raw example.com 7                Raw byte relay, no Telnet engine
  gotelnet -T admin@bastion db-internal       Telnet over an SSH tunnel
  GOTELNET_LISTEN=1 gotelnet -v               Server configured by environment
`)
}
