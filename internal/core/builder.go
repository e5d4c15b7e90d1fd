package core

import (
	"fmt"

	"gotelnet/config"
	"gotelnet/internal/capability"
	"gotelnet/internal/metrics"
	"gotelnet/internal/session"
	sh "gotelnet/internal/shell"
	"gotelnet/internal/transport"
	"gotelnet/tunnel"
	"gotelnet/util"
)

// Build constructs the appropriate Mode from the given configuration.
func Build(cfg *config.Config, logger *util.Logger) (Mode, error) {
	if cfg.Listen {
		return buildListen(cfg, logger)
	}
	return buildConnect(cfg, logger)
}

// ── mode builders ────────────────────────────────────────────────────

func buildListen(cfg *config.Config, logger *util.Logger) (Mode, error) {
	registry := session.NewRegistry()
	collector := metrics.New()

	return &ListenMode{
		Address: fmt.Sprintf(":%d", cfg.LocalPort),
		Capability: &capability.Shell{
			Dispatcher: sh.NewDispatcher(registry, collector, cfg.AllowExec),
			Metrics:    collector,
			Banner:     cfg.Banner,
			Prompt:     cfg.Prompt,
		},
		Registry:         registry,
		Metrics:          collector,
		Logger:           logger,
		MaxPerIP:         cfg.MaxPerIP,
		GracePeriod:      config.DefaultGracePeriod,
		AcceptRetryDelay: config.DefaultAcceptRetryDelay,
		AcceptRetryMax:   config.DefaultAcceptRetryMax,
	}, nil
}

func buildConnect(cfg *config.Config, logger *util.Logger) (Mode, error) {
	addr, err := util.ResolveAddr(cfg.Host, cfg.Port, cfg.NoDNS)
	if err != nil {
		return nil, err
	}

	return &ConnectMode{
		Dialer:     buildDialer(cfg, logger),
		Capability: buildCapability(cfg),
		Address:    addr,
		Logger:     logger,
		Metrics:    metrics.New(),
		Retries:    cfg.Retries,
	}, nil
}

// ── wiring helpers ───────────────────────────────────────────────────

// buildDialer picks the transport: plain TCP, or an SSH dialer when a
// tunnel is configured.
func buildDialer(cfg *config.Config, logger *util.Logger) transport.Dialer {
	if cfg.TunnelEnabled {
		return transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.Timeout,
			KeepAlive:     config.DefaultSSHKeepAlive,
		}, logger)
	}

	return &transport.TCPDialer{Timeout: cfg.Timeout}
}

// buildCapability selects the client's per-connection behaviour.
func buildCapability(cfg *config.Config) capability.Capability {
	if cfg.Raw {
		return &capability.Relay{}
	}
	return &capability.Interactive{}
}
