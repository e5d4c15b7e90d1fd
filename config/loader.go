package config

// loader.go - configuration loading from environment variables and an
// optional YAML file.
//
// Resolution order, strongest first:
//   1. CLI flags   (handled by cmd/root.go)
//   2. Environment variables
//   3. YAML config file
//   4. Defaults    (defaults.go, applied by ApplyDefaults)
//
// cmd/root.go achieves this by loading the environment first, parsing
// flags over the result, and then letting LoadFile fill only the
// fields that are still unset.

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the GOTELNET_ prefix.  envBool treats
// "1", "true" and "yes" as true, ignoring case.

// LoadFromEnv copies any set GOTELNET_* variables into cfg.  Empty
// variables leave the field alone.  Callers run this before flag
// parsing, which is what keeps flags on top of the environment.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("GOTELNET_HOST"); v != "" {
		cfg.Host = v
	}
	if v := envInt("GOTELNET_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if envBool("GOTELNET_LISTEN") {
		cfg.Listen = true
	}
	if envBool("GOTELNET_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := envInt("GOTELNET_TIMEOUT"); v > 0 {
		cfg.Timeout = secondsDuration(v)
	}

	// Server behaviour
	if v := os.Getenv("GOTELNET_BANNER"); v != "" {
		cfg.Banner = v
	}
	if v := os.Getenv("GOTELNET_PROMPT"); v != "" {
		cfg.Prompt = v
	}
	if v := envInt("GOTELNET_MAX_PER_IP"); v > 0 {
		cfg.MaxPerIP = v
	}
	if envBool("GOTELNET_ALLOW_EXEC") {
		cfg.AllowExec = true
	}

	// Client behaviour
	if envBool("GOTELNET_RAW") {
		cfg.Raw = true
	}
	if v := envInt("GOTELNET_RETRY"); v > 0 {
		cfg.Retries = v
	}

	// SSH tunnel
	if v := os.Getenv("GOTELNET_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("GOTELNET_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("GOTELNET_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("GOTELNET_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("GOTELNET_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("GOTELNET_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("GOTELNET_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── YAML config file ─────────────────────────────────────────────────

// FileConfig mirrors the YAML config file layout.
type FileConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	Listen    bool   `yaml:"listen"`
	NoDNS     bool   `yaml:"no_dns"`
	Timeout   int    `yaml:"timeout_seconds"`
	Banner    string `yaml:"banner"`
	Prompt    string `yaml:"prompt"`
	MaxPerIP  int    `yaml:"max_per_ip"`
	AllowExec bool   `yaml:"allow_exec"`
	Retries   int    `yaml:"retry"`
	Tunnel    string `yaml:"tunnel"`
	SSHKey    string `yaml:"ssh_key"`
	Verbose   int    `yaml:"verbose"`
}

// LoadFile reads a YAML config file and fills in the cfg fields that
// are still unset, so flags and environment variables keep precedence.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	if cfg.Host == "" {
		cfg.Host = fc.Host
	}
	if cfg.LocalPort == 0 && fc.Listen {
		cfg.LocalPort = fc.Port
	}
	if cfg.Port == 0 && !fc.Listen {
		cfg.Port = fc.Port
	}
	if fc.Listen {
		cfg.Listen = true
	}
	if fc.NoDNS {
		cfg.NoDNS = true
	}
	if cfg.Timeout == 0 && fc.Timeout > 0 {
		cfg.Timeout = secondsDuration(fc.Timeout)
	}
	if cfg.Banner == "" {
		cfg.Banner = fc.Banner
	}
	if cfg.Prompt == "" {
		cfg.Prompt = fc.Prompt
	}
	if cfg.MaxPerIP == 0 {
		cfg.MaxPerIP = fc.MaxPerIP
	}
	if fc.AllowExec {
		cfg.AllowExec = true
	}
	if cfg.Retries == 0 {
		cfg.Retries = fc.Retries
	}
	if cfg.TunnelSpec == "" {
		cfg.TunnelSpec = fc.Tunnel
	}
	if cfg.SSHKeyPath == "" {
		cfg.SSHKeyPath = fc.SSHKey
	}
	if cfg.Verbose == 0 {
		cfg.Verbose = fc.Verbose
	}

	return nil
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	n, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func secondsDuration(sec int) time.Duration {
	return time.Duration(sec) * time.Second
}
