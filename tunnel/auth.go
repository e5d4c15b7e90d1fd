package tunnel

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	ncerr "gotelnet/internal/errors"
)

// BuildAuthMethods assembles the SSH authentication chain in priority
// order: explicit key, agent, prompted password.  When the user
// configured none of those, the conventional fallbacks (a running
// agent, the usual key files) are tried instead.
func BuildAuthMethods(cfg *SSHConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.KeyPath != "" {
		m, err := keyFileAuth(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", cfg.KeyPath, err)
		}
		methods = append(methods, m)
	}

	if cfg.UseAgent {
		m, err := sshAgentAuth()
		if err != nil {
			return nil, fmt.Errorf("ssh-agent: %w", err)
		}
		methods = append(methods, m)
	}

	if cfg.PromptPass {
		ms, err := passwordAuth()
		if err != nil {
			return nil, err
		}
		methods = append(methods, ms...)
	}

	if len(methods) == 0 {
		methods = fallbackAuthMethods()
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf(
			"no SSH authentication available – " +
				"supply --ssh-key, --ssh-password, or --ssh-agent")
	}
	return methods, nil
}

// ── individual auth builders ─────────────────────────────────────────

// promptSecret reads one secret from the controlling terminal.  It
// refuses when stdin is not a terminal, so a piped session fails fast
// instead of hanging on an invisible prompt.
func promptSecret(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal, cannot prompt for %q", prompt)
	}
	fmt.Fprintf(os.Stderr, "%s: ", prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading secret: %w", err)
	}
	return string(secret), nil
}

// keyFileAuth loads a private key file, prompting for the
// passphrase when the key turns out to be encrypted.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(data)
	if err == nil {
		return ssh.PublicKeys(signer), nil
	}

	var missing *ssh.PassphraseMissingError
	if !ncerr.As(err, &missing) {
		return nil, fmt.Errorf("parsing key: %w", err)
	}

	pass, perr := promptSecret("Enter passphrase for " + keyPath)
	if perr != nil {
		return nil, perr
	}
	if signer, err = ssh.ParsePrivateKeyWithPassphrase(data, []byte(pass)); err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}
	return ssh.PublicKeys(signer), nil
}

func sshAgentAuth() (ssh.AuthMethod, error) {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK unset")
	}
	conn, err := net.Dial("unix", sock)
	if err != nil {
		return nil, fmt.Errorf("agent socket %s: %w", sock, err)
	}
	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

// passwordAuth prompts once and offers the secret both as plain
// password auth and as keyboard-interactive, since many servers
// (OpenSSH with ChallengeResponseAuthentication, most network gear)
// accept only the latter.
func passwordAuth() ([]ssh.AuthMethod, error) {
	secret, err := promptSecret("SSH password")
	if err != nil {
		return nil, err
	}
	ki := ssh.KeyboardInteractive(
		func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i := range answers {
				answers[i] = secret
			}
			return answers, nil
		})
	return []ssh.AuthMethod{ssh.Password(secret), ki}, nil
}

// fallbackAuthMethods is tried when the user configured nothing: a
// running agent, then the conventional key files.  Encrypted keys are
// skipped here; we never prompt for a key nobody named.
func fallbackAuthMethods() []ssh.AuthMethod {
	var out []ssh.AuthMethod

	if m, err := sshAgentAuth(); err == nil {
		out = append(out, m)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return out
	}
	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		data, err := os.ReadFile(filepath.Join(home, ".ssh", name))
		if err != nil {
			continue
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			continue
		}
		out = append(out, ssh.PublicKeys(signer))
	}
	return out
}

// ── host-key verification ────────────────────────────────────────────

// hostKeyCallback picks the host-key policy: strict checking against
// known_hosts, or accept-anything when the user opted out.
func hostKeyCallback(cfg *SSHConfig) (ssh.HostKeyCallback, error) {
	if !cfg.StrictHostKey {
		//nolint:gosec // host checking disabled by config
		return ssh.InsecureIgnoreHostKey(), nil
	}

	path := cfg.KnownHosts
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("locating home directory: %w", err)
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}

	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %s: %w", path, err)
	}
	return cb, nil
}

// classifyHandshake maps handshake failures onto the package
// sentinels so callers can branch with errors.Is instead of string
// matching.
func classifyHandshake(err error) error {
	var keyErr *knownhosts.KeyError
	if ncerr.As(err, &keyErr) || strings.Contains(err.Error(), "knownhosts: key") {
		return fmt.Errorf("%w: %v", ncerr.ErrHostKeyMismatch, err)
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return fmt.Errorf("%w: %v", ncerr.ErrAuthFailed, err)
	}
	return err
}
