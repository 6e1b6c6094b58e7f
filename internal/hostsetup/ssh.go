// Package hostsetup distributes the kolla admin SSH key to target hosts
// and verifies they are reachable through Ansible.
package hostsetup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultSSHPort is used when a host name carries no port.
const DefaultSSHPort = "22"

// dialTimeout bounds the TCP connect and, separately, the SSH handshake.
const dialTimeout = 15 * time.Second

// KeyInstaller copies a public key into a remote user's authorized_keys.
type KeyInstaller interface {
	InstallKey(ctx context.Context, host, user, password string, pubKey []byte) error
}

// SSHInstaller logs in with a password over SSH and appends the key.
type SSHInstaller struct {
	// HostKeyCallback verifies the remote host key. Nil accepts any key.
	HostKeyCallback ssh.HostKeyCallback
}

// InstallKey implements KeyInstaller. The key is only appended when it is
// not already authorized, so running setup twice is harmless.
func (s *SSHInstaller) InstallKey(ctx context.Context, host, user, password string, pubKey []byte) error {
	hostKeyCallback := s.HostKeyCallback
	if hostKeyCallback == nil {
		// #nosec G106 -- host setup runs before the host is known
		hostKeyCallback = ssh.InsecureIgnoreHostKey()
	}
	cfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         dialTimeout,
	}

	addr := hostAddr(host)
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	// Cancelling ctx closes the connection, which unblocks the handshake
	// and any remote command still running on it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	// ssh.NewClientConn has no timeout of its own; a host that accepts
	// TCP but never sends its banner would block here indefinitely.
	if err := conn.SetDeadline(time.Now().Add(dialTimeout)); err != nil {
		_ = conn.Close()
		return fmt.Errorf("connect to %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return fmt.Errorf("ssh login to %s as %s: %w", addr, user, err)
	}
	_ = conn.SetDeadline(time.Time{})
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() { _ = client.Close() }()

	current, err := runRemote(client, "mkdir -p ~/.ssh && chmod 700 ~/.ssh && touch ~/.ssh/authorized_keys && cat ~/.ssh/authorized_keys", nil)
	if err != nil {
		return fmt.Errorf("read authorized_keys on %s: %w", host, err)
	}

	merged, changed := MergeAuthorizedKey(current, pubKey)
	if !changed {
		return nil
	}
	if _, err := runRemote(client, "cat > ~/.ssh/authorized_keys && chmod 600 ~/.ssh/authorized_keys", merged); err != nil {
		return fmt.Errorf("write authorized_keys on %s: %w", host, err)
	}
	return nil
}

func runRemote(client *ssh.Client, command string, stdin []byte) ([]byte, error) {
	session, err := client.NewSession()
	if err != nil {
		return nil, err
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}
	if err := session.Run(command); err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) && stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// hostAddr appends the default SSH port unless host already has one.
func hostAddr(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(host, DefaultSSHPort)
}

// MergeAuthorizedKey appends pubKey to an authorized_keys document unless
// a line with the same key type and key material is already present.
// Comments on existing entries are ignored when comparing.
func MergeAuthorizedKey(current, pubKey []byte) ([]byte, bool) {
	want, _, _, _, err := ssh.ParseAuthorizedKey(pubKey)
	wantLine := strings.TrimSpace(string(pubKey))

	for _, line := range strings.Split(string(current), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err != nil {
			if line == wantLine {
				return current, false
			}
			continue
		}
		have, _, _, _, perr := ssh.ParseAuthorizedKey([]byte(line))
		if perr == nil && bytes.Equal(have.Marshal(), want.Marshal()) {
			return current, false
		}
	}

	out := append([]byte{}, bytes.TrimRight(current, "\n")...)
	if len(out) > 0 {
		out = append(out, '\n')
	}
	out = append(out, wantLine...)
	out = append(out, '\n')
	return out, true
}

// ReadPublicKey loads and validates an OpenSSH public key file.
func ReadPublicKey(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey(data); err != nil {
		return nil, fmt.Errorf("parse public key %s: %w", path, err)
	}
	return bytes.TrimSpace(data), nil
}
