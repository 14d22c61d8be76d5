package camera

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/crypto/ssh"
)

// errFingerprintCaptured aborts the handshake once the host key is seen.
var errFingerprintCaptured = errors.New("host key captured")

// FetchFingerprint dials addr over SSH just far enough to observe the
// server host key and returns its SHA256 fingerprint. The handshake is
// aborted before authentication completes.
func FetchFingerprint(ctx context.Context, addr, user, password string) (string, error) {
	var fingerprint string
	cfg := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			fingerprint = ssh.FingerprintSHA256(key)
			return errFingerprintCaptured
		},
	}

	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", addr, err)
	}
	defer func() { _ = conn.Close() }()

	_, _, _, err = ssh.NewClientConn(conn, addr, cfg)
	if fingerprint != "" {
		// The handshake failing with our own sentinel is the expected path.
		return fingerprint, nil
	}
	if err != nil {
		return "", fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}
	return "", fmt.Errorf("ssh handshake with %s yielded no host key", addr)
}

// PinnedHostKey returns a HostKeyCallback that accepts only the host key
// whose SHA256 fingerprint equals expected.
func PinnedHostKey(expected string) ssh.HostKeyCallback {
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		got := ssh.FingerprintSHA256(key)
		if got != expected {
			return fmt.Errorf("host key mismatch for %s: got %s, want %s", hostname, got, expected)
		}
		return nil
	}
}
