package probe

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/cadencejames/pingtimes/internal/models"
)

// Session is a live command-execution handle on a vantage device.
type Session interface {
	Run(ctx context.Context, command string) (string, error)
	Close() error
}

// Dialer opens command sessions on vantage devices.
type Dialer interface {
	Dial(ctx context.Context, vp models.VantagePoint, creds models.Credentials) (Session, error)
}

// SSHDialer connects to vantage devices over SSH with password auth.
type SSHDialer struct {
	// Timeout bounds the TCP connect and SSH handshake.
	Timeout time.Duration
}

// Dial establishes the SSH connection for one vantage point.
func (d *SSHDialer) Dial(ctx context.Context, vp models.VantagePoint, creds models.Credentials) (Session, error) {
	cfg := &ssh.ClientConfig{
		User:            creds.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(creds.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         d.Timeout,
	}
	addr := net.JoinHostPort(vp.Host, strconv.Itoa(vp.Port))

	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	if d.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(d.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake %s: %w", addr, err)
	}
	_ = conn.SetDeadline(time.Time{})
	return &sshSession{client: ssh.NewClient(sshConn, chans, reqs)}, nil
}

type sshSession struct {
	client *ssh.Client
}

// Run executes one command and returns its combined output. The ssh
// package has no context plumbing, so cancellation tears the whole
// connection down to unblock the pending read.
func (s *sshSession) Run(ctx context.Context, command string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session: %w", err)
	}
	defer sess.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := sess.CombinedOutput(command)
		done <- result{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		s.client.Close()
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("run %q: %w", command, r.err)
		}
		return string(r.out), nil
	}
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
