package sftp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/contre95/navidrop/src/features/delivery"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Options configures the SFTP dialer.
type Options struct {
	Host           string
	Port           int
	Username       string
	Password       string
	PrivateKeyPath string
	KnownHostsPath string
	Timeout        time.Duration // connect and handshake
	SessionTimeout time.Duration // absolute lifetime of one session
}

// Dialer opens SFTP sessions over SSH.
type Dialer struct {
	opts Options
}

// NewDialer creates a new Dialer.
func NewDialer(opts Options) *Dialer {
	return &Dialer{opts: opts}
}

func (d *Dialer) clientConfig() (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if d.opts.PrivateKeyPath != "" {
		key, err := os.ReadFile(d.opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if d.opts.Password != "" {
		auth = append(auth, ssh.Password(d.opts.Password))
	}
	if len(auth) == 0 {
		return nil, errors.New("no sftp credentials configured")
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if d.opts.KnownHostsPath != "" {
		cb, err := knownhosts.New(d.opts.KnownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
		hostKeyCallback = cb
	} else {
		slog.Warn("SFTP host key verification disabled, set sftp.known_hosts_path to enable it", "host", d.opts.Host)
	}

	return &ssh.ClientConfig{
		User:            d.opts.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
		Timeout:         d.opts.Timeout,
	}, nil
}

// Dial connects, authenticates and starts the sftp subsystem.
func (d *Dialer) Dial(ctx context.Context) (delivery.Session, error) {
	config, err := d.clientConfig()
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(d.opts.Host, strconv.Itoa(d.opts.Port))
	netDialer := net.Dialer{Timeout: d.opts.Timeout}
	conn, err := netDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", addr, err)
	}
	if d.opts.SessionTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(d.opts.SessionTimeout)); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to set session deadline: %w", err)
		}
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("failed to start sftp subsystem: %w", err)
	}

	slog.Debug("SFTP session opened", "addr", addr, "user", d.opts.Username)
	return &session{sftp: client, conn: sshClient, addr: addr}, nil
}

type session struct {
	sftp *sftp.Client
	conn io.Closer // the ssh client carrying the sftp subsystem
	addr string

	once     sync.Once
	closeErr error
}

func (s *session) Upload(ctx context.Context, localPath, remotePath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := s.sftp.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	dst, err := s.sftp.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to upload %s: %w", remotePath, err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", remotePath, err)
	}
	return nil
}

// Close is safe to call more than once.
func (s *session) Close() error {
	s.once.Do(func() {
		s.closeErr = errors.Join(s.sftp.Close(), s.conn.Close())
		slog.Debug("SFTP session closed", "addr", s.addr)
	})
	return s.closeErr
}
