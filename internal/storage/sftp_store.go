package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

type SFTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	KeyFile  string `yaml:"key_file"`
	// KnownHosts is an OpenSSH known_hosts file used to verify the server.
	KnownHosts            string        `yaml:"known_hosts"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key"`
	BasePath              string        `yaml:"base_path"`
	Timeout               time.Duration `yaml:"timeout"`
}

// remote is one live session. Closing the sftp client does not close the
// ssh transport, so both are kept.
type remote struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (r *remote) close() {
	r.sftp.Close()
	if r.ssh != nil {
		r.ssh.Close()
	}
}

// SFTPStore keeps objects on a remote host. The connection is opened lazily
// and reopened after a transport failure.
type SFTPStore struct {
	cfg     SFTPConfig
	hostKey ssh.HostKeyCallback
	dial    func() (*remote, error)

	mu   sync.Mutex
	conn *remote
}

func NewSFTPStore(cfg SFTPConfig) (*SFTPStore, error) {
	if cfg.Host == "" {
		return nil, errors.New("sftp: host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BasePath = strings.TrimRight(cfg.BasePath, "/")
	if cfg.BasePath == "" {
		cfg.BasePath = "references"
	}

	var hostKey ssh.HostKeyCallback
	switch {
	case cfg.KnownHosts != "":
		cb, err := knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known_hosts: %w", err)
		}
		hostKey = cb
	case cfg.InsecureIgnoreHostKey:
		hostKey = ssh.InsecureIgnoreHostKey()
	default:
		return nil, errors.New("sftp: known_hosts is required unless insecure_ignore_host_key is set")
	}
	s := &SFTPStore{cfg: cfg, hostKey: hostKey}
	s.dial = s.dialSSH
	return s, nil
}

func (s *SFTPStore) authMethods() ([]ssh.AuthMethod, error) {
	switch {
	case s.cfg.KeyFile != "":
		key, err := os.ReadFile(s.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: read private key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("sftp: parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	case s.cfg.Password != "":
		return []ssh.AuthMethod{ssh.Password(s.cfg.Password)}, nil
	}
	return nil, errors.New("sftp: no authentication method provided")
}

func (s *SFTPStore) dialSSH() (*remote, error) {
	auth, err := s.authMethods()
	if err != nil {
		return nil, err
	}
	config := &ssh.ClientConfig{
		User:            s.cfg.Username,
		Auth:            auth,
		HostKeyCallback: s.hostKey,
		Timeout:         s.cfg.Timeout,
	}
	sshConn, err := ssh.Dial("tcp", fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port), config)
	if err != nil {
		return nil, fmt.Errorf("sftp: connect: %w", err)
	}
	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("sftp: create client: %w", err)
	}
	return &remote{ssh: sshConn, sftp: client}, nil
}

// session returns the shared connection, dialing outside the lock when there
// is none. A dial that completes after ctx is done is closed, not kept.
func (s *SFTPStore) session(ctx context.Context) (*remote, error) {
	s.mu.Lock()
	r := s.conn
	s.mu.Unlock()
	if r != nil {
		return r, nil
	}

	type result struct {
		r   *remote
		err error
	}
	ch := make(chan result, 1)
	go func() {
		r, err := s.dial()
		ch <- result{r, err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if res := <-ch; res.r != nil {
				res.r.close()
			}
		}()
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			// another caller connected first
			res.r.close()
			return s.conn, nil
		}
		s.conn = res.r
		return res.r, nil
	}
}

// reset drops r if it is still the shared connection so the next call redials.
func (s *SFTPStore) reset(r *remote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == r {
		s.conn = nil
		r.close()
	}
}

// Put uploads under a per-call temp name and renames over the key, so
// concurrent writers of one key never share a file and the last rename wins.
func (s *SFTPStore) Put(ctx context.Context, key string, data []byte) error {
	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	r, err := s.session(ctx)
	if err != nil {
		return err
	}
	client := r.sftp

	dst := path.Join(s.cfg.BasePath, k)
	if err := client.MkdirAll(path.Dir(dst)); err != nil {
		s.reset(r)
		return fmt.Errorf("sftp: mkdir: %w", err)
	}

	tmp := dst + "." + uuid.NewString() + ".tmp"
	f, err := client.Create(tmp)
	if err != nil {
		s.reset(r)
		return fmt.Errorf("sftp: create: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		client.Remove(tmp)
		return fmt.Errorf("sftp: write: %w", err)
	}
	if err := f.Close(); err != nil {
		client.Remove(tmp)
		return fmt.Errorf("sftp: close: %w", err)
	}
	if err := client.PosixRename(tmp, dst); err != nil {
		client.Remove(tmp)
		return fmt.Errorf("sftp: rename: %w", err)
	}
	return nil
}

func (s *SFTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	r, err := s.session(ctx)
	if err != nil {
		return nil, err
	}

	f, err := r.sftp.Open(path.Join(s.cfg.BasePath, k))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.reset(r)
		return nil, fmt.Errorf("sftp: open: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *SFTPStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.close()
		s.conn = nil
	}
	return nil
}
