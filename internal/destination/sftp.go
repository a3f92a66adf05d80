package destination

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
)

// sftpBackend implements ports.DestinationBackend over an SSH session,
// authenticating with either a password or a private key from the
// destination's decrypted config.
type sftpBackend struct {
	cfg    SFTPConfig
	sshCli *ssh.Client
	client *sftp.Client
}

func newSFTPBackend(cfg SFTPConfig) *sftpBackend {
	return &sftpBackend{cfg: cfg}
}

func (b *sftpBackend) addr() string {
	port := b.cfg.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", b.cfg.Host, port)
}

func (b *sftpBackend) authMethods() ([]ssh.AuthMethod, error) {
	if b.cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(b.cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrInvalidConfig, err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(b.cfg.Password)}, nil
}

func (b *sftpBackend) Connect(ctx context.Context) error {
	if b.cfg.Host == "" || b.cfg.User == "" {
		return fmt.Errorf("%w: host and user are required", errs.ErrInvalidConfig)
	}

	auth, err := b.authMethods()
	if err != nil {
		return err
	}

	sshCfg := &ssh.ClientConfig{
		User:            b.cfg.User,
		Auth:            auth,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec
		Timeout:         15 * time.Second,
	}

	sshCli, err := ssh.Dial("tcp", b.addr(), sshCfg)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrAuthFailed, err)
	}

	client, err := sftp.NewClient(sshCli)
	if err != nil {
		sshCli.Close()
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	b.sshCli, b.client = sshCli, client
	return nil
}

func (b *sftpBackend) Disconnect(ctx context.Context) error {
	if b.client != nil {
		b.client.Close()
	}
	if b.sshCli != nil {
		b.sshCli.Close()
	}
	b.client, b.sshCli = nil, nil
	return nil
}

func (b *sftpBackend) TestConnection(ctx context.Context) error {
	if b.client == nil {
		return fmt.Errorf("%w: not connected", errs.ErrConnectionFailed)
	}
	if _, err := b.client.Getwd(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *sftpBackend) fullPath(remotePath string) string {
	return path.Join(b.cfg.BasePath, remotePath)
}

func (b *sftpBackend) Upload(ctx context.Context, localFile, remotePath string, progress ports.ProgressFunc) (domain.UploadResult, error) {
	start := time.Now()

	info, err := os.Stat(localFile)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrFileNotFound, err)
	}

	src, err := os.Open(localFile)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrFileNotFound, err)
	}
	defer src.Close()

	full := b.fullPath(remotePath)
	if err := b.client.MkdirAll(path.Dir(full)); err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}

	dst, err := b.client.Create(full)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}
	defer dst.Close()

	written, checksum, err := copyWithChecksum(&progressWriter{w: dst, total: info.Size(), progress: progress}, src)
	if err != nil {
		return domain.UploadResult{}, err
	}

	return domain.UploadResult{RemotePath: remotePath, Checksum: checksum, Size: written, Duration: time.Since(start)}, nil
}

func (b *sftpBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := b.client.Stat(b.fullPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return true, nil
}

func (b *sftpBackend) Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error) {
	info, err := b.client.Stat(b.fullPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return &domain.FileMeta{Path: remotePath, Size: info.Size(), ModifiedDate: info.ModTime()}, nil
}

func (b *sftpBackend) List(ctx context.Context, directory string) ([]domain.FileMeta, error) {
	entries, err := b.client.ReadDir(b.fullPath(directory))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	out := make([]domain.FileMeta, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, domain.FileMeta{
			Path:         path.Join(directory, e.Name()),
			Size:         e.Size(),
			ModifiedDate: e.ModTime(),
		})
	}
	return out, nil
}

func (b *sftpBackend) Delete(ctx context.Context, remotePath string) error {
	if err := b.client.Remove(b.fullPath(remotePath)); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *sftpBackend) Download(ctx context.Context, remotePath string, progress ports.ProgressFunc) ([]byte, error) {
	f, err := b.client.Open(b.fullPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	defer f.Close()

	info, _ := f.Stat()
	var size int64
	if info != nil {
		size = info.Size()
	}

	var buf bytes.Buffer
	if _, _, err := copyWithChecksum(&progressWriter{w: &buf, total: size, progress: progress}, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *sftpBackend) VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error) {
	data, err := b.Download(ctx, remotePath, nil)
	if err != nil {
		return false, err
	}
	return sha256Hex(data) == expected, nil
}
