package destination

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path"
	"strings"
	"time"

	"github.com/cloudsoda/go-smb2"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
)

// smbBackend implements ports.DestinationBackend against a single SMB
// share, connecting once per Connect call and streaming file operations
// through it with the package's shared 1 MiB copy buffer.
type smbBackend struct {
	cfg    SMBConfig
	conn   net.Conn
	client *smb2.Client
	share  *smb2.Share
}

func newSMBBackend(cfg SMBConfig) *smbBackend {
	return &smbBackend{cfg: cfg}
}

func (b *smbBackend) addr() string {
	port := b.cfg.Port
	if port == 0 {
		port = 445
	}
	return fmt.Sprintf("%s:%d", b.cfg.Host, port)
}

func (b *smbBackend) Connect(ctx context.Context) error {
	if b.cfg.Host == "" || b.cfg.Share == "" {
		return fmt.Errorf("%w: host and share are required", errs.ErrInvalidConfig)
	}

	d := &net.Dialer{Timeout: 15 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", b.addr())
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrNetworkUnreachable, err)
	}

	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     b.cfg.User,
			Password: b.cfg.Password,
			Domain:   b.cfg.Domain,
		},
	}

	client, err := dialer.DialContext(ctx, conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: %w", errs.ErrAuthFailed, err)
	}

	share, err := client.Mount(b.cfg.Share)
	if err != nil {
		client.Logoff()
		conn.Close()
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	b.conn, b.client, b.share = conn, client, share
	return nil
}

func (b *smbBackend) Disconnect(ctx context.Context) error {
	if b.share != nil {
		b.share.Umount()
	}
	if b.client != nil {
		b.client.Logoff()
	}
	if b.conn != nil {
		b.conn.Close()
	}
	b.share, b.client, b.conn = nil, nil, nil
	return nil
}

func (b *smbBackend) TestConnection(ctx context.Context) error {
	if b.share == nil {
		return fmt.Errorf("%w: not connected", errs.ErrConnectionFailed)
	}
	if _, err := b.share.ReadDir("."); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *smbBackend) toSMBPath(remotePath string) string {
	return strings.ReplaceAll(remotePath, "/", `\`)
}

func (b *smbBackend) Upload(ctx context.Context, localFile, remotePath string, progress ports.ProgressFunc) (domain.UploadResult, error) {
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

	if err := b.mkdirAll(path.Dir(remotePath)); err != nil {
		return domain.UploadResult{}, err
	}

	dst, err := b.share.Create(b.toSMBPath(remotePath))
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

func (b *smbBackend) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}
	smbDir := b.toSMBPath(dir)
	if err := b.share.MkdirAll(smbDir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}
	return nil
}

func (b *smbBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, err := b.share.Stat(b.toSMBPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return true, nil
}

func (b *smbBackend) Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error) {
	info, err := b.share.Stat(b.toSMBPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return &domain.FileMeta{Path: remotePath, Size: info.Size(), ModifiedDate: info.ModTime()}, nil
}

func (b *smbBackend) List(ctx context.Context, directory string) ([]domain.FileMeta, error) {
	entries, err := b.share.ReadDir(b.toSMBPath(directory))
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

func (b *smbBackend) Delete(ctx context.Context, remotePath string) error {
	if err := b.share.Remove(b.toSMBPath(remotePath)); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *smbBackend) Download(ctx context.Context, remotePath string, progress ports.ProgressFunc) ([]byte, error) {
	f, err := b.share.Open(b.toSMBPath(remotePath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.ErrFileNotFound
		}
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	defer f.Close()

	info, err := f.Stat()
	var size int64
	if err == nil {
		size = info.Size()
	}

	var buf bytes.Buffer
	if _, _, err := copyWithChecksum(&progressWriter{w: &buf, total: size, progress: progress}, f); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *smbBackend) VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error) {
	data, err := b.Download(ctx, remotePath, nil)
	if err != nil {
		return false, err
	}
	return sha256Hex(data) == expected, nil
}
