package destination

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
)

// ftpBackend implements ports.DestinationBackend over plain or explicit
// TLS (FTPS) FTP, always in passive mode.
type ftpBackend struct {
	cfg  FTPConfig
	conn *ftp.ServerConn
}

func newFTPBackend(cfg FTPConfig) *ftpBackend {
	return &ftpBackend{cfg: cfg}
}

func (b *ftpBackend) addr() string {
	port := b.cfg.Port
	if port == 0 {
		port = 21
	}
	return fmt.Sprintf("%s:%d", b.cfg.Host, port)
}

func (b *ftpBackend) Connect(ctx context.Context) error {
	if b.cfg.Host == "" {
		return fmt.Errorf("%w: host is required", errs.ErrInvalidConfig)
	}

	opts := []ftp.DialOption{ftp.DialWithTimeout(15 * time.Second), ftp.DialWithContext(ctx)}
	if b.cfg.TLS {
		opts = append(opts, ftp.DialWithExplicitTLS(&tls.Config{ServerName: b.cfg.Host}))
	}

	conn, err := ftp.Dial(b.addr(), opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	if err := conn.Login(b.cfg.User, b.cfg.Password); err != nil {
		conn.Quit()
		return fmt.Errorf("%w: %w", errs.ErrAuthFailed, err)
	}

	b.conn = conn
	return nil
}

func (b *ftpBackend) Disconnect(ctx context.Context) error {
	if b.conn != nil {
		_ = b.conn.Quit()
		b.conn = nil
	}
	return nil
}

func (b *ftpBackend) TestConnection(ctx context.Context) error {
	if b.conn == nil {
		return fmt.Errorf("%w: not connected", errs.ErrConnectionFailed)
	}
	if err := b.conn.NoOp(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *ftpBackend) fullPath(remotePath string) string {
	return path.Join(b.cfg.BasePath, remotePath)
}

func (b *ftpBackend) mkdirAll(dir string) error {
	if dir == "." || dir == "" || dir == "/" {
		return nil
	}
	var built string
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		built += "/" + part
		_ = b.conn.MakeDir(built)
	}
	return nil
}

func (b *ftpBackend) Upload(ctx context.Context, localFile, remotePath string, progress ports.ProgressFunc) (domain.UploadResult, error) {
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
	if err := b.mkdirAll(path.Dir(full)); err != nil {
		return domain.UploadResult{}, err
	}

	var buf bytes.Buffer
	written, checksum, err := copyWithChecksum(&progressWriter{w: &buf, total: info.Size(), progress: progress}, src)
	if err != nil {
		return domain.UploadResult{}, err
	}

	if err := b.conn.Stor(full, bytes.NewReader(buf.Bytes())); err != nil {
		return domain.UploadResult{}, fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}

	return domain.UploadResult{RemotePath: remotePath, Checksum: checksum, Size: written, Duration: time.Since(start)}, nil
}

func (b *ftpBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	size, err := b.conn.FileSize(b.fullPath(remotePath))
	if err != nil {
		return false, nil //nolint:nilerr
	}
	return size >= 0, nil
}

func (b *ftpBackend) Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error) {
	full := b.fullPath(remotePath)
	size, err := b.conn.FileSize(full)
	if err != nil {
		return nil, errs.ErrFileNotFound
	}

	meta := &domain.FileMeta{Path: remotePath, Size: size}
	if t, err := b.conn.GetTime(full); err == nil {
		meta.ModifiedDate = t
	}
	return meta, nil
}

func (b *ftpBackend) List(ctx context.Context, directory string) ([]domain.FileMeta, error) {
	entries, err := b.conn.List(b.fullPath(directory))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}

	out := make([]domain.FileMeta, 0, len(entries))
	for _, e := range entries {
		if e.Type != ftp.EntryTypeFile {
			continue
		}
		out = append(out, domain.FileMeta{
			Path:         path.Join(directory, e.Name),
			Size:         int64(e.Size),
			ModifiedDate: e.Time,
		})
	}
	return out, nil
}

func (b *ftpBackend) Delete(ctx context.Context, remotePath string) error {
	if err := b.conn.Delete(b.fullPath(remotePath)); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	return nil
}

func (b *ftpBackend) Download(ctx context.Context, remotePath string, progress ports.ProgressFunc) ([]byte, error) {
	full := b.fullPath(remotePath)
	resp, err := b.conn.Retr(full)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrConnectionFailed, err)
	}
	defer resp.Close()

	size, _ := b.conn.FileSize(full)

	var buf bytes.Buffer
	if _, _, err := copyWithChecksum(&progressWriter{w: &buf, total: size, progress: progress}, resp); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (b *ftpBackend) VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error) {
	data, err := b.Download(ctx, remotePath, nil)
	if err != nil {
		return false, err
	}
	return sha256Hex(data) == expected, nil
}
