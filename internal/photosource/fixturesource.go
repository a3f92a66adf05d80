// Package photosource provides a fixture PhotoSource: an in-memory,
// temp-dir-backed asset list used by tests and the demo CLI run in
// place of a real device photo library adapter. It never touches any
// system photo library and every export reads straight from disk.
package photosource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
)

// Asset is one fixture library entry: its metadata plus the path to
// its backing file on disk.
type Asset struct {
	Metadata domain.PhotoMetadata
	FilePath string
}

// Source is an in-memory ports.PhotoSource backed by a fixed asset
// list. Authorized defaults to true; tests can flip it to exercise the
// denied/restricted paths.
type Source struct {
	mu         sync.Mutex
	assets     []Asset
	authorized bool
	cancelled  bool
}

var _ ports.PhotoSource = (*Source)(nil)

// New builds a Source over assets, authorized by default.
func New(assets []Asset) *Source {
	return &Source{assets: assets, authorized: true}
}

// SetAuthorized controls what RequestAuthorization reports.
func (s *Source) SetAuthorized(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authorized = v
}

func (s *Source) RequestAuthorization(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.authorized {
		return false, errs.ErrAuthDenied
	}
	return true, nil
}

// FetchPhotos returns every asset matching filter. last24h/7d/30d/90d
// are evaluated against ModificationDate; fullLibrary and customRange
// return everything (customRange's bounds are the caller's concern —
// this fixture has no range parameters to apply them against).
func (s *Source) FetchPhotos(ctx context.Context, filter domain.DateRangeFilter) ([]domain.PhotoMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authorized {
		return nil, errs.ErrAuthDenied
	}

	now := time.Now()
	var cutoff time.Duration
	switch filter {
	case domain.FilterLast24h:
		cutoff = 24 * time.Hour
	case domain.FilterLast7d:
		cutoff = 7 * 24 * time.Hour
	case domain.FilterLast30d:
		cutoff = 30 * 24 * time.Hour
	case domain.FilterLast90d:
		cutoff = 90 * 24 * time.Hour
	default:
		cutoff = 0
	}

	out := make([]domain.PhotoMetadata, 0, len(s.assets))
	for _, a := range s.assets {
		if cutoff > 0 && now.Sub(a.Metadata.ModificationDate) > cutoff {
			continue
		}
		out = append(out, a.Metadata)
	}
	return out, nil
}

// ExportPhoto copies the asset's backing file to a fresh temp file and
// reports {url, size, sha256}. Callers own the returned temp file and
// must remove it once done.
func (s *Source) ExportPhoto(ctx context.Context, photo domain.PhotoMetadata, progress ports.ProgressFunc) (domain.ExportResult, error) {
	s.mu.Lock()
	var match *Asset
	for i := range s.assets {
		if s.assets[i].Metadata.LocalIdentifier == photo.LocalIdentifier {
			match = &s.assets[i]
			break
		}
	}
	cancelled := s.cancelled
	s.mu.Unlock()

	if cancelled {
		return domain.ExportResult{}, errs.ErrExportFailed
	}
	if match == nil {
		return domain.ExportResult{}, errs.ErrUnsupportedAsset
	}

	src, err := os.Open(match.FilePath)
	if err != nil {
		return domain.ExportResult{}, errs.ErrExportFailed
	}
	defer src.Close()

	dst, err := os.CreateTemp("", "photobackup-export-*"+filepath.Ext(match.FilePath))
	if err != nil {
		return domain.ExportResult{}, errs.ErrExportFailed
	}
	defer dst.Close()

	h := sha256.New()
	w := io.MultiWriter(dst, h)

	info, err := src.Stat()
	if err != nil {
		os.Remove(dst.Name())
		return domain.ExportResult{}, errs.ErrExportFailed
	}

	var written int64
	buf := make([]byte, 256*1024)
	for {
		select {
		case <-ctx.Done():
			os.Remove(dst.Name())
			return domain.ExportResult{}, ctx.Err()
		default:
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				os.Remove(dst.Name())
				return domain.ExportResult{}, errs.ErrExportFailed
			}
			written += int64(n)
			if progress != nil && info.Size() > 0 {
				progress(float64(written) / float64(info.Size()))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			os.Remove(dst.Name())
			return domain.ExportResult{}, errs.ErrExportFailed
		}
	}

	return domain.ExportResult{
		URL:    dst.Name(),
		Size:   written,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// CancelExport flips the fixture into a state where every subsequent
// ExportPhoto call fails, mirroring an in-flight cloud download being
// torn down. Reset by constructing a new Source.
func (s *Source) CancelExport() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = true
}

// NewAssetFromBytes writes data to a temp file and returns an Asset
// wrapping it, for tests that want disposable fixture photos.
func NewAssetFromBytes(localID string, data []byte, mediaType domain.MediaType, modTime time.Time) (Asset, error) {
	f, err := os.CreateTemp("", "photobackup-asset-*")
	if err != nil {
		return Asset{}, err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return Asset{}, err
	}

	if localID == "" {
		localID = uuid.NewString()
	}

	return Asset{
		Metadata: domain.PhotoMetadata{
			LocalIdentifier:  localID,
			ModificationDate: modTime,
			MediaType:        mediaType,
			OriginalFilename: filepath.Base(f.Name()),
			FileSize:         int64(len(data)),
		},
		FilePath: f.Name(),
	}, nil
}

var videoExtensions = map[string]bool{
	".mov": true, ".mp4": true, ".m4v": true, ".avi": true,
}

// NewAssetFromFile wraps an existing file on disk as a fixture Asset,
// deriving its metadata from the filesystem: modification time doubles
// as both creationDate and modificationDate, and mediaType is inferred
// from the extension. Used by the CLI's directory-backed demo library.
func NewAssetFromFile(path string) (Asset, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Asset{}, err
	}

	mediaType := domain.MediaTypeImage
	if videoExtensions[strings.ToLower(filepath.Ext(path))] {
		mediaType = domain.MediaTypeVideo
	}

	modTime := info.ModTime()
	return Asset{
		Metadata: domain.PhotoMetadata{
			LocalIdentifier:  path,
			CreationDate:     &modTime,
			ModificationDate: modTime,
			MediaType:        mediaType,
			OriginalFilename: filepath.Base(path),
			FileSize:         info.Size(),
		},
		FilePath: path,
	}, nil
}
