package destination

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/photobackup/engine/internal/errs"
)

// copyBufferSize matches the teacher's own stream-copy sizing for
// filesystem-style remotes.
const copyBufferSize = 1 << 20 // 1 MiB

// copyWithChecksum streams src into dst through a fixed-size buffer
// while hashing every byte written, so upload and checksum computation
// happen in a single pass.
func copyWithChecksum(dst io.Writer, src io.Reader) (written int64, checksum string, err error) {
	h := sha256.New()
	mw := io.MultiWriter(dst, h)

	buf := make([]byte, copyBufferSize)
	written, err = io.CopyBuffer(mw, src, buf)
	if err != nil {
		return written, "", fmt.Errorf("%w: %w", errs.ErrUploadFailed, err)
	}
	return written, hex.EncodeToString(h.Sum(nil)), nil
}

// progressWriter wraps an io.Writer and reports cumulative bytes
// written against a known total after every call.
type progressWriter struct {
	w        io.Writer
	total    int64
	written  int64
	progress func(fraction float64)
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.progress != nil && p.total > 0 {
		p.progress(float64(p.written) / float64(p.total))
	}
	return n, err
}

// sha256Hex hashes a complete in-memory payload. Used for the
// download-and-compare checksum verification path on backends that
// don't expose a server-side digest comparable to ours.
func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
