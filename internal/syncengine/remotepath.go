package syncengine

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/photobackup/engine/internal/domain"
)

// FilenameStrategy selects how a photo's remote basename is derived.
type FilenameStrategy string

const (
	// FilenameOriginal reuses PhotoMetadata.OriginalFilename verbatim.
	FilenameOriginal FilenameStrategy = "original"
	// FilenameObfuscated replaces the basename with a fresh UUID, keeping
	// only the original extension.
	FilenameObfuscated FilenameStrategy = "obfuscated"
	// FilenameSanitizedID derives the basename from the photo's
	// localIdentifier, each run of path-unsafe characters replaced by an
	// underscore and leading/trailing underscores trimmed.
	FilenameSanitizedID FilenameStrategy = "sanitizedID"
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// remotePath builds the `YYYY/MM/DD/<filename>[.encrypted]` path for one
// photo; any destination prefix is added by the backend. YYYY/MM/DD is
// derived from CreationDate, falling back to the literal "unknown" segment
// when absent.
func remotePath(photo domain.PhotoMetadata, strategy FilenameStrategy, encrypted bool) string {
	datePath := "unknown"
	if photo.CreationDate != nil {
		datePath = fmt.Sprintf("%04d/%02d/%02d", photo.CreationDate.Year(), photo.CreationDate.Month(), photo.CreationDate.Day())
	}

	filename := basename(photo, strategy)
	if encrypted {
		filename += ".encrypted"
	}

	return datePath + "/" + filename
}

func basename(photo domain.PhotoMetadata, strategy FilenameStrategy) string {
	ext := filepath.Ext(photo.OriginalFilename)

	switch strategy {
	case FilenameObfuscated:
		return uuid.NewString() + ext
	case FilenameSanitizedID:
		return sanitizeLocalID(photo.LocalIdentifier) + ext
	default:
		if photo.OriginalFilename != "" {
			return photo.OriginalFilename
		}
		return sanitizeLocalID(photo.LocalIdentifier) + ext
	}
}

func sanitizeLocalID(id string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(id, "_")
	return strings.Trim(sanitized, "_")
}
