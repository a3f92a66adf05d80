package syncengine

import (
	"errors"
	"io/fs"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// classify maps a pipeline error to its stable reporting category via a
// total classifier: every error lands in exactly one bucket, unknown by
// default.
func classify(err error) domain.ErrorCategory {
	switch {
	case err == nil:
		return domain.ErrorCategoryUnknown

	case errors.Is(err, errs.ErrConnectionFailed),
		errors.Is(err, errs.ErrNetworkUnreachable),
		errors.Is(err, errs.ErrTimeout),
		errors.Is(err, errs.ErrUploadFailed):
		return domain.ErrorCategoryNetwork

	case errors.Is(err, errs.ErrAuthFailed),
		errors.Is(err, errs.ErrAuthDenied),
		errors.Is(err, errs.ErrAuthRestricted):
		return domain.ErrorCategoryAuth

	case errors.Is(err, errs.ErrExportFailed),
		errors.Is(err, errs.ErrCloudDownload),
		errors.Is(err, errs.ErrUnsupportedAsset),
		errors.Is(err, errs.ErrFileNotFound):
		return domain.ErrorCategorySource

	case errors.Is(err, errs.ErrInvalidPassphrase),
		errors.Is(err, errs.ErrKeyNotFound),
		errors.Is(err, errs.ErrInvalidKeyData),
		errors.Is(err, errs.ErrKeyGen),
		errors.Is(err, errs.ErrEncryptFail),
		errors.Is(err, errs.ErrDecryptFail),
		errors.Is(err, errs.ErrSecureStore):
		return domain.ErrorCategoryEncryption

	case isIOError(err):
		return domain.ErrorCategoryIO

	default:
		return domain.ErrorCategoryUnknown
	}
}

func isIOError(err error) bool {
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
