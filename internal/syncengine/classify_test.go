package syncengine

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

func TestClassify_NetworkErrors(t *testing.T) {
	for _, err := range []error{errs.ErrConnectionFailed, errs.ErrNetworkUnreachable, errs.ErrTimeout, errs.ErrUploadFailed} {
		assert.Equal(t, domain.ErrorCategoryNetwork, classify(err), err)
	}
}

func TestClassify_AuthErrors(t *testing.T) {
	for _, err := range []error{errs.ErrAuthFailed, errs.ErrAuthDenied, errs.ErrAuthRestricted} {
		assert.Equal(t, domain.ErrorCategoryAuth, classify(err), err)
	}
}

func TestClassify_SourceErrors(t *testing.T) {
	for _, err := range []error{errs.ErrExportFailed, errs.ErrCloudDownload, errs.ErrUnsupportedAsset, errs.ErrFileNotFound} {
		assert.Equal(t, domain.ErrorCategorySource, classify(err), err)
	}
}

func TestClassify_EncryptionErrors(t *testing.T) {
	for _, err := range []error{errs.ErrInvalidPassphrase, errs.ErrKeyNotFound, errs.ErrInvalidKeyData, errs.ErrKeyGen, errs.ErrEncryptFail, errs.ErrDecryptFail, errs.ErrSecureStore} {
		assert.Equal(t, domain.ErrorCategoryEncryption, classify(err), err)
	}
}

func TestClassify_IOError(t *testing.T) {
	err := &fs.PathError{Op: "open", Path: "/tmp/x", Err: fmt.Errorf("permission denied")}
	assert.Equal(t, domain.ErrorCategoryIO, classify(err))
}

func TestClassify_WrappedIOError(t *testing.T) {
	inner := &fs.PathError{Op: "stat", Path: "/tmp/y", Err: fmt.Errorf("not found")}
	wrapped := fmt.Errorf("export failed: %w", inner)
	assert.Equal(t, domain.ErrorCategoryIO, classify(wrapped))
}

func TestClassify_UnknownErrorDefaultsToUnknown(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryUnknown, classify(fmt.Errorf("something unexpected")))
}

func TestClassify_NilErrorIsUnknown(t *testing.T) {
	assert.Equal(t, domain.ErrorCategoryUnknown, classify(nil))
}
