package encryption

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/securestore"
)

func newTestEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	store, err := securestore.NewFileStore(t.TempDir())
	require.NoError(t, err)
	return New(store)
}

func TestSetup_RejectsShortPassphrase(t *testing.T) {
	enc := newTestEncryptor(t)
	err := enc.Setup("short")
	assert.ErrorIs(t, err, errs.ErrInvalidPassphrase)
	assert.False(t, enc.Unlocked())
}

func TestSetupThenVerify_Roundtrip(t *testing.T) {
	store, err := securestore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	setup := New(store)
	require.NoError(t, setup.Setup("correct-horse-battery-staple"))
	assert.True(t, setup.Unlocked())

	// A fresh Encryptor over the same store must verify successfully.
	verify := New(store)
	require.NoError(t, verify.Verify("correct-horse-battery-staple"))
	assert.True(t, verify.Unlocked())
}

func TestVerify_WrongPassphraseFails(t *testing.T) {
	store, err := securestore.NewFileStore(t.TempDir())
	require.NoError(t, err)

	setup := New(store)
	require.NoError(t, setup.Setup("correct-horse-battery-staple"))

	verify := New(store)
	err = verify.Verify("wrong-wrong-wrong-wrong")
	assert.ErrorIs(t, err, errs.ErrInvalidPassphrase)
	assert.False(t, verify.Unlocked())
}

func TestVerify_NoKeyFails(t *testing.T) {
	enc := newTestEncryptor(t)
	err := enc.Verify("correct-horse-battery-staple")
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
}

func TestRemove_IsIdempotent(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	require.NoError(t, enc.Remove())
	assert.False(t, enc.Unlocked())

	assert.NoError(t, enc.Remove())
}

func TestEncryptDecryptBytes_Roundtrip(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	plaintext := []byte("a photo's worth of bytes, pretend this is JPEG data")

	combined, nonce, err := enc.EncryptBytes(plaintext)
	require.NoError(t, err)
	assert.Len(t, nonce, nonceSize)
	assert.Equal(t, nonce, combined[:nonceSize])

	decrypted, err := enc.DecryptBytes(combined)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptBytes_NonceIsFreshEachCall(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	plaintext := []byte("same input twice")

	c1, n1, err := enc.EncryptBytes(plaintext)
	require.NoError(t, err)
	c2, n2, err := enc.EncryptBytes(plaintext)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, c1, c2)
}

func TestEncryptBytes_LockedFails(t *testing.T) {
	enc := newTestEncryptor(t)
	_, _, err := enc.EncryptBytes([]byte("data"))
	assert.ErrorIs(t, err, errs.ErrKeyNotFound)
}

func TestDecryptBytes_TruncatedFails(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	combined, _, err := enc.EncryptBytes([]byte("some data"))
	require.NoError(t, err)

	_, err = enc.DecryptBytes(combined[:nonceSize-1])
	assert.ErrorIs(t, err, errs.ErrDecryptFail)
}

func TestDecryptBytes_TamperedFails(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	combined, _, err := enc.EncryptBytes([]byte("some data"))
	require.NoError(t, err)

	tampered := append([]byte(nil), combined...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = enc.DecryptBytes(tampered)
	assert.ErrorIs(t, err, errs.ErrDecryptFail)
}

func TestEncryptDecryptFile_Roundtrip(t *testing.T) {
	enc := newTestEncryptor(t)
	require.NoError(t, enc.Setup("correct-horse-battery-staple"))

	dir := t.TempDir()
	src := filepath.Join(dir, "photo.jpg")
	encrypted := filepath.Join(dir, "photo.jpg.encrypted")
	decrypted := filepath.Join(dir, "photo.jpg.out")

	content := []byte("pretend-binary-jpeg-content")
	require.NoError(t, os.WriteFile(src, content, 0o600))

	require.NoError(t, enc.EncryptFile(src, encrypted))

	onDisk, err := os.ReadFile(encrypted)
	require.NoError(t, err)
	assert.NotEqual(t, content, onDisk)

	require.NoError(t, enc.DecryptFile(encrypted, decrypted))

	roundTripped, err := os.ReadFile(decrypted)
	require.NoError(t, err)
	assert.Equal(t, content, roundTripped)
}
