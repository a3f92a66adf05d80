// Package encryption implements the optional per-job file encryption layer:
// passphrase-derived AES-256-GCM keys persisted through a SecureStore.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/pbkdf2"

	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/logger"
	"github.com/photobackup/engine/internal/securestore"
)

const (
	keySize       = 32 // AES-256
	saltSize      = 32
	pbkdf2Iters   = 100_000
	nonceSize     = 12
	minPassphrase = 12

	secureStoreService = "photobackup"
	secureStoreAccount = "encryption-key"
)

var log = logger.Named("encryption")

// Encryptor derives and holds the symmetric key used for file encryption.
// It is created locked (no key in memory) and must be unlocked with Setup
// or Verify before Encrypt/Decrypt calls succeed.
type Encryptor struct {
	store securestore.SecureStore
	key   []byte // nil until Setup/Verify succeeds
}

// New creates an Encryptor backed by the given SecureStore. It does not
// unlock the key; call Setup (first use) or Verify (subsequent runs).
func New(store securestore.SecureStore) *Encryptor {
	return &Encryptor{store: store}
}

// Setup derives a new key from passphrase, persists key||salt to the
// SecureStore, and unlocks the Encryptor for immediate use.
func (e *Encryptor) Setup(passphrase string) error {
	if len(passphrase) < minPassphrase {
		return fmt.Errorf("%w: passphrase must be at least %d characters", errs.ErrInvalidPassphrase, minPassphrase)
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrKeyGen, err)
	}

	key := deriveKey(passphrase, salt)

	blob := make([]byte, 0, keySize+saltSize)
	blob = append(blob, key...)
	blob = append(blob, salt...)

	if err := e.store.Put(secureStoreService, secureStoreAccount, blob, securestore.AccessibilityOwnerOnly); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSecureStore, err)
	}

	e.key = key
	log.Info("encryption key provisioned")
	return nil
}

// Verify loads the persisted key||salt blob, re-derives the key from
// passphrase with the stored salt, and unlocks the Encryptor only if the
// derived key matches.
func (e *Encryptor) Verify(passphrase string) error {
	blob, ok, err := e.store.Get(secureStoreService, secureStoreAccount)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSecureStore, err)
	}
	if !ok {
		return errs.ErrKeyNotFound
	}
	if len(blob) != keySize+saltSize {
		return errs.ErrInvalidKeyData
	}

	storedKey, salt := blob[:keySize], blob[keySize:]
	candidate := deriveKey(passphrase, salt)

	if subtle.ConstantTimeCompare(storedKey, candidate) != 1 {
		return errs.ErrInvalidPassphrase
	}

	e.key = storedKey
	return nil
}

// Remove deletes the persisted key. Idempotent: a missing key is success.
func (e *Encryptor) Remove() error {
	if err := e.store.Delete(secureStoreService, secureStoreAccount); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrSecureStore, err)
	}
	e.key = nil
	return nil
}

// Unlocked reports whether a key is currently held in memory.
func (e *Encryptor) Unlocked() bool {
	return e.key != nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return pbkdf2.Key([]byte(passphrase), salt, pbkdf2Iters, keySize, sha256.New)
}

// EncryptBytes seals plaintext under a fresh nonce. combined is
// nonce(12) || ciphertext || tag(16); nonce is also returned standalone
// as the spec requires both forms.
func (e *Encryptor) EncryptBytes(plaintext []byte) (combined []byte, nonce []byte, err error) {
	if !e.Unlocked() {
		return nil, nil, errs.ErrKeyNotFound
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, nonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", errs.ErrEncryptFail, err)
	}

	combined = gcm.Seal(nonce, nonce, plaintext, nil)
	return combined, nonce, nil
}

// DecryptBytes opens a blob produced by EncryptBytes.
func (e *Encryptor) DecryptBytes(combined []byte) ([]byte, error) {
	if !e.Unlocked() {
		return nil, errs.ErrKeyNotFound
	}

	gcm, err := e.gcm()
	if err != nil {
		return nil, err
	}

	if len(combined) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext too short", errs.ErrDecryptFail)
	}

	nonce, ciphertext := combined[:nonceSize], combined[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrDecryptFail, err)
	}
	return plaintext, nil
}

// EncryptFile reads src whole, encrypts it, and writes the result to dst.
// dst is created with 0600 permissions.
func (e *Encryptor) EncryptFile(src, dst string) error {
	plaintext, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrEncryptFail, err)
	}

	combined, _, err := e.EncryptBytes(plaintext)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dst, combined, 0o600); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrEncryptFail, err)
	}
	return nil
}

// DecryptFile reads src whole, decrypts it, and writes the result to dst.
func (e *Encryptor) DecryptFile(src, dst string) error {
	combined, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDecryptFail, err)
	}

	plaintext, err := e.DecryptBytes(combined)
	if err != nil {
		return err
	}

	if err := os.WriteFile(dst, plaintext, 0o600); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrDecryptFail, err)
	}
	return nil
}

func (e *Encryptor) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncryptFail, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrEncryptFail, err)
	}
	return gcm, nil
}
