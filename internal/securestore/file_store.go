package securestore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/logger"
)

var log = logger.Named("securestore")

// record is the on-disk shape of one (service, account) entry.
type record struct {
	Service       string        `json:"service"`
	Account       string        `json:"account"`
	Accessibility Accessibility `json:"accessibility"`
	Data          []byte        `json:"data"`
}

// FileStore is the default, non-macOS SecureStore adapter: one JSON file
// per (service, account) under dir, permission-restricted to the owning
// user. It exists purely as a development/CI fallback; a real OS keychain
// adapter implementing the same interface is a drop-in replacement.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir, creating it (0700) if
// it does not already exist.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("securestore: create dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(service, account string) string {
	sum := sha256.Sum256([]byte(service + "\x00" + account))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json")
}

func (s *FileStore) Get(service, account string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(service, account))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("securestore: read: %w", err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("securestore: decode: %w", err)
	}
	return rec.Data, true, nil
}

func (s *FileStore) Put(service, account string, data []byte, accessibility Accessibility) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Service: service, Account: account, Accessibility: accessibility, Data: data}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("securestore: encode: %w", err)
	}

	path := s.path(service, account)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("securestore: write: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("securestore: rename: %w", err)
	}

	log.Debug("secret stored", zap.String("service", service), zap.String("account", account))
	return nil
}

func (s *FileStore) Delete(service, account string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(service, account))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("securestore: delete: %w", err)
	}
	return nil
}

var _ SecureStore = (*FileStore)(nil)
