package securestore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "secrets"))
	require.NoError(t, err)
	return store
}

func TestFileStore_PutGet(t *testing.T) {
	store := newTestStore(t)

	err := store.Put("photobackup", "encryption-key", []byte("secret-bytes"), AccessibilityOwnerOnly)
	require.NoError(t, err)

	data, ok, err := store.Get("photobackup", "encryption-key")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("secret-bytes"), data)
}

func TestFileStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	data, ok, err := store.Get("photobackup", "nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestFileStore_PutOverwrites(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("svc", "acct", []byte("v1"), AccessibilityOwnerOnly))
	require.NoError(t, store.Put("svc", "acct", []byte("v2"), AccessibilityOwnerOnly))

	data, ok, err := store.Get("svc", "acct")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("v2"), data)
}

func TestFileStore_Delete(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("svc", "acct", []byte("v1"), AccessibilityOwnerOnly))
	require.NoError(t, store.Delete("svc", "acct"))

	_, ok, err := store.Get("svc", "acct")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_DeleteMissingIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Delete("svc", "never-existed"))
}

func TestFileStore_DistinctAccountsIsolated(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Put("svc", "a", []byte("alpha"), AccessibilityOwnerOnly))
	require.NoError(t, store.Put("svc", "b", []byte("beta"), AccessibilityOwnerOnly))

	dataA, _, err := store.Get("svc", "a")
	require.NoError(t, err)
	dataB, _, err := store.Get("svc", "b")
	require.NoError(t, err)

	assert.Equal(t, []byte("alpha"), dataA)
	assert.Equal(t, []byte("beta"), dataB)
}
