package verification_test

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobackup/engine/internal/catalog"
	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/ports"
	"github.com/photobackup/engine/internal/verification"
)

// fakeBackend is an in-memory ports.DestinationBackend keyed by remote
// path, with per-path overrides for missing/size-mismatched objects.
type fakeBackend struct {
	objects map[string]int64
	missing map[string]bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{objects: make(map[string]int64), missing: make(map[string]bool)}
}

func (f *fakeBackend) Connect(ctx context.Context) error        { return nil }
func (f *fakeBackend) Disconnect(ctx context.Context) error     { return nil }
func (f *fakeBackend) TestConnection(ctx context.Context) error { return nil }

func (f *fakeBackend) Upload(ctx context.Context, localFile, remotePath string, progress ports.ProgressFunc) (domain.UploadResult, error) {
	return domain.UploadResult{}, nil
}

func (f *fakeBackend) Exists(ctx context.Context, remotePath string) (bool, error) {
	_, ok := f.objects[remotePath]
	return ok, nil
}

func (f *fakeBackend) Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error) {
	if f.missing[remotePath] {
		return nil, errs.ErrFileNotFound
	}
	size, ok := f.objects[remotePath]
	if !ok {
		return nil, errs.ErrFileNotFound
	}
	return &domain.FileMeta{Path: remotePath, Size: size}, nil
}

func (f *fakeBackend) List(ctx context.Context, directory string) ([]domain.FileMeta, error) {
	return nil, nil
}

func (f *fakeBackend) Delete(ctx context.Context, remotePath string) error {
	delete(f.objects, remotePath)
	return nil
}

func (f *fakeBackend) Download(ctx context.Context, remotePath string, progress ports.ProgressFunc) ([]byte, error) {
	return nil, errs.ErrFileNotFound
}

func (f *fakeBackend) VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error) {
	return false, nil
}

var _ ports.DestinationBackend = (*fakeBackend)(nil)

type fakeSource struct {
	photos []domain.PhotoMetadata
}

func (s *fakeSource) RequestAuthorization(ctx context.Context) (bool, error) { return true, nil }
func (s *fakeSource) FetchPhotos(ctx context.Context, filter domain.DateRangeFilter) ([]domain.PhotoMetadata, error) {
	return s.photos, nil
}
func (s *fakeSource) ExportPhoto(ctx context.Context, photo domain.PhotoMetadata, progress ports.ProgressFunc) (domain.ExportResult, error) {
	return domain.ExportResult{}, nil
}
func (s *fakeSource) CancelExport() {}

var _ ports.PhotoSource = (*fakeSource)(nil)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	c, err := catalog.Open(path, catalog.MigrationModeVersioned)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestDestination(t *testing.T, c *catalog.Catalog) domain.Destination {
	t.Helper()
	dest := domain.Destination{ID: "dest-1", Name: "test", Type: domain.DestinationTypeS3, ConfigBlob: []byte("{}"), CreatedAt: time.Now()}
	require.NoError(t, c.CreateDestination(context.Background(), dest))
	return dest
}

func getDestFor(c *catalog.Catalog) func(context.Context, string) (domain.Destination, error) {
	return func(ctx context.Context, id string) (domain.Destination, error) { return c.GetDestination(ctx, id) }
}

func TestVerifyBackup_ClassifiesEveryOutcome(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()

	ctx := context.Background()
	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s1", LocalID: "p1", DestinationID: dest.ID, RemotePath: "2024/01/01/a.jpg", FileSize: 100, SyncDate: time.Now()}))
	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s2", LocalID: "p2", DestinationID: dest.ID, RemotePath: "2024/01/01/b.jpg", FileSize: 200, SyncDate: time.Now()}))
	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s3", LocalID: "p3", DestinationID: dest.ID, RemotePath: "2024/01/01/c.jpg", FileSize: 300, SyncDate: time.Now()}))

	backend.objects["2024/01/01/a.jpg"] = 100  // verified
	backend.objects["2024/01/01/b.jpg"] = 999  // size mismatch
	backend.missing["2024/01/01/c.jpg"] = true // missing

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil })

	job, results, err := engine.VerifyBackup(ctx, dest.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalPhotos)
	assert.Equal(t, 1, job.VerifiedCount)
	assert.Equal(t, 1, job.MismatchCount)
	assert.Equal(t, 1, job.MissingCount)
	assert.Equal(t, 0, job.ErrorCount)
	assert.Len(t, results, 3)

	unverified, err := c.GetUnverifiedPhotos(ctx, dest.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	ids := make(map[string]bool)
	for _, p := range unverified {
		ids[p.ID] = true
	}
	assert.False(t, ids["s1"], "verified photo should have lastVerifiedDate set")
	assert.True(t, ids["s2"])
	assert.True(t, ids["s3"])
}

func TestQuickVerification_SamplesWithoutReplacement(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		id := string(rune('a' + i))
		path := "2024/01/01/" + id + ".jpg"
		require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: id, LocalID: id, DestinationID: dest.ID, RemotePath: path, FileSize: 10, SyncDate: time.Now()}))
		backend.objects[path] = 10
	}

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil },
		verification.WithRand(rand.New(rand.NewSource(42))))

	job, results, err := engine.QuickVerification(ctx, dest.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, job.TotalPhotos)
	assert.Len(t, results, 5)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.SyncedPhoto.ID], "sample must not repeat a photo")
		seen[r.SyncedPhoto.ID] = true
	}
}

func TestQuickVerification_DefaultsSampleSizeWhenNonPositive(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		path := "2024/01/01/" + id + ".jpg"
		require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: id, LocalID: id, DestinationID: dest.ID, RemotePath: path, FileSize: 10, SyncDate: time.Now()}))
		backend.objects[path] = 10
	}

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil })

	job, _, err := engine.QuickVerification(ctx, dest.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, job.TotalPhotos, "sample size clamps to the available population")
}

func TestGetUnverifiedPhotos_DefaultsToThirtyDays(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()
	ctx := context.Background()

	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "old", LocalID: "old", DestinationID: dest.ID, RemotePath: "x", FileSize: 1, SyncDate: time.Now()}))

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil })

	unverified, err := engine.GetUnverifiedPhotos(ctx, dest.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, unverified, 1, "a never-verified photo is always unverified regardless of window")
}

func TestDetectGaps_ReportsUnsyncedAndModified(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()
	ctx := context.Background()

	syncedAt := time.Now().Add(-time.Hour)
	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s1", LocalID: "unchanged", DestinationID: dest.ID, RemotePath: "a", FileSize: 1, SyncDate: syncedAt}))
	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s2", LocalID: "stale", DestinationID: dest.ID, RemotePath: "b", FileSize: 1, SyncDate: syncedAt}))

	source := &fakeSource{photos: []domain.PhotoMetadata{
		{LocalIdentifier: "unchanged", ModificationDate: syncedAt.Add(-time.Minute)},
		{LocalIdentifier: "stale", ModificationDate: time.Now()},
		{LocalIdentifier: "new", ModificationDate: time.Now()},
	}}

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil })

	result, err := engine.DetectGaps(ctx, source, dest.ID, domain.FilterFullLibrary)
	require.NoError(t, err)
	require.Len(t, result.Unsynced, 1)
	assert.Equal(t, "new", result.Unsynced[0].LocalIdentifier)
	require.Len(t, result.Modified, 1)
	assert.Equal(t, "stale", result.Modified[0].LocalIdentifier)
}

func TestReuploadFailedPhotos_DeletesRemoteAndCatalogRow(t *testing.T) {
	c := newTestCatalog(t)
	dest := newTestDestination(t, c)
	backend := newFakeBackend()
	ctx := context.Background()

	require.NoError(t, c.UpsertSynced(ctx, domain.SyncedPhoto{ID: "s1", LocalID: "p1", DestinationID: dest.ID, RemotePath: "a", FileSize: 1, SyncDate: time.Now()}))
	backend.objects["a"] = 1

	engine := verification.New(c, getDestFor(c), func(domain.Destination) (ports.DestinationBackend, error) { return backend, nil })

	results := []domain.PhotoVerificationResult{
		{SyncedPhoto: domain.SyncedPhoto{ID: "s1", RemotePath: "a"}, Status: domain.PhotoVerificationChecksumMismatch},
	}
	require.NoError(t, engine.ReuploadFailedPhotos(ctx, results, nil, backend))

	_, ok := backend.objects["a"]
	assert.False(t, ok, "remote object should be deleted")

	synced, err := c.ListSyncedForDestination(ctx, dest.ID)
	require.NoError(t, err)
	assert.Empty(t, synced, "catalog row should be deleted so the next backup re-enqueues it")
}
