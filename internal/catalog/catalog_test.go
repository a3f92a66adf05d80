package catalog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "photobackup.db")

	c, err := Open(path, MigrationModeVersioned)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newDestination(t *testing.T, c *Catalog) domain.Destination {
	t.Helper()
	dest := domain.Destination{
		ID:           uuid.NewString(),
		Name:         "test-s3",
		Type:         domain.DestinationTypeS3,
		ConfigBlob:   []byte("encrypted-blob"),
		CreatedAt:    time.Now().UTC().Truncate(time.Second),
		HealthStatus: domain.HealthStatusUnknown,
	}
	require.NoError(t, c.CreateDestination(context.Background(), dest))
	return dest
}

func TestCreateGetListDestination(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()

	dest := newDestination(t, c)

	got, err := c.GetDestination(ctx, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, dest.Name, got.Name)
	assert.Equal(t, dest.Type, got.Type)
	assert.Equal(t, dest.ConfigBlob, got.ConfigBlob)
	assert.Nil(t, got.LastHealthCheck)

	list, err := c.ListDestinations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestGetDestination_NotFound(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.GetDestination(context.Background(), "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdateHealth(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	checkedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, c.UpdateHealth(ctx, dest.ID, domain.HealthStatusHealthy, checkedAt))

	got, err := c.GetDestination(ctx, dest.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthStatusHealthy, got.HealthStatus)
	require.NotNil(t, got.LastHealthCheck)
	assert.WithinDuration(t, checkedAt, *got.LastHealthCheck, time.Second)
}

func TestUpsertSynced_OverwritesOnSameKey(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	photo := domain.SyncedPhoto{
		ID:            uuid.NewString(),
		LocalID:       "local-1",
		DestinationID: dest.ID,
		RemotePath:    "2026/07/30/IMG_0001.jpg",
		Checksum:      "abc123",
		SyncDate:      time.Now().UTC().Truncate(time.Second),
		FileSize:      1024,
	}
	require.NoError(t, c.UpsertSynced(ctx, photo))

	photo.Checksum = "def456"
	photo.FileSize = 2048
	require.NoError(t, c.UpsertSynced(ctx, photo))

	synced, err := c.BatchGetSynced(ctx, []string{"local-1"}, dest.ID)
	require.NoError(t, err)
	require.Contains(t, synced, "local-1")
	assert.Equal(t, "def456", synced["local-1"].Checksum)
	assert.Equal(t, int64(2048), synced["local-1"].FileSize)
}

func TestUpsertSyncedBatch_AndListForDestination(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	photos := make([]domain.SyncedPhoto, 0, 5)
	for i := 0; i < 5; i++ {
		photos = append(photos, domain.SyncedPhoto{
			ID:            uuid.NewString(),
			LocalID:       uuid.NewString(),
			DestinationID: dest.ID,
			RemotePath:    "2026/07/30/photo.jpg",
			Checksum:      "sum",
			SyncDate:      time.Now().UTC().Truncate(time.Second),
			FileSize:      100,
		})
	}
	require.NoError(t, c.UpsertSyncedBatch(ctx, photos))

	list, err := c.ListSyncedForDestination(ctx, dest.ID)
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestGetUnverifiedPhotos(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	photo := domain.SyncedPhoto{
		ID:            uuid.NewString(),
		LocalID:       "local-1",
		DestinationID: dest.ID,
		RemotePath:    "path.jpg",
		Checksum:      "sum",
		SyncDate:      time.Now().UTC().Truncate(time.Second),
		FileSize:      100,
	}
	require.NoError(t, c.UpsertSynced(ctx, photo))

	unverified, err := c.GetUnverifiedPhotos(ctx, dest.ID, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, unverified, 1)

	cutoff := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, c.UpdateLastVerifiedBatch(ctx, []string{photo.ID}, time.Now().UTC()))

	unverified, err = c.GetUnverifiedPhotos(ctx, dest.ID, cutoff)
	require.NoError(t, err)
	assert.Empty(t, unverified)
}

func TestJobLifecycle(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	job := domain.SyncJob{
		ID:            uuid.NewString(),
		DestinationID: dest.ID,
		Status:        domain.JobStatusRunning,
		StartTime:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, c.CreateJob(ctx, job))

	job.Status = domain.JobStatusCompleted
	job.PhotosScanned = 10
	job.PhotosSynced = 9
	job.PhotosFailed = 1
	now := time.Now().UTC().Truncate(time.Second)
	job.EndTime = &now
	speed := 3.5
	job.AverageSpeed = &speed
	require.NoError(t, c.UpdateJob(ctx, job))

	got, err := c.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 9, got.PhotosSynced)
	assert.Equal(t, 1, got.PhotosFailed)
	require.NotNil(t, got.AverageSpeed)
	assert.InDelta(t, 3.5, *got.AverageSpeed, 0.001)

	recent, err := c.RecentJobs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
}

func TestUpdateJob_NotFound(t *testing.T) {
	c := newTestCatalog(t)
	err := c.UpdateJob(context.Background(), domain.SyncJob{ID: "missing", Status: domain.JobStatusFailed})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCleanupStaleJobs_RecoversRunningAndPaused(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	running := domain.SyncJob{ID: uuid.NewString(), DestinationID: dest.ID, Status: domain.JobStatusRunning, StartTime: time.Now().UTC()}
	paused := domain.SyncJob{ID: uuid.NewString(), DestinationID: dest.ID, Status: domain.JobStatusPaused, StartTime: time.Now().UTC()}
	require.NoError(t, c.CreateJob(ctx, running))
	require.NoError(t, c.CreateJob(ctx, paused))

	n, err := c.CleanupStaleJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := c.GetJob(ctx, running.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
}

func TestRecordAndListErrors(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	job := domain.SyncJob{ID: uuid.NewString(), DestinationID: dest.ID, Status: domain.JobStatusRunning, StartTime: time.Now().UTC()}
	require.NoError(t, c.CreateJob(ctx, job))

	syncErr := domain.SyncError{
		ID:            uuid.NewString(),
		JobID:         job.ID,
		PhotoID:       "local-1",
		ErrorMessage:  "connection reset",
		ErrorCategory: domain.ErrorCategoryNetwork,
		Timestamp:     time.Now().UTC().Truncate(time.Second),
		RetryCount:    2,
	}
	require.NoError(t, c.RecordError(ctx, syncErr))

	recorded, err := c.ListErrorsForJob(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, domain.ErrorCategoryNetwork, recorded[0].ErrorCategory)
}

func TestSaveLogsAndPurge(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	job := domain.SyncJob{ID: uuid.NewString(), DestinationID: dest.ID, Status: domain.JobStatusRunning, StartTime: time.Now().UTC().AddDate(0, 0, -30)}
	require.NoError(t, c.CreateJob(ctx, job))

	entries := []domain.LogEntry{
		{ID: uuid.NewString(), JobID: job.ID, Timestamp: time.Now().UTC(), Level: domain.LogLevelInfo, Category: "sync", Message: "started"},
		{ID: uuid.NewString(), JobID: job.ID, Timestamp: time.Now().UTC(), Level: domain.LogLevelSuccess, Category: "sync", Message: "photo uploaded", PhotoID: "local-1"},
	}
	require.NoError(t, c.SaveLogs(ctx, entries))
	require.NoError(t, c.SaveLogs(ctx, nil))

	require.NoError(t, c.PurgeOlderThan(ctx, 14))

	_, err := c.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestScheduleLifecycle(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	sched := domain.ScheduledBackupJob{
		ID:            uuid.NewString(),
		DestinationID: dest.ID,
		Name:          "nightly",
		IsEnabled:     true,
		ScheduleType:  domain.ScheduleType{Kind: domain.ScheduleDaily, Hour: 2, Minute: 30},
		Filter:        domain.FilterLast24h,
		CreatedAt:     time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, c.UpsertSchedule(ctx, sched))

	enabled, err := c.ListEnabledSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, domain.ScheduleDaily, enabled[0].ScheduleType.Kind)
	assert.Equal(t, 2, enabled[0].ScheduleType.Hour)
	assert.Equal(t, 30, enabled[0].ScheduleType.Minute)

	due := time.Now().UTC().Add(-time.Hour)
	sched.NextRunTime = &due
	require.NoError(t, c.UpsertSchedule(ctx, sched))

	dueSchedules, err := c.ListDueSchedules(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, dueSchedules, 1)

	last := time.Now().UTC().Truncate(time.Second)
	next := last.Add(24 * time.Hour)
	require.NoError(t, c.RecordScheduleRun(ctx, sched.ID, last, &next, domain.JobStatusCompleted))

	require.NoError(t, c.ToggleSchedule(ctx, sched.ID, false))
	enabled, err = c.ListEnabledSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	require.NoError(t, c.DeleteSchedulesByDestination(ctx, dest.ID))
	all, err := c.ListDueSchedules(ctx, time.Now().UTC().Add(365*24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteDestination_CascadesToSyncedPhotosJobsAndSchedules(t *testing.T) {
	c := newTestCatalog(t)
	ctx := context.Background()
	dest := newDestination(t, c)

	photo := domain.SyncedPhoto{
		ID: uuid.NewString(), LocalID: "local-1", DestinationID: dest.ID,
		RemotePath: "p.jpg", Checksum: "sum", SyncDate: time.Now().UTC(), FileSize: 1,
	}
	require.NoError(t, c.UpsertSynced(ctx, photo))

	job := domain.SyncJob{ID: uuid.NewString(), DestinationID: dest.ID, Status: domain.JobStatusCompleted, StartTime: time.Now().UTC()}
	require.NoError(t, c.CreateJob(ctx, job))

	sched := domain.ScheduledBackupJob{
		ID: uuid.NewString(), DestinationID: dest.ID, Name: "n", IsEnabled: true,
		ScheduleType: domain.ScheduleType{Kind: domain.ScheduleDaily, Hour: 1, Minute: 0},
		Filter:       domain.FilterLast24h, CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, c.UpsertSchedule(ctx, sched))

	require.NoError(t, c.DeleteDestination(ctx, dest.ID))

	list, err := c.ListSyncedForDestination(ctx, dest.ID)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = c.GetJob(ctx, job.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	schedules, err := c.ListEnabledSchedules(ctx)
	require.NoError(t, err)
	assert.Empty(t, schedules)
}
