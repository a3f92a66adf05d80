// Package ports defines the interfaces every component programs against.
// They exist so the sync/verification engines, the scheduler, and the
// CLI depend on behavior, not concrete backends — a fixture PhotoSource
// or an in-memory Catalog can stand in during tests.
package ports

import (
	"context"
	"time"

	"github.com/photobackup/engine/internal/domain"
)

// Catalog is the durable, single-writer-per-process store for every
// persisted entity the engine owns.
type Catalog interface {
	BatchGetSynced(ctx context.Context, localIDs []string, destID string) (map[string]domain.SyncedPhoto, error)
	UpsertSynced(ctx context.Context, photo domain.SyncedPhoto) error
	UpsertSyncedBatch(ctx context.Context, photos []domain.SyncedPhoto) error
	DeleteSynced(ctx context.Context, id string) error
	ListSyncedForDestination(ctx context.Context, destID string) ([]domain.SyncedPhoto, error)
	UpdateLastVerifiedBatch(ctx context.Context, ids []string, when time.Time) error
	GetUnverifiedPhotos(ctx context.Context, destID string, olderThan time.Time) ([]domain.SyncedPhoto, error)

	CreateJob(ctx context.Context, job domain.SyncJob) error
	UpdateJob(ctx context.Context, job domain.SyncJob) error
	GetJob(ctx context.Context, id string) (domain.SyncJob, error)
	RecentJobs(ctx context.Context, limit int) ([]domain.SyncJob, error)
	CleanupStaleJobs(ctx context.Context) (int, error)

	SaveLogs(ctx context.Context, entries []domain.LogEntry) error
	PurgeOlderThan(ctx context.Context, days int) error

	RecordError(ctx context.Context, syncErr domain.SyncError) error
	ListErrorsForJob(ctx context.Context, jobID string) ([]domain.SyncError, error)

	CreateDestination(ctx context.Context, dest domain.Destination) error
	GetDestination(ctx context.Context, id string) (domain.Destination, error)
	ListDestinations(ctx context.Context) ([]domain.Destination, error)
	UpdateHealth(ctx context.Context, id string, status domain.HealthStatus, checkedAt time.Time) error
	DeleteDestination(ctx context.Context, id string) error

	UpsertSchedule(ctx context.Context, job domain.ScheduledBackupJob) error
	ListEnabledSchedules(ctx context.Context) ([]domain.ScheduledBackupJob, error)
	ListDueSchedules(ctx context.Context, now time.Time) ([]domain.ScheduledBackupJob, error)
	ToggleSchedule(ctx context.Context, id string, enabled bool) error
	RecordScheduleRun(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, status domain.JobStatus) error
	DeleteSchedulesByDestination(ctx context.Context, destID string) error

	Close() error
}

// ProgressFunc reports a monotonically non-decreasing fraction in [0,1],
// with a final call at exactly 1.0.
type ProgressFunc func(fraction float64)

// DestinationBackend is the capability contract every backup target
// implements: object-store, SMB, SFTP, and FTP variants.
type DestinationBackend interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	TestConnection(ctx context.Context) error

	Upload(ctx context.Context, localFile, remotePath string, progress ProgressFunc) (domain.UploadResult, error)
	Exists(ctx context.Context, remotePath string) (bool, error)
	Stat(ctx context.Context, remotePath string) (*domain.FileMeta, error)
	List(ctx context.Context, directory string) ([]domain.FileMeta, error)
	Delete(ctx context.Context, remotePath string) error
	Download(ctx context.Context, remotePath string, progress ProgressFunc) ([]byte, error)
	VerifyChecksum(ctx context.Context, remotePath, expected string) (bool, error)
}

// PhotoSource is the read-only external collaborator over the photo
// library. No mutating operation on the underlying library may ever be
// invoked through this contract.
type PhotoSource interface {
	RequestAuthorization(ctx context.Context) (bool, error)
	FetchPhotos(ctx context.Context, filter domain.DateRangeFilter) ([]domain.PhotoMetadata, error)
	ExportPhoto(ctx context.Context, photo domain.PhotoMetadata, progress ProgressFunc) (domain.ExportResult, error)
	CancelExport()
}

// SyncEngine orchestrates one backup job end to end.
type SyncEngine interface {
	Start(ctx context.Context, destID string, filter domain.DateRangeFilter) (domain.SyncJob, error)
	Pause(jobID string) error
	Resume(jobID string) error
	Cancel(jobID string) error
	CurrentJob() (domain.SyncJob, bool)
}

// VerificationEngine runs integrity scans and gap detection against a
// destination's recorded sync state.
type VerificationEngine interface {
	VerifyBackup(ctx context.Context, destID string, updateLastVerified bool) (domain.VerificationJob, []domain.PhotoVerificationResult, error)
	QuickVerification(ctx context.Context, destID string, sampleSize int) (domain.VerificationJob, []domain.PhotoVerificationResult, error)
	GetUnverifiedPhotos(ctx context.Context, destID string, olderThan time.Time) ([]domain.SyncedPhoto, error)
	DetectGaps(ctx context.Context, source PhotoSource, destID string, filter domain.DateRangeFilter) (domain.GapDetectionResult, error)
	ReuploadFailedPhotos(ctx context.Context, results []domain.PhotoVerificationResult, source PhotoSource, dest DestinationBackend) error
}

// ResourceGate reports whether a scheduled run may proceed right now
// (disk space, charging state, thermal headroom). The scheduler consults
// every registered gate before dispatching a due job.
type ResourceGate interface {
	Name() string
	Allow(ctx context.Context) (bool, error)
}

// Scheduler detects due ScheduledBackupJob rows and dispatches them to a
// SyncEngine, subject to its configured time window and ResourceGates.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	AddSchedule(ctx context.Context, job domain.ScheduledBackupJob) error
	RemoveSchedule(ctx context.Context, id string) error
}

// Notification is the fire-and-forget event bus the host subscribes to.
// Publish never blocks the caller; under backpressure it drops events.
type Notification interface {
	Publish(event interface{})
	Subscribe(buffer int) (ch <-chan interface{}, unsubscribe func())
}
