// Package domain holds the value types shared across every component:
// the catalog's persisted rows, the photo source's external contract
// types, and the small enums that thread through job and schedule state.
package domain

import "time"

// MediaType classifies a photo library asset.
type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeVideo   MediaType = "video"
	MediaTypeAudio   MediaType = "audio"
	MediaTypeUnknown MediaType = "unknown"
)

// PhotoMetadata is the source-provided identity of a library asset.
// localIdentifier is opaque and stable for the asset's lifetime in the
// library; it is not a filename and carries no path information.
type PhotoMetadata struct {
	LocalIdentifier  string
	CreationDate     *time.Time
	ModificationDate time.Time
	MediaType        MediaType
	PixelWidth       int
	PixelHeight      int
	OriginalFilename string
	FileSize         int64
}

// ExportResult is what PhotoSource.ExportPhoto hands back: a local temp
// file plus the checksum computed while writing it.
type ExportResult struct {
	URL    string
	Size   int64
	SHA256 string
}

// DateRangeFilter selects which library assets a fetch considers.
type DateRangeFilter string

const (
	FilterLast24h     DateRangeFilter = "last24h"
	FilterLast7d      DateRangeFilter = "last7d"
	FilterLast30d     DateRangeFilter = "last30d"
	FilterLast90d     DateRangeFilter = "last90d"
	FilterFullLibrary DateRangeFilter = "fullLibrary"
	FilterCustomRange DateRangeFilter = "customRange"
)

// SyncedPhoto is the catalog's record of one photo successfully synced to
// one destination. (LocalID, DestinationID) is the effective key: a
// re-sync of the same pair overwrites the row.
type SyncedPhoto struct {
	ID               string
	LocalID          string
	DestinationID    string
	RemotePath       string
	Checksum         string // hex-sha256
	SyncDate         time.Time
	FileSize         int64
	LastVerifiedDate *time.Time
	FileMetadata     map[string]string
}

// JobStatus is a SyncJob's lifecycle state.
type JobStatus string

const (
	JobStatusRunning   JobStatus = "running"
	JobStatusPaused    JobStatus = "paused"
	JobStatusCompleted JobStatus = "completed"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusFailed    JobStatus = "failed"
)

// SyncJob tracks one backup run against one destination. Invariant:
// exactly one SyncJob may be running|paused per process at any time.
type SyncJob struct {
	ID               string
	DestinationID    string
	Status           JobStatus
	StartTime        time.Time
	EndTime          *time.Time
	PhotosScanned    int
	PhotosSynced     int
	PhotosFailed     int
	BytesTransferred int64
	AverageSpeed     *float64 // MiB/s
}

// ErrorCategory is the stable classification tag attached to every
// SyncError, used for aggregate reporting.
type ErrorCategory string

const (
	ErrorCategoryNetwork    ErrorCategory = "network"
	ErrorCategoryAuth       ErrorCategory = "auth"
	ErrorCategoryIO         ErrorCategory = "io"
	ErrorCategoryEncryption ErrorCategory = "encryption"
	ErrorCategorySource     ErrorCategory = "source"
	ErrorCategoryUnknown    ErrorCategory = "unknown"
)

// SyncError is an append-only record of one photo's pipeline failure.
// Deleted with its owning job. errorMessage carries both the rendered
// string and errorCategory the stable tag, per the open question in the
// design notes: both forms are persisted rather than just one.
type SyncError struct {
	ID            string
	JobID         string
	PhotoID       string
	ErrorMessage  string
	ErrorCategory ErrorCategory
	Timestamp     time.Time
	RetryCount    int
}

// LogLevel is a structured log entry's severity.
type LogLevel string

const (
	LogLevelDebug   LogLevel = "debug"
	LogLevelInfo    LogLevel = "info"
	LogLevelSuccess LogLevel = "success"
	LogLevelWarning LogLevel = "warning"
	LogLevelError   LogLevel = "error"
)

// LogEntry is one append-only SyncLog/VerificationLog row.
type LogEntry struct {
	ID        string
	JobID     string
	Timestamp time.Time
	Level     LogLevel
	Category  string
	Message   string
	PhotoID   string
	PhotoPath string
	Details   map[string]string
}

// DestinationType names a supported backend protocol.
type DestinationType string

const (
	DestinationTypeS3   DestinationType = "s3"
	DestinationTypeSMB  DestinationType = "smb"
	DestinationTypeSFTP DestinationType = "sftp"
	DestinationTypeFTP  DestinationType = "ftp"
)

// HealthStatus is the last-observed reachability of a destination.
type HealthStatus string

const (
	HealthStatusUnknown     HealthStatus = "unknown"
	HealthStatusHealthy     HealthStatus = "healthy"
	HealthStatusDegraded    HealthStatus = "degraded"
	HealthStatusUnreachable HealthStatus = "unreachable"
)

// Destination is a configured backup target. ConfigBlob is an opaque byte
// blob (the backend's JSON configuration, stored unencrypted) owned by the
// concrete backend; the catalog never interprets its contents.
type Destination struct {
	ID              string
	Name            string
	Type            DestinationType
	ConfigBlob      []byte
	CreatedAt       time.Time
	LastHealthCheck *time.Time
	HealthStatus    HealthStatus
}

// VerificationType selects how much of a destination a verification run covers.
type VerificationType string

const (
	VerificationTypeFull        VerificationType = "full"
	VerificationTypeQuick       VerificationType = "quick"
	VerificationTypeIncremental VerificationType = "incremental"
)

// VerificationJob tracks one integrity scan against one destination.
type VerificationJob struct {
	ID            string
	DestinationID string
	Type          VerificationType
	StartTime     time.Time
	EndTime       *time.Time
	TotalPhotos   int
	VerifiedCount int
	MismatchCount int
	MissingCount  int
	ErrorCount    int
}

// PhotoVerificationStatus is the per-photo outcome of a verification pass.
type PhotoVerificationStatus string

const (
	PhotoVerificationVerified         PhotoVerificationStatus = "verified"
	PhotoVerificationMissing          PhotoVerificationStatus = "missing"
	PhotoVerificationChecksumMismatch PhotoVerificationStatus = "checksumMismatch"
	PhotoVerificationError            PhotoVerificationStatus = "error"
)

// PhotoVerificationResult is one photo's outcome within a VerificationJob.
type PhotoVerificationResult struct {
	SyncedPhoto SyncedPhoto
	Status      PhotoVerificationStatus
	Err         error
}

// ScheduleType is a tagged union over the five recurrence shapes a
// ScheduledBackupJob may have. Exactly one of the payload fields is
// meaningful, selected by Kind.
type ScheduleKind string

const (
	ScheduleOneTime  ScheduleKind = "oneTime"
	ScheduleInterval ScheduleKind = "interval"
	ScheduleDaily    ScheduleKind = "daily"
	ScheduleWeekly   ScheduleKind = "weekly"
	ScheduleMonthly  ScheduleKind = "monthly"
)

// ScheduleType carries the recurrence parameters for one ScheduleKind.
type ScheduleType struct {
	Kind ScheduleKind

	At           time.Time    // oneTime
	IntervalSecs int          // interval
	Hour, Minute int          // daily, weekly, monthly
	Weekday      time.Weekday // weekly
	DayOfMonth   int          // monthly (clamped to the month's length)
}

// ScheduledBackupJob is a recurring or one-shot backup definition.
type ScheduledBackupJob struct {
	ID            string
	DestinationID string
	Name          string
	IsEnabled     bool
	ScheduleType  ScheduleType
	Filter        DateRangeFilter
	CreatedAt     time.Time
	LastRunTime   *time.Time
	NextRunTime   *time.Time
	LastRunStatus *JobStatus
}

// FileMeta is what a destination backend reports for one remote object.
type FileMeta struct {
	Path         string
	Size         int64
	ModifiedDate time.Time
	Checksum     string
}

// UploadResult is what a destination backend's Upload returns on success.
type UploadResult struct {
	RemotePath string
	Checksum   string
	Size       int64
	Duration   time.Duration
}

// GapDetectionResult is the output of VerificationEngine.DetectGaps.
type GapDetectionResult struct {
	Unsynced []PhotoMetadata
	Modified []PhotoMetadata
}
