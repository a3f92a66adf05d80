package notification

import (
	"time"

	"github.com/photobackup/engine/internal/domain"
)

// EventType names one of the fire-and-forget event categories hosts may
// subscribe to, per the notification contract.
type EventType string

const (
	EventBackupStarted   EventType = "backupStarted"
	EventBackupCompleted EventType = "backupCompleted"
	EventBackupFailed    EventType = "backupFailed"
	EventBackupPaused    EventType = "backupPaused"
	EventBackupCancelled EventType = "backupCancelled"

	EventVerificationStarted   EventType = "verificationStarted"
	EventVerificationCompleted EventType = "verificationCompleted"
	EventVerificationFailed    EventType = "verificationFailed"

	EventScheduledStarted   EventType = "scheduledStarted"
	EventScheduledCompleted EventType = "scheduledCompleted"

	EventGapDetectionCompleted EventType = "gapDetectionCompleted"
)

// BackupEvent is published for every backupStarted/Completed/Failed/
// Paused/Cancelled transition of a SyncJob.
type BackupEvent struct {
	Type      EventType
	JobID     string
	Timestamp time.Time
	Job       domain.SyncJob
	Err       error // set only for backupFailed
}

// VerificationEvent is published for every verificationStarted/
// Completed/Failed transition of a VerificationJob.
type VerificationEvent struct {
	Type      EventType
	JobID     string
	Timestamp time.Time
	Job       domain.VerificationJob
	Err       error // set only for verificationFailed
}

// ScheduledEvent is published when the scheduler dispatches or finishes
// a scheduled backup job.
type ScheduledEvent struct {
	Type       EventType
	ScheduleID string
	JobID      string
	Timestamp  time.Time
}

// GapDetectionEvent is published once DetectGaps finishes.
type GapDetectionEvent struct {
	Type          EventType
	DestinationID string
	Timestamp     time.Time
	Result        domain.GapDetectionResult
}
