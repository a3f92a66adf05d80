// Package syncengine implements the core backup pipeline: dedup against
// the catalog's recorded state, a bounded worker pool that exports,
// optionally encrypts, and uploads each outstanding photo, and the
// pause/resume/cancel state machine guarding the single active job.
package syncengine

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/encryption"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/logger"
	"github.com/photobackup/engine/internal/notification"
	"github.com/photobackup/engine/internal/ports"
)

const (
	defaultConcurrency = 3
	minConcurrency     = 1
	maxConcurrency     = 10

	pauseStepInterval = 500 * time.Millisecond
)

// BackendFactory builds the DestinationBackend for one destination row,
// e.g. destination.New bound to a configured Multipart policy.
type BackendFactory func(domain.Destination) (ports.DestinationBackend, error)

// Engine is the process-wide SyncEngine: one instance guards its own
// single-active-job invariant with a mutex, re-checked by the scheduler
// before every dispatch.
type Engine struct {
	catalog     ports.Catalog
	source      ports.PhotoSource
	getDest     func(ctx context.Context, id string) (domain.Destination, error)
	backendOf   BackendFactory
	encryptor   *encryption.Encryptor
	encryptOn   bool
	notify      ports.Notification
	concurrency int
	filenames   FilenameStrategy
	logger      *zap.Logger

	mu  sync.Mutex
	job *activeJob
}

// Option configures optional Engine behavior at construction.
type Option func(*Engine)

// WithConcurrency overrides the default worker-pool width, clamped 1..10.
func WithConcurrency(n int) Option {
	return func(e *Engine) { e.concurrency = clampConcurrency(n) }
}

// WithEncryption enables per-job encryption through encryptor. The
// Encryptor must already be unlocked (Setup or Verify called) before any
// job starts, or every photo in that job fails with ErrKeyNotFound.
func WithEncryption(encryptor *encryption.Encryptor) Option {
	return func(e *Engine) {
		e.encryptor = encryptor
		e.encryptOn = true
	}
}

// WithFilenameStrategy overrides the default (original-filename) remote
// basename strategy.
func WithFilenameStrategy(s FilenameStrategy) Option {
	return func(e *Engine) { e.filenames = s }
}

// WithNotification attaches an event bus; events are dropped if nil.
func WithNotification(n ports.Notification) Option {
	return func(e *Engine) { e.notify = n }
}

func clampConcurrency(n int) int {
	if n < minConcurrency {
		return minConcurrency
	}
	if n > maxConcurrency {
		return maxConcurrency
	}
	return n
}

// New builds an Engine. getDest resolves a destination ID to its catalog
// row (typically catalog.GetDestination), and backendOf turns that row
// into a live DestinationBackend.
func New(catalog ports.Catalog, source ports.PhotoSource, getDest func(context.Context, string) (domain.Destination, error), backendOf BackendFactory, opts ...Option) *Engine {
	e := &Engine{
		catalog:     catalog,
		source:      source,
		getDest:     getDest,
		backendOf:   backendOf,
		concurrency: defaultConcurrency,
		filenames:   FilenameOriginal,
		logger:      logger.Named("syncengine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.SyncEngine = (*Engine)(nil)

// activeJob is the mutable state of one in-flight SyncJob, guarded by its
// own mutex so workers can update counters without contending the
// Engine-level lock that only gates start/stop transitions.
type activeJob struct {
	mu        sync.Mutex
	job       domain.SyncJob
	startedAt time.Time

	paused    atomic.Bool
	cancelled atomic.Bool

	logs *logBuffer
}

func (a *activeJob) snapshot() domain.SyncJob {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.job
}

func (a *activeJob) setStatus(status domain.JobStatus) {
	a.mu.Lock()
	a.job.Status = status
	a.mu.Unlock()
}

// Start begins a new backup job against destID. Only one job may be
// running|paused per Engine at a time.
func (e *Engine) Start(ctx context.Context, destID string, filter domain.DateRangeFilter) (domain.SyncJob, error) {
	e.mu.Lock()
	if e.job != nil {
		status := e.job.snapshot().Status
		if status == domain.JobStatusRunning || status == domain.JobStatusPaused {
			e.mu.Unlock()
			return domain.SyncJob{}, errs.ErrAlreadyRunning
		}
	}

	job := domain.SyncJob{
		ID:            uuid.NewString(),
		DestinationID: destID,
		Status:        domain.JobStatusRunning,
		StartTime:     time.Now(),
	}

	aj := &activeJob{job: job, startedAt: job.StartTime, logs: newLogBuffer(e.catalog, e.logger)}
	e.job = aj
	e.mu.Unlock()

	if err := e.catalog.CreateJob(ctx, job); err != nil {
		e.mu.Lock()
		e.job = nil
		e.mu.Unlock()
		return domain.SyncJob{}, err
	}

	runCtx := context.WithoutCancel(ctx)
	go e.run(runCtx, aj, filter)

	return job, nil
}

// Pause suspends worker dispatch at the next photo boundary. Valid only
// from the running state.
func (e *Engine) Pause(jobID string) error {
	aj := e.activeJobFor(jobID)
	if aj == nil {
		return errs.ErrNotRunning
	}
	if aj.snapshot().Status != domain.JobStatusRunning {
		return errs.ErrNotRunning
	}
	aj.paused.Store(true)
	aj.setStatus(domain.JobStatusPaused)
	return nil
}

// Resume lifts a pause. Valid only from the paused state.
func (e *Engine) Resume(jobID string) error {
	aj := e.activeJobFor(jobID)
	if aj == nil {
		return errs.ErrNotRunning
	}
	if aj.snapshot().Status != domain.JobStatusPaused {
		return errs.ErrNotRunning
	}
	aj.paused.Store(false)
	aj.setStatus(domain.JobStatusRunning)
	return nil
}

// Cancel requests termination at the next photo boundary. Valid from
// running or paused.
func (e *Engine) Cancel(jobID string) error {
	aj := e.activeJobFor(jobID)
	if aj == nil {
		return errs.ErrNotRunning
	}
	status := aj.snapshot().Status
	if status != domain.JobStatusRunning && status != domain.JobStatusPaused {
		return errs.ErrNotRunning
	}
	aj.cancelled.Store(true)
	aj.paused.Store(false) // unblock a paused worker loop so it can observe cancellation
	return nil
}

// CurrentJob reports the engine's active job, if any.
func (e *Engine) CurrentJob() (domain.SyncJob, bool) {
	e.mu.Lock()
	aj := e.job
	e.mu.Unlock()
	if aj == nil {
		return domain.SyncJob{}, false
	}
	return aj.snapshot(), true
}

func (e *Engine) activeJobFor(jobID string) *activeJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.job == nil || e.job.snapshot().ID != jobID {
		return nil
	}
	return e.job
}

func (e *Engine) publishBackup(eventType notification.EventType, job domain.SyncJob, err error) {
	if e.notify == nil {
		return
	}
	e.notify.Publish(notification.BackupEvent{
		Type:      eventType,
		JobID:     job.ID,
		Timestamp: time.Now(),
		Job:       job,
		Err:       err,
	})
}
