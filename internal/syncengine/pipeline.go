package syncengine

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/notification"
	"github.com/photobackup/engine/internal/ports"
)

// dedupDecision classifies why a photo was (or wasn't) enqueued, purely
// for log-message detail.
type dedupDecision string

const (
	decisionNew              dedupDecision = "new"
	decisionModified         dedupDecision = "modified"
	decisionRemoteVerifyFail dedupDecision = "remote-verify-failed"
)

func (e *Engine) run(ctx context.Context, aj *activeJob, filter domain.DateRangeFilter) {
	jobLog := e.logger.With(zap.String("job_id", aj.job.ID))
	go aj.logs.run(ctx)
	defer aj.logs.Stop()

	dest, err := e.getDest(ctx, aj.job.DestinationID)
	if err != nil {
		e.failJob(ctx, aj, err, "failed to load destination")
		return
	}

	backend, err := e.backendOf(dest)
	if err != nil {
		e.failJob(ctx, aj, err, "failed to construct destination backend")
		return
	}

	aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelInfo, "connection", "connecting", ""))
	if err := backend.Connect(ctx); err != nil {
		e.failJob(ctx, aj, err, "failed to connect to destination")
		return
	}
	defer backend.Disconnect(context.Background()) //nolint:errcheck
	aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelInfo, "connection", "connected", ""))

	photos, err := e.source.FetchPhotos(ctx, filter)
	if err != nil {
		e.failJob(ctx, aj, err, "failed to fetch photos from source")
		return
	}

	aj.mu.Lock()
	aj.job.PhotosScanned = len(photos)
	aj.mu.Unlock()

	localIDs := make([]string, len(photos))
	for i, p := range photos {
		localIDs[i] = p.LocalIdentifier
	}

	synced, err := e.catalog.BatchGetSynced(ctx, localIDs, aj.job.DestinationID)
	if err != nil {
		e.failJob(ctx, aj, err, "failed to load existing sync state")
		return
	}

	queue := e.dedup(ctx, aj, backend, photos, synced)

	if len(queue) == 0 {
		jobLog.Info("no photos require syncing", zap.Error(errs.ErrNoPhotosToSync))
		aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelInfo, "dedup", errs.ErrNoPhotosToSync.Error(), ""))
		e.completeJob(ctx, aj)
		return
	}

	e.runWorkerPool(ctx, aj, backend, queue)

	if aj.cancelled.Load() {
		e.cancelJob(ctx, aj)
		return
	}
	e.completeJob(ctx, aj)
}

// dedup applies the three-way decision (new/modified/remote-verify-failed
// → enqueue, verified → skip) for every fetched photo.
func (e *Engine) dedup(ctx context.Context, aj *activeJob, backend ports.DestinationBackend, photos []domain.PhotoMetadata, synced map[string]domain.SyncedPhoto) []domain.PhotoMetadata {
	queue := make([]domain.PhotoMetadata, 0, len(photos))

	for _, p := range photos {
		existing, ok := synced[p.LocalIdentifier]
		if !ok {
			aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelDebug, "dedup", string(decisionNew), p.LocalIdentifier))
			queue = append(queue, p)
			continue
		}
		if p.ModificationDate.After(existing.SyncDate) {
			aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelDebug, "dedup", string(decisionModified), p.LocalIdentifier))
			queue = append(queue, p)
			continue
		}

		meta, err := backend.Stat(ctx, existing.RemotePath)
		if err != nil || meta == nil || meta.Size != existing.FileSize {
			aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelDebug, "dedup", string(decisionRemoteVerifyFail), p.LocalIdentifier))
			queue = append(queue, p)
			continue
		}
	}
	return queue
}

func (e *Engine) runWorkerPool(ctx context.Context, aj *activeJob, backend ports.DestinationBackend, queue []domain.PhotoMetadata) {
	jobsCh := make(chan domain.PhotoMetadata)
	workerExit := make(chan struct{}, e.concurrency)

	for i := 0; i < e.concurrency; i++ {
		go func() {
			defer func() { workerExit <- struct{}{} }()
			for photo := range jobsCh {
				for aj.paused.Load() && !aj.cancelled.Load() && ctx.Err() == nil {
					time.Sleep(pauseStepInterval)
				}
				if aj.cancelled.Load() {
					continue
				}
				e.processOne(ctx, aj, backend, photo)
			}
		}()
	}

	go func() {
		defer close(jobsCh)
		for _, photo := range queue {
			if aj.cancelled.Load() || ctx.Err() != nil {
				return
			}
			select {
			case jobsCh <- photo:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < e.concurrency; i++ {
		<-workerExit
	}
}

func (e *Engine) processOne(ctx context.Context, aj *activeJob, backend ports.DestinationBackend, photo domain.PhotoMetadata) {
	err := e.uploadPhoto(ctx, aj, backend, photo)
	if err != nil {
		category := classify(err)
		aj.mu.Lock()
		aj.job.PhotosFailed++
		aj.mu.Unlock()

		syncErr := domain.SyncError{
			ID:            uuid.NewString(),
			JobID:         aj.job.ID,
			PhotoID:       photo.LocalIdentifier,
			ErrorMessage:  err.Error(),
			ErrorCategory: category,
			Timestamp:     time.Now(),
		}
		if recErr := e.catalog.RecordError(ctx, syncErr); recErr != nil {
			e.logger.Error("failed recording sync error", zap.Error(recErr))
		}
		aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelError, "sync", err.Error(), photo.LocalIdentifier))
		return
	}

	aj.mu.Lock()
	aj.job.PhotosSynced++
	elapsed := time.Since(aj.startedAt).Seconds()
	if elapsed > 0 {
		speed := float64(aj.job.BytesTransferred) / 1024 / 1024 / elapsed
		aj.job.AverageSpeed = &speed
	}
	aj.mu.Unlock()

	aj.logs.Append(ctx, logEntry(aj.job.ID, domain.LogLevelSuccess, "sync", "uploaded", photo.LocalIdentifier))
}

func (e *Engine) uploadPhoto(ctx context.Context, aj *activeJob, backend ports.DestinationBackend, photo domain.PhotoMetadata) error {
	export, err := e.source.ExportPhoto(ctx, photo, nil)
	if err != nil {
		return err
	}
	defer os.Remove(export.URL)

	localPath := export.URL
	if e.encryptOn {
		if e.encryptor == nil || !e.encryptor.Unlocked() {
			return errs.ErrKeyNotFound
		}
		encPath := export.URL + ".encrypted"
		if err := e.encryptor.EncryptFile(export.URL, encPath); err != nil {
			return err
		}
		defer os.Remove(encPath)
		localPath = encPath
	}

	remote := remotePath(photo, e.filenames, e.encryptOn)
	result, err := backend.Upload(ctx, localPath, remote, nil)
	if err != nil {
		return err
	}

	synced := domain.SyncedPhoto{
		ID:            uuid.NewString(),
		LocalID:       photo.LocalIdentifier,
		DestinationID: aj.job.DestinationID,
		RemotePath:    result.RemotePath,
		Checksum:      result.Checksum,
		SyncDate:      time.Now(),
		FileSize:      result.Size,
	}
	if err := e.catalog.UpsertSynced(ctx, synced); err != nil {
		return err
	}

	aj.mu.Lock()
	aj.job.BytesTransferred += result.Size
	aj.mu.Unlock()
	return nil
}

func (e *Engine) failJob(ctx context.Context, aj *activeJob, cause error, msg string) {
	aj.mu.Lock()
	aj.job.Status = domain.JobStatusFailed
	end := time.Now()
	aj.job.EndTime = &end
	job := aj.job
	aj.mu.Unlock()

	aj.logs.Append(ctx, logEntry(job.ID, domain.LogLevelError, "job", msg+": "+cause.Error(), ""))

	if err := e.catalog.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("failed persisting failed job", zap.Error(err))
	}
	e.publishBackup(notification.EventBackupFailed, job, cause)
}

func (e *Engine) cancelJob(ctx context.Context, aj *activeJob) {
	aj.mu.Lock()
	aj.job.Status = domain.JobStatusCancelled
	end := time.Now()
	aj.job.EndTime = &end
	job := aj.job
	aj.mu.Unlock()

	aj.logs.Append(ctx, logEntry(job.ID, domain.LogLevelWarning, "job", "cancelled", ""))

	if err := e.catalog.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("failed persisting cancelled job", zap.Error(err))
	}
	e.publishBackup(notification.EventBackupCancelled, job, nil)
}

func (e *Engine) completeJob(ctx context.Context, aj *activeJob) {
	aj.mu.Lock()
	aj.job.Status = domain.JobStatusCompleted
	end := time.Now()
	aj.job.EndTime = &end
	job := aj.job
	aj.mu.Unlock()

	aj.logs.Append(ctx, logEntry(job.ID, domain.LogLevelInfo, "job", "completed", ""))

	if err := e.catalog.UpdateJob(context.Background(), job); err != nil {
		e.logger.Error("failed persisting completed job", zap.Error(err))
	}
	e.publishBackup(notification.EventBackupCompleted, job, nil)
}

func logEntry(jobID string, level domain.LogLevel, category, message, photoID string) domain.LogEntry {
	return domain.LogEntry{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Timestamp: time.Now(),
		Level:     level,
		Category:  category,
		Message:   message,
		PhotoID:   photoID,
	}
}
