package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// CreateJob inserts a new SyncJob row. job.ID must already be set.
func (c *Catalog) CreateJob(ctx context.Context, job domain.SyncJob) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `
		INSERT INTO sync_jobs (id, destination_id, status, start_time, end_time, photos_scanned, photos_synced, photos_failed, bytes_transferred, average_speed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.DestinationID, job.Status, job.StartTime, nullTime(job.EndTime),
		job.PhotosScanned, job.PhotosSynced, job.PhotosFailed, job.BytesTransferred, nullFloat(job.AverageSpeed))
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// UpdateJob overwrites every mutable field of an existing SyncJob row.
func (c *Catalog) UpdateJob(ctx context.Context, job domain.SyncJob) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.writeDB.ExecContext(ctx, `
		UPDATE sync_jobs SET status = ?, end_time = ?, photos_scanned = ?, photos_synced = ?, photos_failed = ?, bytes_transferred = ?, average_speed = ?
		WHERE id = ?
	`, job.Status, nullTime(job.EndTime), job.PhotosScanned, job.PhotosSynced, job.PhotosFailed,
		job.BytesTransferred, nullFloat(job.AverageSpeed), job.ID)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	if n == 0 {
		return errs.ErrNotFound
	}
	return nil
}

// GetJob fetches a single SyncJob by id.
func (c *Catalog) GetJob(ctx context.Context, id string) (domain.SyncJob, error) {
	row := c.readDB.QueryRowContext(ctx, `
		SELECT id, destination_id, status, start_time, end_time, photos_scanned, photos_synced, photos_failed, bytes_transferred, average_speed
		FROM sync_jobs WHERE id = ?`, id)
	job, err := scanSyncJob(row)
	if err == sql.ErrNoRows {
		return domain.SyncJob{}, errs.ErrNotFound
	}
	if err != nil {
		return domain.SyncJob{}, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return job, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSyncJob(row rowScanner) (domain.SyncJob, error) {
	var j domain.SyncJob
	var endTime sql.NullTime
	var avgSpeed sql.NullFloat64

	err := row.Scan(&j.ID, &j.DestinationID, &j.Status, &j.StartTime, &endTime,
		&j.PhotosScanned, &j.PhotosSynced, &j.PhotosFailed, &j.BytesTransferred, &avgSpeed)
	if err != nil {
		return domain.SyncJob{}, err
	}
	if endTime.Valid {
		j.EndTime = &endTime.Time
	}
	if avgSpeed.Valid {
		j.AverageSpeed = &avgSpeed.Float64
	}
	return j, nil
}

// RecentJobs returns up to limit SyncJob rows, most recent first.
func (c *Catalog) RecentJobs(ctx context.Context, limit int) ([]domain.SyncJob, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT id, destination_id, status, start_time, end_time, photos_scanned, photos_synced, photos_failed, bytes_transferred, average_speed
		FROM sync_jobs ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()

	var out []domain.SyncJob
	for rows.Next() {
		j, err := scanSyncJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// CleanupStaleJobs rewrites any job left running|paused from a previous
// process (crash recovery) to failed, in a single transaction. Returns
// the number of jobs recovered.
func (c *Catalog) CleanupStaleJobs(ctx context.Context) (int, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.writeDB.ExecContext(ctx, `
		UPDATE sync_jobs SET status = ?, end_time = CURRENT_TIMESTAMP
		WHERE status IN (?, ?)
	`, domain.JobStatusFailed, domain.JobStatusRunning, domain.JobStatusPaused)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	if n > 0 {
		log.Warn("recovered stale jobs", zap.Int("count", int(n)))
	}
	return int(n), nil
}

// newID generates a fresh entity primary key.
func newID() string {
	return uuid.NewString()
}
