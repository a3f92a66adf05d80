package catalog

import (
	"context"
	"fmt"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// RecordError appends a SyncError row. Append-only; cascade-deleted with
// its owning job via the schema's ON DELETE CASCADE.
func (c *Catalog) RecordError(ctx context.Context, syncErr domain.SyncError) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `
		INSERT INTO sync_errors (id, job_id, photo_id, error_message, error_category, timestamp, retry_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, syncErr.ID, syncErr.JobID, syncErr.PhotoID, syncErr.ErrorMessage, syncErr.ErrorCategory, syncErr.Timestamp, syncErr.RetryCount)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// ListErrorsForJob returns every SyncError recorded for jobID.
func (c *Catalog) ListErrorsForJob(ctx context.Context, jobID string) ([]domain.SyncError, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT id, job_id, photo_id, error_message, error_category, timestamp, retry_count
		FROM sync_errors WHERE job_id = ? ORDER BY timestamp ASC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()

	var out []domain.SyncError
	for rows.Next() {
		var e domain.SyncError
		if err := rows.Scan(&e.ID, &e.JobID, &e.PhotoID, &e.ErrorMessage, &e.ErrorCategory, &e.Timestamp, &e.RetryCount); err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
