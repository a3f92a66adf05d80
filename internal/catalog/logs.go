package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// SaveLogs appends a batch of log entries in one transaction. Callers
// flush at most every 5s or every 50 entries, whichever comes first.
func (c *Catalog) SaveLogs(ctx context.Context, entries []domain.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_logs (id, job_id, timestamp, level, category, message, photo_id, photo_path, details)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		var detailsJSON []byte
		if len(e.Details) > 0 {
			detailsJSON, err = json.Marshal(e.Details)
			if err != nil {
				return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
			}
		}

		if _, err := stmt.ExecContext(ctx, e.ID, e.JobID, e.Timestamp, e.Level, e.Category, e.Message,
			e.PhotoID, e.PhotoPath, string(detailsJSON)); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// PurgeOlderThan deletes jobs (cascading to their logs and errors) whose
// start_time predates now - days.
func (c *Catalog) PurgeOlderThan(ctx context.Context, days int) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `
		DELETE FROM sync_jobs WHERE start_time < datetime('now', ? || ' days')
	`, fmt.Sprintf("-%d", days))
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}
