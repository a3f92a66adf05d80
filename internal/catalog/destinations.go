package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// CreateDestination inserts a new Destination row. dest.ID must already
// be set; dest.ConfigBlob is stored as-is. The catalog does not encrypt
// it.
func (c *Catalog) CreateDestination(ctx context.Context, dest domain.Destination) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `
		INSERT INTO destinations (id, name, type, config_blob, created_at, last_health_check, health_status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, dest.ID, dest.Name, dest.Type, dest.ConfigBlob, dest.CreatedAt, nullTime(dest.LastHealthCheck), dest.HealthStatus)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// GetDestination fetches a single Destination by id.
func (c *Catalog) GetDestination(ctx context.Context, id string) (domain.Destination, error) {
	row := c.readDB.QueryRowContext(ctx, `
		SELECT id, name, type, config_blob, created_at, last_health_check, health_status
		FROM destinations WHERE id = ?`, id)
	dest, err := scanDestination(row)
	if err == sql.ErrNoRows {
		return domain.Destination{}, errs.ErrNotFound
	}
	if err != nil {
		return domain.Destination{}, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return dest, nil
}

func scanDestination(row rowScanner) (domain.Destination, error) {
	var d domain.Destination
	var lastHealthCheck sql.NullTime

	err := row.Scan(&d.ID, &d.Name, &d.Type, &d.ConfigBlob, &d.CreatedAt, &lastHealthCheck, &d.HealthStatus)
	if err != nil {
		return domain.Destination{}, err
	}
	if lastHealthCheck.Valid {
		d.LastHealthCheck = &lastHealthCheck.Time
	}
	return d, nil
}

// ListDestinations returns every configured Destination, oldest first.
func (c *Catalog) ListDestinations(ctx context.Context) ([]domain.Destination, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT id, name, type, config_blob, created_at, last_health_check, health_status
		FROM destinations ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()

	var out []domain.Destination
	for rows.Next() {
		d, err := scanDestination(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateHealth records the outcome of a connectivity check against a
// destination.
func (c *Catalog) UpdateHealth(ctx context.Context, id string, status domain.HealthStatus, checkedAt time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	res, err := c.writeDB.ExecContext(ctx, `
		UPDATE destinations SET health_status = ?, last_health_check = ? WHERE id = ?
	`, status, checkedAt, id)
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

// DeleteDestination removes a Destination and every row that references
// it: its synced photos, its jobs (which cascade to their own logs and
// errors), and its schedules.
func (c *Catalog) DeleteDestination(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM synced_photos WHERE destination_id = ?`,
		`DELETE FROM scheduled_backup_jobs WHERE destination_id = ?`,
		`DELETE FROM sync_jobs WHERE destination_id = ?`,
		`DELETE FROM destinations WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}
