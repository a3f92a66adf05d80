package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/photobackup/engine/internal/domain"
	"github.com/photobackup/engine/internal/errs"
)

// batchSize caps the number of placeholders used in a single IN (...)
// query, staying well under SQLite's default parameter limit.
const batchSize = 500

// BatchGetSynced returns the subset of localIDs that already have a
// SyncedPhoto row for destID. Inputs are chunked at batchSize per query.
func (c *Catalog) BatchGetSynced(ctx context.Context, localIDs []string, destID string) (map[string]domain.SyncedPhoto, error) {
	result := make(map[string]domain.SyncedPhoto, len(localIDs))

	for start := 0; start < len(localIDs); start += batchSize {
		end := start + batchSize
		if end > len(localIDs) {
			end = len(localIDs)
		}
		chunk := localIDs[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		for i, id := range chunk {
			placeholders[i] = "?"
			args = append(args, id)
		}
		args = append(args, destID)

		query := fmt.Sprintf(
			`SELECT id, local_id, destination_id, remote_path, checksum, sync_date, file_size, last_verified_date, file_metadata
			 FROM synced_photos WHERE local_id IN (%s) AND destination_id = ?`,
			strings.Join(placeholders, ","),
		)

		rows, err := c.readDB.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}

		err = scanSyncedPhotoRows(rows, result)
		rows.Close()
		if err != nil {
			return nil, err
		}
	}

	return result, nil
}

func scanSyncedPhotoRows(rows *sql.Rows, into map[string]domain.SyncedPhoto) error {
	for rows.Next() {
		p, err := scanSyncedPhoto(rows)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		into[p.LocalID] = p
	}
	return rows.Err()
}

func scanSyncedPhoto(rows *sql.Rows) (domain.SyncedPhoto, error) {
	var p domain.SyncedPhoto
	var lastVerified sql.NullTime
	var metaJSON sql.NullString

	if err := rows.Scan(&p.ID, &p.LocalID, &p.DestinationID, &p.RemotePath, &p.Checksum,
		&p.SyncDate, &p.FileSize, &lastVerified, &metaJSON); err != nil {
		return domain.SyncedPhoto{}, err
	}

	if lastVerified.Valid {
		p.LastVerifiedDate = &lastVerified.Time
	}
	if metaJSON.Valid && metaJSON.String != "" {
		meta := make(map[string]string)
		if err := json.Unmarshal([]byte(metaJSON.String), &meta); err == nil {
			p.FileMetadata = meta
		}
	}
	return p, nil
}

// UpsertSynced inserts or, on (local_id, destination_id) collision,
// overwrites a SyncedPhoto row.
func (c *Catalog) UpsertSynced(ctx context.Context, photo domain.SyncedPhoto) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return upsertSyncedTx(ctx, c.writeDB, photo)
}

// UpsertSyncedBatch upserts every photo atomically in one transaction.
func (c *Catalog) UpsertSyncedBatch(ctx context.Context, photos []domain.SyncedPhoto) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer tx.Rollback()

	for _, p := range photos {
		if err := upsertSyncedTx(ctx, tx, p); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertSyncedTx(ctx context.Context, ex execer, p domain.SyncedPhoto) error {
	var metaJSON []byte
	if len(p.FileMetadata) > 0 {
		var err error
		metaJSON, err = json.Marshal(p.FileMetadata)
		if err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
	}

	var lastVerified interface{}
	if p.LastVerifiedDate != nil {
		lastVerified = *p.LastVerifiedDate
	}

	_, err := ex.ExecContext(ctx, `
		INSERT INTO synced_photos (id, local_id, destination_id, remote_path, checksum, sync_date, file_size, last_verified_date, file_metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (local_id, destination_id) DO UPDATE SET
			remote_path = excluded.remote_path,
			checksum = excluded.checksum,
			sync_date = excluded.sync_date,
			file_size = excluded.file_size,
			last_verified_date = excluded.last_verified_date,
			file_metadata = excluded.file_metadata
	`, p.ID, p.LocalID, p.DestinationID, p.RemotePath, p.Checksum, p.SyncDate, p.FileSize, lastVerified, string(metaJSON))
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// DeleteSynced removes a SyncedPhoto row by its id. Idempotent.
func (c *Catalog) DeleteSynced(ctx context.Context, id string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_, err := c.writeDB.ExecContext(ctx, `DELETE FROM synced_photos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// ListSyncedForDestination returns every SyncedPhoto row for destID.
func (c *Catalog) ListSyncedForDestination(ctx context.Context, destID string) ([]domain.SyncedPhoto, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT id, local_id, destination_id, remote_path, checksum, sync_date, file_size, last_verified_date, file_metadata
		FROM synced_photos WHERE destination_id = ?`, destID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()

	var out []domain.SyncedPhoto
	for rows.Next() {
		p, err := scanSyncedPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdateLastVerifiedBatch sets last_verified_date for every id in ids.
// Idempotent under replay of the same arguments.
func (c *Catalog) UpdateLastVerifiedBatch(ctx context.Context, ids []string, when time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	tx, err := c.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer tx.Rollback()

	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		placeholders := make([]string, len(chunk))
		args := make([]interface{}, 0, len(chunk)+1)
		args = append(args, when)
		for i, id := range chunk {
			placeholders[i] = "?"
			args = append(args, id)
		}

		query := fmt.Sprintf(`UPDATE synced_photos SET last_verified_date = ? WHERE id IN (%s)`, strings.Join(placeholders, ","))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	return nil
}

// GetUnverifiedPhotos returns SyncedPhoto rows for destID whose
// last_verified_date is null or older than olderThan.
func (c *Catalog) GetUnverifiedPhotos(ctx context.Context, destID string, olderThan time.Time) ([]domain.SyncedPhoto, error) {
	rows, err := c.readDB.QueryContext(ctx, `
		SELECT id, local_id, destination_id, remote_path, checksum, sync_date, file_size, last_verified_date, file_metadata
		FROM synced_photos
		WHERE destination_id = ? AND (last_verified_date IS NULL OR last_verified_date < ?)`, destID, olderThan)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
	}
	defer rows.Close()

	var out []domain.SyncedPhoto
	for rows.Next() {
		p, err := scanSyncedPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errs.ErrCatalogQuery, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
