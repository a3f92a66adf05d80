// Package catalog is the durable, single-writer-per-process store for
// every entity the engine persists: synced photos, jobs, logs, errors,
// destinations, and schedules. It is built directly on database/sql +
// mattn/go-sqlite3 + golang-migrate, mirroring the teacher's own
// versioned-migration pattern without an ORM's code generation step.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/photobackup/engine/internal/errs"
	"github.com/photobackup/engine/internal/logger"
)

var log = logger.Named("catalog")

// Catalog serializes writes through a dedicated single-connection *sql.DB
// (mirroring SQLite's single-writer constraint) while reads run against
// a separate, multi-connection read-only pool.
type Catalog struct {
	writeDB *sql.DB
	readDB  *sql.DB
	writeMu sync.Mutex
}

// Open opens (creating if absent) the SQLite database at path, runs
// pending migrations, and returns a ready Catalog.
func Open(path string, mode MigrationMode) (*Catalog, error) {
	writeDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&_fk=1", path))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogInit, err)
	}
	writeDB.SetMaxOpenConns(1)

	readDB, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?cache=shared&_fk=1&mode=ro", path))
	if err != nil {
		writeDB.Close()
		return nil, fmt.Errorf("%w: %w", errs.ErrCatalogInit, err)
	}

	if err := migrateSchema(writeDB, mode); err != nil {
		writeDB.Close()
		readDB.Close()
		return nil, err
	}

	c := &Catalog{writeDB: writeDB, readDB: readDB}

	if _, err := c.CleanupStaleJobs(context.Background()); err != nil {
		log.Warn("stale job recovery failed", zap.Error(err))
	}

	return c, nil
}

// Close releases both pools.
func (c *Catalog) Close() error {
	werr := c.writeDB.Close()
	rerr := c.readDB.Close()
	if werr != nil {
		return werr
	}
	return rerr
}
