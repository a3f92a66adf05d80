package catalog

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/photobackup/engine/internal/errs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationMode selects how golang-migrate's versioned SQL files are
// applied. Both modes run the same embedded migrations; "auto" only turns
// on golang-migrate's verbose logging.
type MigrationMode string

const (
	MigrationModeVersioned MigrationMode = "versioned"
	MigrationModeAuto      MigrationMode = "auto"
)

// ParseMigrationMode parses s, defaulting to MigrationModeVersioned for
// anything unrecognized.
func ParseMigrationMode(s string) MigrationMode {
	if s == "auto" {
		return MigrationModeAuto
	}
	return MigrationModeVersioned
}

type migrateLogger struct {
	verbose bool
}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	log.Sugar().Infof(format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return l.verbose
}

// migrateSchema runs every pending up migration against db. Both modes
// converge on the same embedded SQL files: "auto" is "versioned" plus
// verbose migrate logging.
func migrateSchema(db *sql.DB, mode MigrationMode) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("%w: migration source: %w", errs.ErrCatalogSchema, err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("%w: driver: %w", errs.ErrCatalogSchema, err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("%w: instance: %w", errs.ErrCatalogSchema, err)
	}
	m.Log = &migrateLogger{verbose: mode == MigrationModeAuto}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Debug("no pending migrations")
			return nil
		}
		return fmt.Errorf("%w: %w", errs.ErrCatalogSchema, err)
	}

	log.Info("migrations completed")
	return nil
}
