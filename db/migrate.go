package db

import (
	"database/sql"
	"errors"
	"fmt"

	"infernalforge/db/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// RunMigrations applies all pending migrations to the database at dbPath
// using the embedded migration files.
//
// The migrator gets a dedicated connection and closes it when done; callers
// open their working connection afterwards.
func RunMigrations(dbPath string) error {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return fmt.Errorf("open database for migration: %w", err)
	}
	// migrator.Close() closes conn.

	return migrateUp(conn)
}

// migrateUp applies pending up migrations. ErrNoChange is not an error.
// Takes ownership of the connection and closes it when complete.
func migrateUp(conn *sql.DB) error {
	m, err := newMigrator(conn)
	if err != nil {
		conn.Close()
		return fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrationVersion returns the current migration version and dirty state of
// the database at dbPath. Version 0 means no migrations applied.
func MigrationVersion(dbPath string) (uint, bool, error) {
	conn, err := NewSQLiteConnectionWithDefaults(dbPath)
	if err != nil {
		return 0, false, fmt.Errorf("open database: %w", err)
	}

	m, err := newMigrator(conn)
	if err != nil {
		conn.Close()
		return 0, false, fmt.Errorf("create migrator: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// newMigrator builds a migrate.Migrate over the embedded migration files.
// The returned migrator owns the connection; its Close closes the database.
func newMigrator(conn *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("load embedded migrations: %w", err)
	}

	driver, err := sqlite.WithInstance(conn, &sqlite.Config{DatabaseName: "main"})
	if err != nil {
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}

	return migrate.NewWithInstance("iofs", source, "sqlite", driver)
}
