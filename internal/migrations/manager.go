package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wholesail/wholesail/pkg/logger"
)

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	description TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// Manager implements MigrationManager
type Manager struct {
	logger   logger.Logger
	registry MigrationRegistry
}

// NewManager creates a manager over the default registry
func NewManager(logger logger.Logger) *Manager {
	return NewManagerWithRegistry(DefaultRegistry, logger)
}

func NewManagerWithRegistry(registry MigrationRegistry, logger logger.Logger) *Manager {
	return &Manager{logger: logger, registry: registry}
}

// GetCurrentDBVersion returns the highest applied version, 0 when none.
func (m *Manager) GetCurrentDBVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get current database version: %w", err)
	}
	return int(version.Int64), nil
}

// RunMigrations applies every registered migration above the current
// version, each in its own transaction together with its version row.
func (m *Manager) RunMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	current, err := m.GetCurrentDBVersion(ctx, db)
	if err != nil {
		return err
	}

	applied := 0
	for _, migration := range m.registry.GetMigrations() {
		if migration.GetVersion() <= current {
			continue
		}
		if err := m.apply(ctx, db, migration); err != nil {
			return err
		}
		applied++
	}

	m.logger.WithFields(map[string]interface{}{
		"previous_version": current,
		"applied":          applied,
	}).Info("Database migrations completed")
	return nil
}

func (m *Manager) apply(ctx context.Context, db *sql.DB, migration Migration) error {
	version := migration.GetVersion()
	log := m.logger.WithField("version", version)
	log.WithField("description", migration.GetDescription()).Info("Applying migration")

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := migration.Up(ctx, tx); err != nil {
		log.WithField("error", err.Error()).Error("Migration failed")
		return fmt.Errorf("migration %d failed: %w", version, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
		version, migration.GetDescription()); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", version, err)
	}
	return nil
}
