package migrations

import (
	"context"
	"database/sql"
)

// DBExecutor represents a database connection that can execute queries
type DBExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Migration is one schema change applied on top of the baseline tables.
type Migration interface {
	GetVersion() int
	GetDescription() string
	Up(ctx context.Context, db DBExecutor) error
}

// MigrationManager interface for managing migrations
type MigrationManager interface {
	GetCurrentDBVersion(ctx context.Context, db *sql.DB) (int, error)
	RunMigrations(ctx context.Context, db *sql.DB) error
}

// MigrationRegistry manages registered migrations
type MigrationRegistry interface {
	Register(migration Migration)
	GetMigrations() []Migration
	GetMigration(version int) (Migration, bool)
}
