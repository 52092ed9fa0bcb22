package repository

import (
	"context"
	"fmt"
	"log/slog"
)

// schemaDDL is portable between Postgres and SQLite: ids are TEXT uuids and
// timestamps RFC 3339 TEXT. Keep it in sync with db/ent/schema.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tenants_name_key ON tenants (lower(name))`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS users_tenant_email_key ON users (tenant_id, lower(email))`,
	`CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		name TEXT NOT NULL,
		client TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS projects_tenant_name_key ON projects (tenant_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS tasks_tenant_name_key ON tasks (tenant_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS personnel (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		name TEXT NOT NULL,
		employee_id TEXT NOT NULL DEFAULT '',
		fit_test_due_date TEXT NOT NULL DEFAULT '',
		medical_clearance_due_date TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS personnel_tenant_name_key ON personnel (tenant_id, lower(name))`,
	`CREATE TABLE IF NOT EXISTS exposure_limits (
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		analyte_key TEXT NOT NULL,
		analyte TEXT NOT NULL,
		units TEXT NOT NULL DEFAULT '',
		al DOUBLE PRECISION NOT NULL,
		pel DOUBLE PRECISION NOT NULL,
		stel DOUBLE PRECISION,
		el DOUBLE PRECISION,
		PRIMARY KEY (tenant_id, analyte_key)
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL REFERENCES tenants (id),
		project_id TEXT NOT NULL REFERENCES projects (id),
		task_id TEXT NOT NULL REFERENCES tasks (id),
		personnel_id TEXT NOT NULL REFERENCES personnel (id),
		description TEXT NOT NULL DEFAULT '',
		sample_type TEXT NOT NULL,
		start_time TEXT NOT NULL,
		stop_time TEXT NOT NULL,
		flow_rate DOUBLE PRECISION NOT NULL,
		duration INTEGER NOT NULL,
		volume DOUBLE PRECISION NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS samples_tenant_project_task ON samples (tenant_id, project_id, task_id)`,
	`CREATE TABLE IF NOT EXISTS results (
		id TEXT PRIMARY KEY,
		sample_id TEXT NOT NULL UNIQUE REFERENCES samples (id) ON DELETE CASCADE,
		analyte TEXT NOT NULL,
		concentration DOUBLE PRECISION,
		status TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL DEFAULT '',
		reporting_limit DOUBLE PRECISION,
		lab TEXT NOT NULL DEFAULT ''
	)`,
}

// Migrate creates every table and index if missing.
func (db *DB) Migrate(ctx context.Context, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	for i, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			logger.Error("migration failed", "statement", i, "error", err)
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	logger.Info("schema migrated", "statements", len(schemaDDL), "dialect", db.Dialect)
	return nil
}
