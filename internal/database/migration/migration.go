package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            BIGSERIAL    PRIMARY KEY,
  username      VARCHAR(100) NOT NULL UNIQUE,
  password_hash VARCHAR(255) NOT NULL,
  created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id         BIGSERIAL    PRIMARY KEY,
  recipient  VARCHAR(255) NOT NULL CHECK (btrim(recipient) <> ''),
  origin     VARCHAR(255) NOT NULL CHECK (btrim(origin) <> ''),
  date       DATE         NOT NULL,
  place      VARCHAR(255) NOT NULL CHECK (btrim(place) <> ''),
  reason     TEXT         NULL,
  user_id    BIGINT       NULL REFERENCES users(id) ON DELETE SET NULL,
  created_at TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_document_files",
		SQL: `CREATE TABLE IF NOT EXISTS document_files (
  id            BIGSERIAL    PRIMARY KEY,
  document_id   BIGINT       NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
  filename      VARCHAR(255) NOT NULL UNIQUE,
  original_name VARCHAR(255) NOT NULL,
  mime_type     VARCHAR(100) NOT NULL,
  size_bytes    BIGINT       NOT NULL CHECK (size_bytes >= 0),
  created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_origin",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_origin ON documents (origin);`,
	},
	{
		Name: "create_index_documents_place",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_place ON documents (place);`,
	},
	{
		Name: "create_index_documents_date",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_date ON documents (date DESC, id DESC);`,
	},
	{
		Name: "create_index_document_files_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_document_files_document_id ON document_files (document_id);`,
	},
}

// EnsureMigrated checks if the 'document_files' table exists and runs migrations if it doesn't.
// Every step is idempotent, so a partially migrated schema is completed on the next run.
func EnsureMigrated(ctx context.Context, db *sql.DB, log *zap.Logger, dbHost string) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"), zap.String("db_host", dbHost))
	start := time.Now()

	log.Info("db_migration_check", zap.String("status", "starting"))

	var exists bool
	query := "SELECT to_regclass('public.document_files') IS NOT NULL"
	if err := db.QueryRowContext(ctx, query).Scan(&exists); err != nil {
		log.Error("db_migration_failed",
			zap.String("status", "error"),
			zap.String("error_message", fmt.Sprintf("failed to check sentinel table: %v", err)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("db_migration_skip",
			zap.String("status", "success"),
			zap.String("detail", "schema already exists, skipping migration"),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return nil
	}

	log.Info("db_migration_start", zap.String("status", "in_progress"))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("db_migration_failed",
				zap.String("status", "error"),
				zap.String("migration_step", step.Name),
				zap.String("error_message", err.Error()),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
			)
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info("db_migration_step",
			zap.String("status", "success"),
			zap.String("migration_step", step.Name),
			zap.Int64("step_duration_ms", time.Since(stepStart).Milliseconds()),
		)
	}

	log.Info("db_migration_success",
		zap.String("status", "success"),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return nil
}

// UserProvisioner creates an account unless it already exists.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, username, password string) (bool, error)
}

// SeedAdmin makes sure the administrative account exists.
func SeedAdmin(ctx context.Context, p UserProvisioner, log *zap.Logger, username, password string) error {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("component", "database"), zap.String("username", username))

	created, err := p.EnsureUser(ctx, username, password)
	if err != nil {
		log.Error("admin_seed_failed", zap.String("status", "error"), zap.Error(err))
		return fmt.Errorf("seed admin: %w", err)
	}
	if created {
		log.Info("admin_seeded", zap.String("status", "success"))
	} else {
		log.Info("admin_seed_skip", zap.String("status", "success"), zap.String("detail", "user already exists"))
	}
	return nil
}
