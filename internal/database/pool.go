// Package database provides PostgreSQL connection pooling
// using pgx, plus the schema the server expects.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool creates a new PostgreSQL connection pool with optimized settings
func NewPool(databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is empty")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}

	// Connection pool settings
	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return pool, nil
}

// Migrate creates the tables the server needs if they are missing
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS upi_records (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		upi_id     TEXT NOT NULL,
		score      INTEGER NOT NULL,
		status     TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS reports (
		id                    UUID PRIMARY KEY,
		user_id               UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		reported_upi_id       TEXT NOT NULL DEFAULT '',
		reported_full_name    TEXT NOT NULL DEFAULT '',
		reported_phone_number TEXT NOT NULL DEFAULT '',
		reported_address      TEXT NOT NULL DEFAULT '',
		amount_involved       NUMERIC(14,2) NOT NULL DEFAULT 0,
		transaction_id        TEXT NOT NULL DEFAULT '',
		transaction_date      TEXT NOT NULL DEFAULT '',
		report_category       TEXT NOT NULL DEFAULT '',
		urgency_level         TEXT NOT NULL DEFAULT 'medium',
		detailed_description  TEXT NOT NULL DEFAULT '',
		report_status         TEXT NOT NULL DEFAULT 'draft',
		police_notified       BOOLEAN NOT NULL DEFAULT FALSE,
		notification_sent_at  TIMESTAMPTZ,
		created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		submitted_at          TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS reports_user_created_idx ON reports (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS evidence_files (
		id           UUID PRIMARY KEY,
		report_id    UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		file_name    TEXT NOT NULL,
		file_size    BIGINT NOT NULL,
		file_type    TEXT NOT NULL,
		file_url     TEXT NOT NULL,
		storage_path TEXT NOT NULL,
		checksum     TEXT NOT NULL,
		uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS evidence_files_report_idx ON evidence_files (report_id, uploaded_at DESC)`,
	`CREATE TABLE IF NOT EXISTS report_activity (
		id            UUID PRIMARY KEY,
		report_id     UUID NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		user_id       UUID NOT NULL,
		activity_type TEXT NOT NULL,
		description   TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}
