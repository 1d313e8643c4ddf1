// Package postgres implements the intake stores on PostgreSQL via lib/pq.
// It targets the client-server deployments where several receiving
// stations share one database; the schema mirrors the sqlite migrations.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS identities (
			identity_id VARCHAR(64) PRIMARY KEY,
			badge_code VARCHAR(128) NOT NULL UNIQUE,
			name VARCHAR(255) NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id VARCHAR(64) PRIMARY KEY,
			identity_id VARCHAR(64) NOT NULL REFERENCES identities(identity_id),
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			ended_at TIMESTAMP WITH TIME ZONE,
			active BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active
			ON sessions(identity_id) WHERE active`,
		`CREATE TABLE IF NOT EXISTS scan_events (
			scan_event_id VARCHAR(64) PRIMARY KEY,
			session_id VARCHAR(64) NOT NULL REFERENCES sessions(session_id),
			raw_payload TEXT NOT NULL,
			format VARCHAR(32) NOT NULL,
			fields_json TEXT,
			display TEXT NOT NULL DEFAULT '',
			captured_at TIMESTAMP WITH TIME ZONE NOT NULL,
			valid BOOLEAN NOT NULL DEFAULT true
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_events_payload_time
			ON scan_events(raw_payload, captured_at)`,
	}

	for _, q := range queries {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}
