package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) FindActiveByIdentity(ctx context.Context, identityID string) (*store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, identity_id, started_at, ended_at, active
FROM sessions
WHERE identity_id = $1 AND active`, identityID)
	return scanSession(row)
}

func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, identity_id, started_at, ended_at, active
FROM sessions
WHERE session_id = $1`, sessionID)
	return scanSession(row)
}

func (s *SessionStore) Insert(ctx context.Context, rec store.SessionRecord) error {
	var endedAt any
	if rec.EndedAt != nil {
		endedAt = rec.EndedAt.UTC()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO sessions(session_id, identity_id, started_at, ended_at, active)
VALUES ($1, $2, $3, $4, $5)`,
		rec.ID, rec.IdentityID, rec.StartedAt.UTC(), endedAt, rec.Active)
	if err != nil {
		return fmt.Errorf("Insert session: %w", err)
	}
	return nil
}

func (s *SessionStore) Close(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE sessions
SET ended_at = $1, active = false
WHERE session_id = $2 AND active`, endedAt.UTC(), sessionID)
	if err != nil {
		return false, fmt.Errorf("Close session: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanSession(row *sql.Row) (*store.SessionRecord, error) {
	var rec store.SessionRecord
	var endedAt sql.NullTime

	err := row.Scan(&rec.ID, &rec.IdentityID, &rec.StartedAt, &endedAt, &rec.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	rec.StartedAt = rec.StartedAt.UTC()
	if endedAt.Valid {
		t := endedAt.Time.UTC()
		rec.EndedAt = &t
	}
	return &rec, nil
}
