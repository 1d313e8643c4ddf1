package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/damjan1996/scanintake/internal/db"
	"github.com/damjan1996/scanintake/internal/intake/store"
)

type SessionStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewSessionStore(db *sql.DB, writer *dbpkg.Worker) *SessionStore {
	return &SessionStore{db: db, writer: writer}
}

func (s *SessionStore) FindActiveByIdentity(ctx context.Context, identityID string) (*store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, identity_id, started_at_ms, ended_at_ms, active
FROM sessions
WHERE identity_id = ? AND active = 1;
`, identityID)
	return scanSession(row)
}

func (s *SessionStore) FindByID(ctx context.Context, sessionID string) (*store.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT session_id, identity_id, started_at_ms, ended_at_ms, active
FROM sessions
WHERE session_id = ?;
`, sessionID)
	return scanSession(row)
}

func (s *SessionStore) Insert(ctx context.Context, rec store.SessionRecord) error {
	startedMs := rec.StartedAt.UTC().UnixMilli()

	var endedMs any
	if rec.EndedAt != nil {
		endedMs = rec.EndedAt.UTC().UnixMilli()
	}

	var active int
	if rec.Active {
		active = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions(session_id, identity_id, started_at_ms, ended_at_ms, active)
VALUES (?, ?, ?, ?, ?);
`, rec.ID, rec.IdentityID, startedMs, endedMs, active); err != nil {
			return fmt.Errorf("Insert session: %w", err)
		}
		return nil
	})
}

func (s *SessionStore) Close(ctx context.Context, sessionID string, endedAt time.Time) (bool, error) {
	if endedAt.IsZero() {
		endedAt = time.Now().UTC()
	}
	endedMs := endedAt.UTC().UnixMilli()

	var closed bool
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE sessions
SET ended_at_ms = ?,
    active      = 0
WHERE session_id = ? AND active = 1;
`, endedMs, sessionID)
		if err != nil {
			return fmt.Errorf("Close session: %w", err)
		}
		n, _ := res.RowsAffected()
		closed = n > 0
		return nil
	})
	return closed, err
}

func scanSession(row *sql.Row) (*store.SessionRecord, error) {
	var rec store.SessionRecord
	var startedMs int64
	var endedMs sql.NullInt64
	var active int

	err := row.Scan(&rec.ID, &rec.IdentityID, &startedMs, &endedMs, &active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	rec.StartedAt = time.UnixMilli(startedMs).UTC()
	if endedMs.Valid {
		t := time.UnixMilli(endedMs.Int64).UTC()
		rec.EndedAt = &t
	}
	rec.Active = active == 1
	return &rec, nil
}
