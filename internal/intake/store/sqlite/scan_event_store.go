package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	dbpkg "github.com/damjan1996/scanintake/internal/db"
	"github.com/damjan1996/scanintake/internal/intake/store"
)

type ScanEventStore struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewScanEventStore(db *sql.DB, writer *dbpkg.Worker) *ScanEventStore {
	return &ScanEventStore{db: db, writer: writer}
}

func (s *ScanEventStore) Insert(ctx context.Context, rec store.ScanEventRecord) error {
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now().UTC()
	}
	capturedMs := rec.CapturedAt.UTC().UnixMilli()

	var fieldsJSON any
	if len(rec.Fields) > 0 {
		b, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("Insert marshal fields: %w", err)
		}
		fieldsJSON = string(b)
	}

	var valid int
	if rec.Valid {
		valid = 1
	}

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO scan_events(
  scan_event_id, session_id, raw_payload, format, fields_json,
  display, captured_at_ms, valid
) VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`,
			rec.ID, rec.SessionID, rec.RawPayload, rec.Format, fieldsJSON,
			rec.Display, capturedMs, valid,
		); err != nil {
			return fmt.Errorf("Insert scan event: %w", err)
		}
		return nil
	})
}

func (s *ScanEventStore) FindRecentByPayload(ctx context.Context, rawPayload string, since time.Time) (*store.ScanEventRecord, error) {
	sinceMs := since.UTC().UnixMilli()

	var rec store.ScanEventRecord
	var fieldsJSON sql.NullString
	var capturedMs int64
	var valid int

	err := s.db.QueryRowContext(ctx, `
SELECT scan_event_id, session_id, raw_payload, format, fields_json,
       display, captured_at_ms, valid
FROM scan_events
WHERE raw_payload = ? AND valid = 1 AND captured_at_ms >= ?
ORDER BY captured_at_ms DESC
LIMIT 1;
`, rawPayload, sinceMs).Scan(
		&rec.ID, &rec.SessionID, &rec.RawPayload, &rec.Format, &fieldsJSON,
		&rec.Display, &capturedMs, &valid,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindRecentByPayload query: %w", err)
	}

	if fieldsJSON.Valid && fieldsJSON.String != "" {
		if err := json.Unmarshal([]byte(fieldsJSON.String), &rec.Fields); err != nil {
			return nil, fmt.Errorf("FindRecentByPayload unmarshal fields: %w", err)
		}
	}
	rec.CapturedAt = time.UnixMilli(capturedMs).UTC()
	rec.Valid = valid == 1
	return &rec, nil
}
