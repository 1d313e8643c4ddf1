package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

type ScanEventStore struct {
	db *sql.DB
}

func NewScanEventStore(db *sql.DB) *ScanEventStore {
	return &ScanEventStore{db: db}
}

func (s *ScanEventStore) Insert(ctx context.Context, rec store.ScanEventRecord) error {
	if rec.CapturedAt.IsZero() {
		rec.CapturedAt = time.Now().UTC()
	}

	var fieldsJSON any
	if len(rec.Fields) > 0 {
		b, err := json.Marshal(rec.Fields)
		if err != nil {
			return fmt.Errorf("Insert marshal fields: %w", err)
		}
		fieldsJSON = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO scan_events(
  scan_event_id, session_id, raw_payload, format, fields_json,
  display, captured_at, valid
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rec.ID, rec.SessionID, rec.RawPayload, rec.Format, fieldsJSON,
		rec.Display, rec.CapturedAt.UTC(), rec.Valid)
	if err != nil {
		return fmt.Errorf("Insert scan event: %w", err)
	}
	return nil
}

func (s *ScanEventStore) FindRecentByPayload(ctx context.Context, rawPayload string, since time.Time) (*store.ScanEventRecord, error) {
	var rec store.ScanEventRecord
	var fieldsJSON sql.NullString

	err := s.db.QueryRowContext(ctx, `
SELECT scan_event_id, session_id, raw_payload, format, fields_json,
       display, captured_at, valid
FROM scan_events
WHERE raw_payload = $1 AND valid AND captured_at >= $2
ORDER BY captured_at DESC
LIMIT 1`, rawPayload, since.UTC()).Scan(
		&rec.ID, &rec.SessionID, &rec.RawPayload, &rec.Format, &fieldsJSON,
		&rec.Display, &rec.CapturedAt, &rec.Valid,
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
	rec.CapturedAt = rec.CapturedAt.UTC()
	return &rec, nil
}
