package store

import (
	"context"
	"time"
)

// ScanEventRecord is one accepted QR ingestion.  Written once by the
// ingestion engine and immutable afterwards.  Classification is stored
// flattened (format, extracted fields, display label) so the event log
// is queryable without re-running the classifier.
type ScanEventRecord struct {
	ID         string
	SessionID  string
	RawPayload string
	Format     string
	Fields     map[string]string
	Display    string
	CapturedAt time.Time
	Valid      bool
}

// ScanEventStore persists scan events as an append-only log.
type ScanEventStore interface {
	Insert(ctx context.Context, rec ScanEventRecord) error

	// FindRecentByPayload returns the most recent valid event with the
	// given raw payload captured at or after since, or nil when none
	// exists.  This backs the store-confirmed duplicate window.
	FindRecentByPayload(ctx context.Context, rawPayload string, since time.Time) (*ScanEventRecord, error)
}
