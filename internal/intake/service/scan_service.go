package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/damjan1996/scanintake/internal/intake/classify"
	"github.com/damjan1996/scanintake/internal/intake/store"
)

// ScanResult is the outcome of one ingest call.  A duplicate rejection is
// a routine result, not an error: Accepted is false and Duplicate carries
// the match details.
type ScanResult struct {
	Accepted  bool
	Duplicate *DuplicateCheck
	Event     *store.ScanEventRecord
	Payload   classify.Payload
}

// ScanService is the ingestion engine: it gates a scan on its session
// being active, rejects duplicates, classifies the payload, persists the
// event and publishes it on the feed.  The check-then-persist sequence
// runs under the payload's key lock so two concurrent scans of the same
// label cannot both pass the duplicate check.
type ScanService struct {
	sessions   store.SessionStore
	scans      store.ScanEventStore
	detector   *DuplicateDetector
	classifier *classify.Classifier
	feed       *ScanFeed
	locks      *keyedMutex
	logger     *log.Logger
	now        func() time.Time
}

func NewScanService(
	sessions store.SessionStore,
	scans store.ScanEventStore,
	detector *DuplicateDetector,
	classifier *classify.Classifier,
	feed *ScanFeed,
	logger *log.Logger,
) *ScanService {
	return &ScanService{
		sessions:   sessions,
		scans:      scans,
		detector:   detector,
		classifier: classifier,
		feed:       feed,
		locks:      newKeyedMutex(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Ingest accepts or rejects one QR payload against the given session.
//
// Preconditions and contract: the session must exist and be active
// (ErrSessionNotActive otherwise, no side effects); a payload inside the
// duplicate window yields a rejection result with no side effects;
// otherwise the payload is classified, persisted, indexed and published.
// Store errors surface unchanged — no internal retries.
func (s *ScanService) Ingest(ctx context.Context, sessionID, rawPayload string) (ScanResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return ScanResult{}, ErrInvalidSessionID
	}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return ScanResult{}, fmt.Errorf("find session: %w", err)
	}
	if session == nil || !session.Active {
		return ScanResult{}, ErrSessionNotActive
	}

	unlock := s.locks.lock(rawPayload)
	defer unlock()

	if check := s.detector.Check(ctx, rawPayload); check.Duplicate {
		s.logger.Printf("scan rejected as duplicate (session=%s, source=%s, age=%s)",
			sessionID, check.Source, check.Age.Round(time.Second))
		return ScanResult{Duplicate: &check}, nil
	}

	payload := s.classifier.Classify(rawPayload)

	rec := store.ScanEventRecord{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		RawPayload: rawPayload,
		Format:     string(payload.Format()),
		Fields:     flattenFields(payload),
		Display:    payload.Display(),
		CapturedAt: s.now(),
		Valid:      true,
	}
	if err := s.scans.Insert(ctx, rec); err != nil {
		return ScanResult{}, fmt.Errorf("insert scan event: %w", err)
	}

	s.detector.MarkSeen(rawPayload)
	s.feed.Publish(ScanAccepted{Event: rec, Payload: payload})

	s.logger.Printf("scan %s accepted (session=%s, format=%s)", rec.ID, sessionID, rec.Format)
	return ScanResult{Accepted: true, Event: &rec, Payload: payload}, nil
}

func flattenFields(p classify.Payload) map[string]string {
	fields := p.Fields()
	if len(fields) == 0 {
		return nil
	}
	out := make(map[string]string, len(fields))
	for slot, v := range fields {
		out[string(slot)] = v
	}
	return out
}
