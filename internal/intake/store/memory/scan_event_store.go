package memory

import (
	"context"
	"sync"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

// ScanEventStore is an in-memory append-only scan log for tests and dev
// environments.
type ScanEventStore struct {
	mu     sync.Mutex
	events []store.ScanEventRecord
}

func NewScanEventStore() *ScanEventStore {
	return &ScanEventStore{}
}

func (s *ScanEventStore) Insert(_ context.Context, rec store.ScanEventRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, rec)
	return nil
}

func (s *ScanEventStore) FindRecentByPayload(_ context.Context, rawPayload string, since time.Time) (*store.ScanEventRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *store.ScanEventRecord
	for i := range s.events {
		ev := s.events[i]
		if !ev.Valid || ev.RawPayload != rawPayload || ev.CapturedAt.Before(since) {
			continue
		}
		if best == nil || ev.CapturedAt.After(best.CapturedAt) {
			cp := ev
			best = &cp
		}
	}
	return best, nil
}

// Events returns a copy of all recorded events.  Test-only helper.
func (s *ScanEventStore) Events() []store.ScanEventRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.ScanEventRecord, len(s.events))
	copy(out, s.events)
	return out
}
