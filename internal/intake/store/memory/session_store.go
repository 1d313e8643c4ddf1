package memory

import (
	"context"
	"sync"
	"time"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]store.SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]store.SessionRecord)}
}

func (s *SessionStore) FindActiveByIdentity(_ context.Context, identityID string) (*store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.sessions {
		if rec.IdentityID == identityID && rec.Active {
			out := rec
			return &out, nil
		}
	}
	return nil, nil
}

func (s *SessionStore) FindByID(_ context.Context, sessionID string) (*store.SessionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}

func (s *SessionStore) Insert(_ context.Context, rec store.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *SessionStore) Close(_ context.Context, sessionID string, endedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.sessions[sessionID]
	if !ok || !rec.Active {
		return false, nil
	}
	ended := endedAt
	rec.EndedAt = &ended
	rec.Active = false
	s.sessions[sessionID] = rec
	return true, nil
}
