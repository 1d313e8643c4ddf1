package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

var (
	ErrInvalidBadgeCode = errors.New("badge_code is required")
	ErrUnknownBadge     = errors.New("badge is not provisioned or inactive")
	ErrInvalidSessionID = errors.New("session_id is required")
	ErrSessionNotActive = errors.New("session does not exist or is already closed")
)

// SessionService enforces the one-active-session-per-identity rule.  A
// badge re-scan closes the previous session and opens a new one; the
// close-then-create pair runs under the identity's key lock so two
// concurrent badge scans cannot both observe "no active session".
type SessionService struct {
	identities store.IdentityStore
	sessions   store.SessionStore
	locks      *keyedMutex
	logger     *log.Logger
	now        func() time.Time
}

func NewSessionService(ids store.IdentityStore, ss store.SessionStore, logger *log.Logger) *SessionService {
	return &SessionService{
		identities: ids,
		sessions:   ss,
		locks:      newKeyedMutex(),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a new active session for the badge holder.  Any session
// still active for the identity is closed first — a badge re-scan logs
// the previous session out.
func (s *SessionService) Create(ctx context.Context, badgeCode string) (store.SessionRecord, error) {
	badgeCode = strings.TrimSpace(badgeCode)
	if badgeCode == "" {
		return store.SessionRecord{}, ErrInvalidBadgeCode
	}

	identity, err := s.identities.FindByBadge(ctx, badgeCode)
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("resolve badge: %w", err)
	}
	if identity == nil || !identity.Active {
		return store.SessionRecord{}, ErrUnknownBadge
	}

	unlock := s.locks.lock(identity.ID)
	defer unlock()

	now := s.now()

	prev, err := s.sessions.FindActiveByIdentity(ctx, identity.ID)
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("find active session: %w", err)
	}
	if prev != nil {
		closed, err := s.sessions.Close(ctx, prev.ID, now)
		if err != nil {
			return store.SessionRecord{}, fmt.Errorf("close previous session: %w", err)
		}
		if closed {
			s.logger.Printf("session %s closed by badge re-scan (identity=%s)", prev.ID, identity.ID)
		}
	}

	rec := store.SessionRecord{
		ID:         uuid.NewString(),
		IdentityID: identity.ID,
		StartedAt:  now,
		Active:     true,
	}
	if err := s.sessions.Insert(ctx, rec); err != nil {
		return store.SessionRecord{}, fmt.Errorf("insert session: %w", err)
	}

	s.logger.Printf("session %s started (identity=%s)", rec.ID, identity.ID)
	return rec, nil
}

// End closes an active session.  Ending a missing or already-closed
// session is an error, never a silent no-op.
func (s *SessionService) End(ctx context.Context, sessionID string) (store.SessionRecord, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return store.SessionRecord{}, ErrInvalidSessionID
	}

	rec, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("find session: %w", err)
	}
	if rec == nil || !rec.Active {
		return store.SessionRecord{}, ErrSessionNotActive
	}

	unlock := s.locks.lock(rec.IdentityID)
	defer unlock()

	now := s.now()
	closed, err := s.sessions.Close(ctx, sessionID, now)
	if err != nil {
		return store.SessionRecord{}, fmt.Errorf("close session: %w", err)
	}
	if !closed {
		// Lost a race with a badge re-scan that closed it first.
		return store.SessionRecord{}, ErrSessionNotActive
	}

	rec.EndedAt = &now
	rec.Active = false
	s.logger.Printf("session %s ended (identity=%s)", rec.ID, rec.IdentityID)
	return *rec, nil
}

// GetActive returns the badge holder's current active session, or nil.
func (s *SessionService) GetActive(ctx context.Context, badgeCode string) (*store.SessionRecord, error) {
	badgeCode = strings.TrimSpace(badgeCode)
	if badgeCode == "" {
		return nil, ErrInvalidBadgeCode
	}

	identity, err := s.identities.FindByBadge(ctx, badgeCode)
	if err != nil {
		return nil, fmt.Errorf("resolve badge: %w", err)
	}
	if identity == nil || !identity.Active {
		return nil, ErrUnknownBadge
	}
	return s.sessions.FindActiveByIdentity(ctx, identity.ID)
}
