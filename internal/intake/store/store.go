// Package store defines the persistence contracts of the intake core.
// Implementations live in the memory, sqlite and postgres subpackages.
package store

import (
	"context"
	"time"
)

// IdentityRecord is one badge holder.  Identities are provisioned by an
// external admin process; the intake core only reads them.
type IdentityRecord struct {
	ID        string
	BadgeCode string
	Name      string
	Active    bool
}

// IdentityStore resolves badge codes to identities.
type IdentityStore interface {
	// FindByBadge returns the identity for a badge code, or nil when no
	// such badge is provisioned.
	FindByBadge(ctx context.Context, badgeCode string) (*IdentityRecord, error)
}

// SessionRecord is one bounded work interval of an identity.
type SessionRecord struct {
	ID         string
	IdentityID string
	StartedAt  time.Time
	EndedAt    *time.Time
	Active     bool
}

// SessionStore persists sessions.  Sessions are closed, never deleted.
type SessionStore interface {
	// FindActiveByIdentity returns the identity's active session, or nil.
	FindActiveByIdentity(ctx context.Context, identityID string) (*SessionRecord, error)

	// FindByID returns the session, or nil when unknown.
	FindByID(ctx context.Context, sessionID string) (*SessionRecord, error)

	Insert(ctx context.Context, rec SessionRecord) error

	// Close sets the end timestamp and clears the active flag.  Returns
	// false when the session does not exist or is already closed.
	Close(ctx context.Context, sessionID string, endedAt time.Time) (bool, error)
}
