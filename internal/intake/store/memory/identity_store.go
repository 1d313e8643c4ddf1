package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

// IdentityStore is an in-memory badge registry for tests and dev hosts.
type IdentityStore struct {
	mu      sync.RWMutex
	byBadge map[string]store.IdentityRecord
}

func NewIdentityStore(identities []store.IdentityRecord) *IdentityStore {
	byBadge := make(map[string]store.IdentityRecord, len(identities))
	for _, id := range identities {
		code := strings.TrimSpace(id.BadgeCode)
		if code == "" {
			continue
		}
		id.BadgeCode = code
		byBadge[code] = id
	}
	return &IdentityStore{byBadge: byBadge}
}

func (s *IdentityStore) FindByBadge(_ context.Context, badgeCode string) (*store.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byBadge[badgeCode]
	if !ok {
		return nil, nil
	}
	out := rec
	return &out, nil
}
