package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

type IdentityStore struct {
	db *sql.DB
}

func NewIdentityStore(db *sql.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

func (s *IdentityStore) FindByBadge(ctx context.Context, badgeCode string) (*store.IdentityRecord, error) {
	badgeCode = strings.TrimSpace(badgeCode)
	if badgeCode == "" {
		return nil, nil
	}

	var rec store.IdentityRecord
	err := s.db.QueryRowContext(ctx, `
SELECT identity_id, badge_code, name, active
FROM identities
WHERE badge_code = $1`, badgeCode).Scan(&rec.ID, &rec.BadgeCode, &rec.Name, &rec.Active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByBadge query: %w", err)
	}
	return &rec, nil
}
