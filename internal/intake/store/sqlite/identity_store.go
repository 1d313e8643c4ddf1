package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/damjan1996/scanintake/internal/intake/store"
)

// IdentityStore reads badge identities.  Provisioning happens outside the
// intake core, so this store is read-only.
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
	var active int

	err := s.db.QueryRowContext(ctx, `
SELECT identity_id, badge_code, name, active
FROM identities
WHERE badge_code = ?;
`, badgeCode).Scan(&rec.ID, &rec.BadgeCode, &rec.Name, &active)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindByBadge query: %w", err)
	}

	rec.Active = active == 1
	return &rec, nil
}
