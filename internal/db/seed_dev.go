package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type SeedDevOptions struct {
	// BadgeCodes are pre-provisioned as active identities in dev so a
	// badge reader can be pointed at a fresh database immediately.
	BadgeCodes []string
}

func SeedDev(ctx context.Context, db *sql.DB, opt SeedDevOptions) error {
	now := time.Now().UTC().UnixMilli()

	codes := opt.BadgeCodes
	if len(codes) == 0 {
		codes = []string{"BADGE-DEV-001"}
	}

	for i, code := range codes {
		code = strings.TrimSpace(code)
		if code == "" {
			continue
		}

		if _, err := db.ExecContext(ctx, `
INSERT OR IGNORE INTO identities(identity_id, badge_code, name, active, created_at_ms)
VALUES (?, ?, ?, 1, ?);
`, fmt.Sprintf("dev-%03d", i+1), code, fmt.Sprintf("Dev Operator %d", i+1), now); err != nil {
			return fmt.Errorf("seed identity %s: %w", code, err)
		}
	}

	return nil
}
