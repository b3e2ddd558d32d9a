package migrations

import (
	"context"
	"fmt"
)

// V2Migration normalizes stored subscriber emails and enforces
// case-insensitive uniqueness.
type V2Migration struct{}

func (m *V2Migration) GetVersion() int { return 2 }

func (m *V2Migration) GetDescription() string {
	return "case-insensitive unique subscriber email"
}

func (m *V2Migration) Up(ctx context.Context, db DBExecutor) error {
	if _, err := db.ExecContext(ctx, `
		UPDATE subscribers SET email = LOWER(TRIM(email))
		WHERE email <> LOWER(TRIM(email))
	`); err != nil {
		return fmt.Errorf("failed to normalize subscriber emails: %w", err)
	}

	if _, err := db.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscribers_email_lower ON subscribers (LOWER(email))`); err != nil {
		return fmt.Errorf("failed to create subscriber email index: %w", err)
	}
	return nil
}

func init() {
	Register(&V2Migration{})
}
