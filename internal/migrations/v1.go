package migrations

import (
	"context"
	"fmt"
)

// V1Migration indexes the admin listings that sort by recency.
type V1Migration struct{}

func (m *V1Migration) GetVersion() int { return 1 }

func (m *V1Migration) GetDescription() string {
	return "index campaigns and templates by recency"
}

func (m *V1Migration) Up(ctx context.Context, db DBExecutor) error {
	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_campaigns_created ON campaigns (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_email_templates_updated ON email_templates (updated_at DESC)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

func init() {
	Register(&V1Migration{})
}
