// Package schema holds the storefront table definitions applied at startup.
package schema

// TableDefinitions are idempotent and run in order.
// Don't put REFERENCES in the CREATE TABLE statements, rows are cleaned up by the services.
var TableDefinitions = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id UUID PRIMARY KEY,
		name VARCHAR(120) NOT NULL,
		slug VARCHAR(140) NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id UUID PRIMARY KEY,
		slug VARCHAR(280) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL,
		brand VARCHAR(120) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		image_url TEXT NOT NULL DEFAULT '',
		category_id UUID,
		price_cents BIGINT NOT NULL DEFAULT 0,
		min_order_qty INTEGER NOT NULL DEFAULT 1,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category ON products (category_id) WHERE is_active`,
	`CREATE TABLE IF NOT EXISTS subscribers (
		id UUID PRIMARY KEY,
		email VARCHAR(254) NOT NULL UNIQUE,
		name VARCHAR(255) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		source VARCHAR(50) NOT NULL DEFAULT '',
		subscribed_at TIMESTAMPTZ NOT NULL,
		unsubscribed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscribers_status ON subscribers (status)`,
	`CREATE TABLE IF NOT EXISTS inquiries (
		id UUID PRIMARY KEY,
		company_name VARCHAR(200) NOT NULL,
		contact_name VARCHAR(200) NOT NULL,
		email VARCHAR(254) NOT NULL,
		phone VARCHAR(40) NOT NULL DEFAULT '',
		message TEXT NOT NULL,
		product_id UUID,
		quantity INTEGER NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inquiries_status_created ON inquiries (status, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS email_templates (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		subject VARCHAR(255) NOT NULL DEFAULT '',
		preheader VARCHAR(255) NOT NULL DEFAULT '',
		content JSONB NOT NULL DEFAULT '[]',
		html_content TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS campaigns (
		id UUID PRIMARY KEY,
		idempotency_key VARCHAR(128) NOT NULL UNIQUE,
		subject VARCHAR(255) NOT NULL,
		preheader VARCHAR(255) NOT NULL DEFAULT '',
		html_content TEXT NOT NULL,
		status VARCHAR(20) NOT NULL,
		recipient_count INTEGER NOT NULL DEFAULT 0,
		sent_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		sent_at TIMESTAMPTZ
	)`,
}
