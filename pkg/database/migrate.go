package database

import (
	"context"
	"fmt"
)

// schema is applied at startup. Statements are idempotent so repeated
// boots against the same database are safe.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		key TEXT PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		label TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS folders (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		parent_id UUID REFERENCES folders(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS files (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		folder_id UUID NOT NULL REFERENCES folders(id),
		name TEXT NOT NULL,
		size_bytes BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		deleted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_files_owner_window
		ON files (owner_id, created_at, deleted_at)`,
	`CREATE TABLE IF NOT EXISTS user_plan_prices (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		price_per_byte_second NUMERIC(30, 18) NOT NULL,
		effective_from TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_plan_prices_user
		ON user_plan_prices (user_id, effective_from DESC)`,
	`CREATE TABLE IF NOT EXISTS invoices (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		year INT NOT NULL,
		month INT NOT NULL,
		amount NUMERIC(20, 6) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (user_id, year, month)
	)`,
	`CREATE TABLE IF NOT EXISTS user_groups (
		id UUID PRIMARY KEY,
		owner_id UUID NOT NULL REFERENCES users(id),
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		group_id UUID NOT NULL REFERENCES user_groups(id),
		user_id UUID NOT NULL REFERENCES users(id),
		added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (group_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS file_shares (
		id UUID PRIMARY KEY,
		file_id UUID NOT NULL REFERENCES files(id),
		group_id UUID NOT NULL REFERENCES user_groups(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (file_id, group_id)
	)`,
}

// Migrate creates the database schema if it does not exist yet. The
// UNIQUE constraint on invoices (user_id, year, month) is what makes
// the billing run's insert-if-absent atomic under concurrent writers.
func (db *Database) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
