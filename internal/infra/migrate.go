package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash BYTEA NOT NULL,
		roles TEXT[] NOT NULL DEFAULT '{USER}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS bank_accounts (
		id UUID PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		balance NUMERIC NOT NULL DEFAULT 0 CHECK (balance >= 0),
		owner_id UUID NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS bank_accounts_owner_idx ON bank_accounts (owner_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS movements (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES bank_accounts(id) ON DELETE CASCADE,
		direction TEXT NOT NULL CHECK (direction IN ('CREDIT', 'DEBIT')),
		amount NUMERIC NOT NULL CHECK (amount > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS movements_account_created_idx ON movements (account_id, created_at);`,
}

// Migrate applies the schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}
