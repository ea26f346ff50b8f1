// Package postgres opens a PostgreSQL database through lib/pq and wraps it in a
// sqlstore.Store.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // registers the "postgres" driver

	"github.com/mmynk/splitwiser/internal/storage/sqlstore"
)

// New connects to dsn, verifies the connection and creates the schema.
func New(ctx context.Context, dsn string) (*sqlstore.Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return sqlstore.New(db, sqlstore.Postgres), nil
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    display_name TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    total_expense NUMERIC(20, 4) NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
    group_id TEXT NOT NULL REFERENCES groups(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    PRIMARY KEY (group_id, user_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    payer_id TEXT NOT NULL,
    amount NUMERIC(20, 4) NOT NULL,
    group_id TEXT REFERENCES groups(id) ON DELETE SET NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_participants (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    share NUMERIC(20, 4) NOT NULL,
    is_settled BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (expense_id, user_id)
);

CREATE TABLE IF NOT EXISTS obligations (
    id TEXT PRIMARY KEY,
    expense_id TEXT REFERENCES expenses(id) ON DELETE CASCADE,
    payer_id TEXT NOT NULL,
    ower_id TEXT NOT NULL,
    amount NUMERIC(20, 4) NOT NULL CHECK (amount > 0),
    settled_amount NUMERIC(20, 4) NOT NULL DEFAULT 0,
    group_id TEXT,
    is_settled BOOLEAN NOT NULL DEFAULT FALSE,
    settled_via TEXT,
    created_at BIGINT NOT NULL,
    settled_at BIGINT NOT NULL DEFAULT 0,
    CHECK (payer_id <> ower_id),
    CHECK (settled_amount >= 0 AND settled_amount <= amount)
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    obligation_id TEXT NOT NULL REFERENCES obligations(id) ON DELETE CASCADE,
    group_id TEXT,
    from_user_id TEXT NOT NULL,
    to_user_id TEXT NOT NULL,
    amount NUMERIC(20, 4) NOT NULL,
    method TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    created_by TEXT NOT NULL,
    note TEXT NOT NULL DEFAULT '',
    seq BIGINT NOT NULL,
    UNIQUE (obligation_id, seq)
);

CREATE TABLE IF NOT EXISTS friend_balances (
    user_a TEXT NOT NULL,
    user_b TEXT NOT NULL,
    net NUMERIC(20, 4) NOT NULL,
    PRIMARY KEY (user_a, user_b)
);

CREATE INDEX IF NOT EXISTS idx_group_members_user_id ON group_members(user_id);
CREATE INDEX IF NOT EXISTS idx_expenses_group_id ON expenses(group_id);
CREATE INDEX IF NOT EXISTS idx_obligations_expense_id ON obligations(expense_id);
CREATE INDEX IF NOT EXISTS idx_obligations_group_id ON obligations(group_id);
CREATE INDEX IF NOT EXISTS idx_obligations_ower_id ON obligations(ower_id);
CREATE INDEX IF NOT EXISTS idx_obligations_payer_id ON obligations(payer_id);
CREATE INDEX IF NOT EXISTS idx_settlements_obligation_id ON settlements(obligation_id);
`
