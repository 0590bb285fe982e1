package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		display_name  TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS rooms (
		room_id       TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT 'Untitled Room',
		owner_id      BIGINT REFERENCES users(id),
		code          TEXT NOT NULL DEFAULT '',
		language      TEXT NOT NULL DEFAULT 'javascript',
		is_public     BOOLEAN NOT NULL DEFAULT TRUE,
		password_hash TEXT,
		members       BIGINT[] NOT NULL DEFAULT '{}',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS room_files (
		room_id     TEXT NOT NULL REFERENCES rooms(room_id) ON DELETE CASCADE,
		filename    TEXT NOT NULL,
		content     TEXT NOT NULL,
		language    TEXT NOT NULL DEFAULT 'javascript',
		size        BIGINT NOT NULL,
		uploaded_by TEXT NOT NULL,
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (room_id, filename)
	)`,
	`CREATE TABLE IF NOT EXISTS room_messages (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		room_id     TEXT NOT NULL,
		sender_id   TEXT NOT NULL DEFAULT '',
		sender_name TEXT NOT NULL DEFAULT 'Guest',
		text        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_room_messages_room_created
		ON room_messages (room_id, created_at DESC, id DESC)`,
}

// RunMigrations applies the embedded DDL. Statements are idempotent so
// re-running at every boot is safe.
func RunMigrations(ctx context.Context, db *DB) error {
	for i, stmt := range migrations {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	slog.Info("migrations applied", "count", len(migrations))
	return nil
}
