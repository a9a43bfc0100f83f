package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"inscribo/internal/domain"
)

const (
	maxPingAttempts = 5
	pingTimeout     = 3 * time.Second
	pingBackoff     = 500 * time.Millisecond
)

// Open connects to the ledger store and verifies the connection with a
// bounded retry + backoff. Store unreachability is surfaced as
// domain.ErrStoreUnavailable, never retried beyond the bound.
func Open(url string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open ledger store: %w", err)
	}

	var lastErr error
	backoff := pingBackoff
	for attempt := 1; attempt <= maxPingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		lastErr = db.PingContext(ctx)
		cancel()
		if lastErr == nil {
			return db, nil
		}
		logger.Warn("ledger store ping failed", "attempt", attempt, "err", lastErr)
		if attempt < maxPingAttempts {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	db.Close()
	return nil, fmt.Errorf("ping ledger store (%v): %w", lastErr, domain.ErrStoreUnavailable)
}

// Migrate creates the ledger schema. The partial unique index on
// (user_id, event_id) is the storage-level backstop for the
// one-active-enrollment-per-user invariant.
func Migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		salt TEXT NOT NULL,
		name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'attendee',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id BIGSERIAL PRIMARY KEY,
		user_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		state TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_enrollments_event_state
		ON enrollments (event_id, state);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_enrollments_one_active
		ON enrollments (user_id, event_id) WHERE state <> 'cancelled';

	CREATE TABLE IF NOT EXISTS payments (
		id BIGSERIAL PRIMARY KEY,
		enrollment_id BIGINT NOT NULL REFERENCES enrollments(id),
		amount NUMERIC(12,2) NOT NULL,
		method TEXT NOT NULL,
		state TEXT NOT NULL,
		paid_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_enrollment
		ON payments (enrollment_id);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate ledger schema: %w", err)
	}
	return nil
}
