package postgres

import (
	"context"
	"fmt"

	"github.com/signonhq/signon"
)

// Schema is the DDL this store expects. Both email columns are unique:
// accounts by the at-most-one-account-per-email invariant, signup_sessions
// to close the concurrent-initiation race at the store level.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id            UUID PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS signup_sessions (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	status     TEXT NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema applies [Schema]. Intended for development and tests; run
// real deployments through your migration tooling.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", signon.ErrUnavailable, err)
	}
	return nil
}
