// Package store persists analysis results in Postgres.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                   UUID PRIMARY KEY,
	session_id           TEXT NOT NULL,
	phone                TEXT NOT NULL,
	region               TEXT NOT NULL,
	timezone             TEXT NOT NULL,
	carrier              TEXT NOT NULL,
	locale_status        TEXT NOT NULL,
	record_count         INTEGER NOT NULL,
	unanswered_hours     INTEGER[] NOT NULL,
	low_engagement_hours INTEGER[] NOT NULL,
	successful_hours     INTEGER[] NOT NULL,
	recommendation       TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS analyses_phone_created_idx ON analyses (phone, created_at DESC);
`

// Migrate creates the analyses table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
