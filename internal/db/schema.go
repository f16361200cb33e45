package db

import (
	"context"
	"fmt"
)

// Schema is the DDL for the matching tables. Every statement is idempotent.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS profiles (
	id                   UUID PRIMARY KEY,
	onboarding_completed BOOLEAN NOT NULL DEFAULT FALSE,
	onboarding_data      JSONB,
	embedding            vector,
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_profiles_onboarding_completed
	ON profiles (onboarding_completed) WHERE onboarding_completed;

CREATE TABLE IF NOT EXISTS matching_jobs (
	id            UUID PRIMARY KEY,
	user_id       UUID NOT NULL,
	status        TEXT NOT NULL CHECK (status IN ('pending', 'processing', 'completed', 'failed')),
	progress      INTEGER NOT NULL DEFAULT 0 CHECK (progress BETWEEN 0 AND 100),
	current_step  TEXT NOT NULL,
	error_message TEXT,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_matching_jobs_user_status ON matching_jobs (user_id, status);

CREATE TABLE IF NOT EXISTS match_results (
	user_id          UUID NOT NULL,
	matched_user_id  UUID NOT NULL,
	match_percentage INTEGER NOT NULL CHECK (match_percentage BETWEEN 0 AND 100),
	rank             INTEGER NOT NULL CHECK (rank >= 1),
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, matched_user_id)
);

CREATE INDEX IF NOT EXISTS idx_match_results_user_rank ON match_results (user_id, rank);
`

// Migrate applies Schema
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
