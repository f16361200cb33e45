// Package sqlite is a single-file SQLite store with the same semantics as the
// PostgreSQL store, for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jonathan/cofounder-matcher/internal/types"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements profile, job and result persistence on SQLite
type Store struct {
	db *sqlx.DB
}

// Open connects to the database at path (":memory:" for an in-memory database) and
// creates the schema.
func Open(path string) (*Store, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// one connection: serialises writers and keeps an in-memory database alive
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id                   TEXT PRIMARY KEY,
		onboarding_completed BOOLEAN NOT NULL DEFAULT 0,
		onboarding_data      TEXT,
		embedding            TEXT,
		updated_at           DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS matching_jobs (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		status        TEXT NOT NULL,
		progress      INTEGER NOT NULL DEFAULT 0,
		current_step  TEXT NOT NULL,
		error_message TEXT,
		created_at    DATETIME NOT NULL,
		completed_at  DATETIME
	)`,
	`CREATE INDEX IF NOT EXISTS idx_matching_jobs_user_status ON matching_jobs(user_id, status)`,
	`CREATE TABLE IF NOT EXISTS match_results (
		user_id          TEXT NOT NULL,
		matched_user_id  TEXT NOT NULL,
		match_percentage INTEGER NOT NULL,
		rank             INTEGER NOT NULL,
		created_at       DATETIME NOT NULL,
		PRIMARY KEY (user_id, matched_user_id)
	)`,
}

// Migrate creates the tables if they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Ping checks the database handle
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *Store) Close() {
	_ = s.db.Close()
}

type profileRow struct {
	ID                  uuid.UUID      `db:"id"`
	OnboardingCompleted bool           `db:"onboarding_completed"`
	OnboardingData      sql.NullString `db:"onboarding_data"`
	Embedding           sql.NullString `db:"embedding"`
}

func (r profileRow) record() types.ProfileRecord {
	p := types.ProfileRecord{UserID: r.ID, OnboardingCompleted: r.OnboardingCompleted}
	if r.OnboardingData.Valid && r.OnboardingData.String != "" {
		p.OnboardingData = json.RawMessage(r.OnboardingData.String)
	}
	if r.Embedding.Valid {
		var vec []float32
		// undecodable cache reads back as absent
		if err := json.Unmarshal([]byte(r.Embedding.String), &vec); err == nil && len(vec) > 0 {
			p.Embedding = vec
		}
	}
	return p
}

// GetProfile returns the profile for userID, or nil if there is none
func (s *Store) GetProfile(ctx context.Context, userID uuid.UUID) (*types.ProfileRecord, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, onboarding_completed, onboarding_data, embedding FROM profiles WHERE id = ?`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	p := row.record()
	return &p, nil
}

// ListCandidates returns every completed profile other than excludeUserID, ordered by id
func (s *Store) ListCandidates(ctx context.Context, excludeUserID uuid.UUID) ([]types.ProfileRecord, error) {
	var rows []profileRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, onboarding_completed, onboarding_data, embedding
		 FROM profiles
		 WHERE onboarding_completed = 1 AND id <> ?
		 ORDER BY id`, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	out := make([]types.ProfileRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// UpsertEmbedding overwrites the cached embedding for userID
func (s *Store) UpsertEmbedding(ctx context.Context, userID uuid.UUID, embedding []float32) error {
	encoded, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("failed to encode embedding: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET embedding = ?, updated_at = ? WHERE id = ?`,
		string(encoded), time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("failed to store embedding: profile not found: %s", userID)
	}
	return nil
}

// UpsertProfile creates or updates the onboarding fields of a profile.
// Changed onboarding data clears the cached embedding.
func (s *Store) UpsertProfile(ctx context.Context, p *types.ProfileRecord) error {
	var data sql.NullString
	if len(p.OnboardingData) > 0 {
		data = sql.NullString{String: string(p.OnboardingData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profiles (id, onboarding_completed, onboarding_data, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     onboarding_completed = excluded.onboarding_completed,
		     embedding = CASE
		         WHEN profiles.onboarding_data IS excluded.onboarding_data THEN profiles.embedding
		         ELSE NULL
		     END,
		     onboarding_data = excluded.onboarding_data,
		     updated_at = excluded.updated_at`,
		p.UserID, p.OnboardingCompleted, data, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}
