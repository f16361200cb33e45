package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/pgvector/pgvector-go"
)

// -----------------------------------------------------------------------------
// Profile Methods
// -----------------------------------------------------------------------------

// The embedding is selected as text and decoded client-side so a malformed
// cached value reads back as absent instead of failing the query.
const profileColumns = `id, onboarding_completed, onboarding_data, embedding::text`

// GetProfile retrieves a user's profile record. Returns nil if the user has no profile row.
func (db *DB) GetProfile(ctx context.Context, userID uuid.UUID) (*types.ProfileRecord, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = $1`,
		userID,
	)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListCandidates returns every profile that completed onboarding except excludeUserID, ordered by id
func (db *DB) ListCandidates(ctx context.Context, excludeUserID uuid.UUID) ([]types.ProfileRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+profileColumns+`
		 FROM profiles
		 WHERE onboarding_completed AND id <> $1
		 ORDER BY id`,
		excludeUserID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	defer rows.Close()

	var profiles []types.ProfileRecord
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return profiles, nil
}

// UpsertEmbedding overwrites the cached embedding for a user
func (db *DB) UpsertEmbedding(ctx context.Context, userID uuid.UUID, embedding []float32) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE profiles SET embedding = $2, updated_at = NOW() WHERE id = $1`,
		userID, pgvector.NewVector(embedding),
	)
	if err != nil {
		return fmt.Errorf("failed to store embedding: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to store embedding: profile not found: %s", userID)
	}
	return nil
}

// UpsertProfile creates or updates a profile's onboarding fields.
// Changing the onboarding data clears the cached embedding.
func (db *DB) UpsertProfile(ctx context.Context, p *types.ProfileRecord) error {
	var data []byte
	if len(p.OnboardingData) > 0 {
		data = p.OnboardingData
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO profiles (id, onboarding_completed, onboarding_data)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		     onboarding_completed = EXCLUDED.onboarding_completed,
		     onboarding_data = EXCLUDED.onboarding_data,
		     embedding = CASE
		         WHEN profiles.onboarding_data IS DISTINCT FROM EXCLUDED.onboarding_data THEN NULL
		         ELSE profiles.embedding
		     END,
		     updated_at = NOW()`,
		p.UserID, p.OnboardingCompleted, data,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (*types.ProfileRecord, error) {
	var p types.ProfileRecord
	var data []byte
	var embeddingText *string
	if err := row.Scan(&p.UserID, &p.OnboardingCompleted, &data, &embeddingText); err != nil {
		return nil, err
	}
	if len(data) > 0 {
		p.OnboardingData = json.RawMessage(data)
	}
	p.Embedding = decodeEmbedding(embeddingText)
	return &p, nil
}

func decodeEmbedding(text *string) []float32 {
	if text == nil || *text == "" {
		return nil
	}
	var v pgvector.Vector
	if err := v.Scan(*text); err != nil {
		return nil
	}
	return v.Slice()
}
