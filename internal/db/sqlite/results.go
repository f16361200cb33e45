package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// ReplaceResults swaps the requester's result set in a single transaction
func (s *Store) ReplaceResults(ctx context.Context, userID uuid.UUID, results []types.MatchResult) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_results WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("failed to delete previous results: %w", err)
	}

	if len(results) > 0 {
		stmt, err := tx.PreparexContext(ctx,
			`INSERT INTO match_results (user_id, matched_user_id, match_percentage, rank, created_at)
			 VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare result insert: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		now := time.Now().UTC()
		for _, r := range results {
			if _, err := stmt.ExecContext(ctx, userID, r.MatchedUserID, r.MatchPercentage, r.Rank, now); err != nil {
				return fmt.Errorf("failed to insert results: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

type resultRow struct {
	UserID          uuid.UUID `db:"user_id"`
	MatchedUserID   uuid.UUID `db:"matched_user_id"`
	MatchPercentage int       `db:"match_percentage"`
	Rank            int       `db:"rank"`
}

// ListResults returns the requester's results ordered by rank
func (s *Store) ListResults(ctx context.Context, userID uuid.UUID) ([]types.MatchResult, error) {
	var rows []resultRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT user_id, matched_user_id, match_percentage, rank
		 FROM match_results WHERE user_id = ? ORDER BY rank`, userID); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	out := make([]types.MatchResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, types.MatchResult(r))
	}
	return out, nil
}
