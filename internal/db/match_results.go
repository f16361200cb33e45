package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Match Result Methods
// -----------------------------------------------------------------------------

// ReplaceResults deletes every result row for userID and inserts results in one transaction
func (db *DB) ReplaceResults(ctx context.Context, userID uuid.UUID, results []types.MatchResult) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM match_results WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete previous results: %w", err)
	}

	if len(results) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"match_results"},
			[]string{"user_id", "matched_user_id", "match_percentage", "rank"},
			pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
				r := results[i]
				return []any{userID, r.MatchedUserID, r.MatchPercentage, r.Rank}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to insert results: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit results: %w", err)
	}
	return nil
}

// ListResults returns a requester's results in rank order
func (db *DB) ListResults(ctx context.Context, userID uuid.UUID) ([]types.MatchResult, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT user_id, matched_user_id, match_percentage, rank
		 FROM match_results
		 WHERE user_id = $1
		 ORDER BY rank`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	results := []types.MatchResult{}
	for rows.Next() {
		var r types.MatchResult
		if err := rows.Scan(&r.UserID, &r.MatchedUserID, &r.MatchPercentage, &r.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	return results, nil
}
