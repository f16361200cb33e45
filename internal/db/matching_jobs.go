package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// -----------------------------------------------------------------------------
// Matching Job Methods
// -----------------------------------------------------------------------------

const jobColumns = `id, user_id, status, progress, current_step, error_message, created_at, completed_at`

// CreateJob inserts a pending job for userID
func (db *DB) CreateJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO matching_jobs (id, user_id, status, progress, current_step)
		 VALUES ($1, $2, $3, 0, $4)
		 RETURNING `+jobColumns,
		uuid.New(), userID, string(types.JobStatusPending), string(types.JobStepEmbedding),
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create matching job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID. Returns nil if not found.
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*types.MatchingJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM matching_jobs WHERE id = $1`,
		jobID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get matching job: %w", err)
	}
	return job, nil
}

// FindActiveJob returns the newest non-terminal job for userID, or nil
func (db *DB) FindActiveJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+`
		 FROM matching_jobs
		 WHERE user_id = $1 AND status IN ('pending', 'processing')
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
	)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active matching job: %w", err)
	}
	return job, nil
}

// UpdateJob applies a status write. Terminal jobs are left untouched.
func (db *DB) UpdateJob(ctx context.Context, jobID uuid.UUID, u types.JobUpdate) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE matching_jobs
		 SET status = $2, progress = $3, current_step = $4, error_message = $5, completed_at = $6
		 WHERE id = $1 AND status NOT IN ('completed', 'failed')`,
		jobID, string(u.Status), u.Progress, string(u.Step), u.ErrorMessage, u.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update matching job: %w", err)
	}
	return nil
}

func scanJob(row pgx.Row) (*types.MatchingJob, error) {
	var job types.MatchingJob
	var status, step string
	var completedAt *time.Time
	if err := row.Scan(&job.ID, &job.UserID, &status, &job.Progress, &step,
		&job.ErrorMessage, &job.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	job.Status = types.JobStatus(status)
	job.CurrentStep = types.JobStep(step)
	job.CompletedAt = completedAt
	return &job, nil
}
