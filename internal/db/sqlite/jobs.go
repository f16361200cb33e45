package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

type jobRow struct {
	ID           uuid.UUID      `db:"id"`
	UserID       uuid.UUID      `db:"user_id"`
	Status       string         `db:"status"`
	Progress     int            `db:"progress"`
	CurrentStep  string         `db:"current_step"`
	ErrorMessage sql.NullString `db:"error_message"`
	CreatedAt    time.Time      `db:"created_at"`
	CompletedAt  sql.NullTime   `db:"completed_at"`
}

func (r jobRow) job() *types.MatchingJob {
	j := &types.MatchingJob{
		ID:          r.ID,
		UserID:      r.UserID,
		Status:      types.JobStatus(r.Status),
		Progress:    r.Progress,
		CurrentStep: types.JobStep(r.CurrentStep),
		CreatedAt:   r.CreatedAt,
	}
	if r.ErrorMessage.Valid {
		msg := r.ErrorMessage.String
		j.ErrorMessage = &msg
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		j.CompletedAt = &t
	}
	return j
}

const jobColumns = `id, user_id, status, progress, current_step, error_message, created_at, completed_at`

// CreateJob inserts a pending job for userID
func (s *Store) CreateJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	row := jobRow{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      string(types.JobStatusPending),
		CurrentStep: string(types.JobStepEmbedding),
		CreatedAt:   time.Now().UTC(),
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO matching_jobs (id, user_id, status, progress, current_step, created_at)
		 VALUES (:id, :user_id, :status, :progress, :current_step, :created_at)`, row)
	if err != nil {
		return nil, fmt.Errorf("failed to create matching job: %w", err)
	}
	return row.job(), nil
}

// GetJob returns the job with jobID, or nil
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*types.MatchingJob, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row, `SELECT `+jobColumns+` FROM matching_jobs WHERE id = ?`, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get matching job: %w", err)
	}
	return row.job(), nil
}

// FindActiveJob returns the newest non-terminal job for userID, or nil
func (s *Store) FindActiveJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error) {
	var row jobRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+jobColumns+`
		 FROM matching_jobs
		 WHERE user_id = ? AND status IN ('pending', 'processing')
		 ORDER BY created_at DESC
		 LIMIT 1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active matching job: %w", err)
	}
	return row.job(), nil
}

// UpdateJob applies a status write unless the job is already terminal
func (s *Store) UpdateJob(ctx context.Context, jobID uuid.UUID, u types.JobUpdate) error {
	var completedAt sql.NullTime
	if u.CompletedAt != nil {
		completedAt = sql.NullTime{Time: u.CompletedAt.UTC(), Valid: true}
	}
	var errMsg sql.NullString
	if u.ErrorMessage != nil {
		errMsg = sql.NullString{String: *u.ErrorMessage, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE matching_jobs
		 SET status = ?, progress = ?, current_step = ?, error_message = ?, completed_at = ?
		 WHERE id = ? AND status NOT IN ('completed', 'failed')`,
		string(u.Status), u.Progress, string(u.Step), errMsg, completedAt, jobID)
	if err != nil {
		return fmt.Errorf("failed to update matching job: %w", err)
	}
	return nil
}
