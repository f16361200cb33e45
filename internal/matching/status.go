package matching

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// StatusReader is the read side polled by clients
type StatusReader struct {
	jobs    JobStore
	results ResultStore
}

// NewStatusReader creates a StatusReader
func NewStatusReader(jobs JobStore, results ResultStore) *StatusReader {
	return &StatusReader{jobs: jobs, results: results}
}

// JobStatus returns the job if it belongs to callerID.
// Unknown ids yield *ErrJobNotFound and foreign jobs *ErrAccessDenied.
func (s *StatusReader) JobStatus(ctx context.Context, jobID, callerID uuid.UUID) (*types.MatchingJob, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, &ErrJobNotFound{JobID: jobID}
	}
	if job.UserID != callerID {
		return nil, &ErrAccessDenied{JobID: jobID, UserID: callerID}
	}
	return job, nil
}

// Results returns the caller's persisted results in rank order
func (s *StatusReader) Results(ctx context.Context, userID uuid.UUID) ([]types.MatchResult, error) {
	results, err := s.results.ListResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if results == nil {
		results = []types.MatchResult{}
	}
	return results, nil
}
