// Package matching runs asynchronous co-founder match jobs: it scores a requester
// against every eligible candidate, ranks the scores and persists the ranked set,
// recording progress on a pollable job record.
package matching

import (
	"context"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// ProfileStore reads profiles and caches their embeddings.
// GetProfile returns (nil, nil) when the user has no profile.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.ProfileRecord, error)
	ListCandidates(ctx context.Context, excludeUserID uuid.UUID) ([]types.ProfileRecord, error)
	UpsertEmbedding(ctx context.Context, userID uuid.UUID, embedding []float32) error
}

// JobStore persists matching jobs. Lookups return (nil, nil) when nothing matches,
// and UpdateJob must ignore jobs that are already terminal.
type JobStore interface {
	CreateJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*types.MatchingJob, error)
	FindActiveJob(ctx context.Context, userID uuid.UUID) (*types.MatchingJob, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, update types.JobUpdate) error
}

// ResultStore persists ranked results. ReplaceResults must swap the whole set atomically.
type ResultStore interface {
	ReplaceResults(ctx context.Context, userID uuid.UUID, results []types.MatchResult) error
	ListResults(ctx context.Context, userID uuid.UUID) ([]types.MatchResult, error)
}

// Store is everything the engine needs from persistence
type Store interface {
	ProfileStore
	JobStore
	ResultStore
}

// Dispatcher hands a created job to something that will call Runner.RunJob for it
type Dispatcher interface {
	Dispatch(ctx context.Context, jobID uuid.UUID) error
}

// Runner executes one job to a terminal state
type Runner interface {
	RunJob(ctx context.Context, jobID uuid.UUID) error
}
