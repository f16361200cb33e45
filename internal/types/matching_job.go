package types

import (
	"time"

	"github.com/google/uuid"
)

// JobStatus is the lifecycle state of a MatchingJob
type JobStatus string

// JobStatus values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// JobStep marks the phase a processing job is in
type JobStep string

// JobStep values
const (
	JobStepEmbedding   JobStep = "embedding"
	JobStepCalculating JobStep = "calculating"
	JobStepRanking     JobStep = "ranking"
)

// MatchingJob represents one asynchronous scoring run for a requesting user
type MatchingJob struct {
	ID           uuid.UUID  `json:"id"`
	UserID       uuid.UUID  `json:"user_id"`
	Status       JobStatus  `json:"status"`
	Progress     int        `json:"progress"`
	CurrentStep  JobStep    `json:"current_step"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobUpdate is a status write applied to a non-terminal job
type JobUpdate struct {
	Status       JobStatus
	Progress     int
	Step         JobStep
	ErrorMessage *string
	CompletedAt  *time.Time
}
