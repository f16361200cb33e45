package matching

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrJobUnavailable wraps errors loading a job before any work started.
// The job is untouched and running it again later is safe.
var ErrJobUnavailable = errors.New("matching job unavailable")

// ErrJobNotFound indicates the job id is unknown
type ErrJobNotFound struct {
	JobID uuid.UUID
}

func (e *ErrJobNotFound) Error() string {
	return fmt.Sprintf("matching job not found: %s", e.JobID)
}

// ErrAccessDenied indicates the job belongs to a different user
type ErrAccessDenied struct {
	JobID  uuid.UUID
	UserID uuid.UUID
}

func (e *ErrAccessDenied) Error() string {
	return fmt.Sprintf("user %s may not access matching job %s", e.UserID, e.JobID)
}

// ErrPrecondition indicates the requester cannot be matched yet
type ErrPrecondition struct {
	UserID uuid.UUID
	Reason string
}

func (e *ErrPrecondition) Error() string {
	return fmt.Sprintf("cannot match user %s: %s", e.UserID, e.Reason)
}
