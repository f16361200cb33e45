package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/server/middleware"
	"github.com/jonathan/cofounder-matcher/internal/types"
)

// StartMatchResponse is returned when a run is accepted
type StartMatchResponse struct {
	JobID uuid.UUID `json:"job_id"`
}

// JobStatusResponse is the pollable view of a job
type JobStatusResponse struct {
	JobID        uuid.UUID       `json:"job_id"`
	Status       types.JobStatus `json:"status"`
	Progress     int             `json:"progress"`
	CurrentStep  types.JobStep   `json:"current_step"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// MatchResponse is one ranked row
type MatchResponse struct {
	MatchedUserID   uuid.UUID `json:"matched_user_id"`
	MatchPercentage int       `json:"match_percentage"`
	Rank            int       `json:"rank"`
}

// ListMatchesResponse wraps the caller's ranked results
type ListMatchesResponse struct {
	Matches []MatchResponse `json:"matches"`
	Count   int             `json:"count"`
}

// handleStartMatch starts (or rejoins) the caller's match run
func (s *Server) handleStartMatch(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := s.matcher.CheckEligible(r.Context(), userID); err != nil {
		s.handleError(w, r, err)
		return
	}

	jobID, err := s.matcher.Start(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	w.Header().Set("Location", "/matches/jobs/"+jobID.String())
	s.jsonResponse(w, http.StatusAccepted, StartMatchResponse{JobID: jobID})
}

// handleJobStatus returns one of the caller's jobs
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	jobID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.handleError(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}

	job, err := s.status.JobStatus(r.Context(), jobID, userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, JobStatusResponse{
		JobID:        job.ID,
		Status:       job.Status,
		Progress:     job.Progress,
		CurrentStep:  job.CurrentStep,
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		CompletedAt:  job.CompletedAt,
	})
}

// handleListMatches returns the caller's latest ranked results
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	results, err := s.status.Results(r.Context(), userID)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	matches := make([]MatchResponse, 0, len(results))
	for _, res := range results {
		matches = append(matches, MatchResponse{
			MatchedUserID:   res.MatchedUserID,
			MatchPercentage: res.MatchPercentage,
			Rank:            res.Rank,
		})
	}
	s.jsonResponse(w, http.StatusOK, ListMatchesResponse{Matches: matches, Count: len(matches)})
}
