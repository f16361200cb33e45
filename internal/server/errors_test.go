package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/matching"
	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "id", Message: "must be a UUID"}
	assert.Equal(t, "validation error: id - must be a UUID", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	jobID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		err      error
		expected int
		message  string
	}{
		{"validation", &ErrValidation{Field: "id", Message: "bad"}, http.StatusBadRequest, "validation error: id - bad"},
		{"job not found", &matching.ErrJobNotFound{JobID: jobID}, http.StatusNotFound, "matching job not found"},
		{"wrapped not found", fmt.Errorf("lookup: %w", &matching.ErrJobNotFound{JobID: jobID}), http.StatusNotFound, "matching job not found"},
		{"access denied", &matching.ErrAccessDenied{JobID: jobID, UserID: userID}, http.StatusForbidden, "access denied"},
		{"precondition", &matching.ErrPrecondition{UserID: userID, Reason: "onboarding not completed"}, http.StatusPreconditionFailed, "onboarding not completed"},
		{"unknown", fmt.Errorf("connection refused"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
			assert.Equal(t, tt.message, clientMessage(tt.err))
		})
	}
}
