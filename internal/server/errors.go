package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/cofounder-matcher/internal/matching"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		notFound   *matching.ErrJobNotFound
		denied     *matching.ErrAccessDenied
		pre        *matching.ErrPrecondition
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &denied):
		return http.StatusForbidden
	case errors.As(err, &pre):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage is the error text safe to return to callers. Internal errors
// are replaced with a generic message; the cause is only logged.
func clientMessage(err error) string {
	var pre *matching.ErrPrecondition
	switch HTTPStatus(err) {
	case http.StatusInternalServerError:
		return "internal server error"
	case http.StatusForbidden:
		return "access denied"
	case http.StatusNotFound:
		return "matching job not found"
	case http.StatusPreconditionFailed:
		if errors.As(err, &pre) {
			return pre.Reason
		}
	}
	return err.Error()
}
