package reports

import (
	"errors"
	"net/http"

	"github.com/finlight/appraise/internal/intelligence"
)

var (
	ErrNotFound             = errors.New("report not found")
	ErrDuplicate            = errors.New("report already exists")
	ErrForbidden            = errors.New("caller does not own this report")
	ErrNoDocuments          = errors.New("report requires at least one document")
	ErrInvalidSection       = errors.New("section name must not be empty")
	ErrMissingContent       = errors.New("section content missing from request")
	ErrActiveRun            = errors.New("another run is active for this report")
	ErrAlreadyCompleted     = errors.New("report valuation already completed")
	ErrExtractionIncomplete = errors.New("extraction has not finished for all documents")
	ErrNoUsableFacts        = errors.New("no documents extracted successfully")
)

// MapHTTPStatus maps report domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNoDocuments),
		errors.Is(err, ErrInvalidSection),
		errors.Is(err, ErrMissingContent):
		return http.StatusBadRequest
	case errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrActiveRun),
		errors.Is(err, ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, ErrExtractionIncomplete),
		errors.Is(err, ErrNoUsableFacts):
		return http.StatusPreconditionFailed
	case errors.Is(err, intelligence.ErrOperationFailed),
		errors.Is(err, intelligence.ErrUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
