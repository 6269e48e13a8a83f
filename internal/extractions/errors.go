package extractions

import (
	"errors"
	"net/http"
)

var (
	ErrReportNotFound  = errors.New("report not found")
	ErrActiveRun       = errors.New("another run is active for this report")
	ErrReportCompleted = errors.New("report valuation already completed")
)

// MapHTTPStatus maps extraction domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrReportNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrActiveRun), errors.Is(err, ErrReportCompleted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
