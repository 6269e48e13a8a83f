package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized indicates the credential is missing, malformed, or invalid.
	ErrUnauthorized = errors.New("invalid or missing credential")
	// ErrNotReady indicates provider discovery has not completed.
	ErrNotReady = errors.New("auth provider not ready")
)

// MapHTTPStatus maps authentication errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrNotReady) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
