package review

import (
	"errors"
	"net/http"
)

// Domain errors for review operations.
var (
	ErrNotFound   = errors.New("document not found")
	ErrNotPending = errors.New("document is not pending review")
)

// MapHTTPStatus maps review domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotPending):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
