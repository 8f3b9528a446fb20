package outcomes

import (
	"errors"
	"net/http"
)

// Domain errors for outcome operations.
var (
	ErrNotFound     = errors.New("outcome not found")
	ErrInvalidMonth = errors.New("month must be formatted YYYY-MM")
)

// MapHTTPStatus maps outcome domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidMonth) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
