package pipeline

import (
	"errors"
	"net/http"
)

// Domain errors for pipeline operations.
var (
	ErrDocumentNotFound = errors.New("document not found in archive")
	ErrStatusOption     = errors.New("pipeline status value missing from status field options")
)

// MapHTTPStatus maps pipeline domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrDocumentNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
