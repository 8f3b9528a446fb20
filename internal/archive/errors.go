package archive

import (
	"errors"
	"fmt"
)

// Domain errors for archive operations.
var (
	ErrNotFound     = errors.New("archive resource not found")
	ErrUnauthorized = errors.New("archive authentication failed")
)

// StatusError reports a non-success archive response that is not covered by
// a sentinel error.
type StatusError struct {
	Status int
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("archive request %s returned status %d", e.Path, e.Status)
}
