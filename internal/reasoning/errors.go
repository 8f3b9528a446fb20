package reasoning

import (
	"errors"
	"fmt"
)

// ErrMalformed indicates the model's response could not be parsed into a
// proposal. This is a permanent failure for the document.
var ErrMalformed = errors.New("malformed classification response")

// OverloadError marks a transient upstream failure (rate limit or overload).
// It must never result in an archive write; the current cycle aborts and the
// document is retried on a later cycle.
type OverloadError struct {
	Status int
}

func (e *OverloadError) Error() string {
	return fmt.Sprintf("reasoning service overloaded (status %d)", e.Status)
}

// IsOverloaded reports whether err is a transient overload signal.
func IsOverloaded(err error) bool {
	var oe *OverloadError
	return errors.As(err, &oe)
}
