package api

import (
	"context"
	"errors"
	"fmt"
)

// APIError carries the HTTP status and server-provided detail of a
// failed call, so callers can distinguish backend rejections from
// transport failures.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api: server returned status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Detail, e.Status)
}

// IsAborted reports whether the error came from the caller cancelling
// the request rather than the request failing. Aborted sends are
// deliberate and never surface an error notification.
func IsAborted(err error) bool {
	return errors.Is(err, context.Canceled)
}
