package ollama

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is returned when the server reply lacks the field that
	// carries the reply text ("response" or "message.content").
	ErrMissingField = errors.New("missing field in server response")

	// ErrInvalidRole is returned by Begin for a role outside llm.Roles().
	ErrInvalidRole = errors.New("invalid role")

	// ErrNothingPending is returned by Retry when the last turn already has
	// an answer.
	ErrNothingPending = errors.New("no unanswered turn to retry")
)

// StatusError is returned when the server answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Body)
}
