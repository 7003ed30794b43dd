package storage

import "errors"

// ErrHistoryRewritten is returned by Sync when the given conversation holds
// fewer turns than are already archived for it.
var ErrHistoryRewritten = errors.New("conversation is shorter than its archive")

// NotFoundError is returned when a conversation doesn't exist in the store.
type NotFoundError struct {
	ID string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return "conversation not found"
	}

	return "conversation not found: " + e.ID
}
