// Package storage archives conversations so they can be listed and replayed
// after the process that held them exits.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

// Conversation is an archived conversation and its turns in order.
type Conversation struct {
	ID        string     `json:"id"`
	Model     string     `json:"model"`
	Endpoint  string     `json:"endpoint"`
	CreatedAt time.Time  `json:"created_at"`
	Turns     []llm.Turn `json:"turns"`
}

// Driver defines the interface for archiving conversations in a storage backend.
// Archives are append-only: turns, once stored, are never rewritten or removed.
type Driver interface {
	// Sync stores every turn of conv that the archive does not hold yet and
	// returns how many were appended. The conversation row is created on the
	// first call. Returns ErrHistoryRewritten if the archive already holds more
	// turns than conv.
	Sync(ctx context.Context, conv *Conversation) (int, error)

	// Get retrieves a conversation and all of its turns by ID.
	Get(ctx context.Context, id string) (*Conversation, error)

	// List returns all conversations, oldest first, with their turns.
	List(ctx context.Context) ([]*Conversation, error)

	// Close closes the store and releases any resources.
	Close() error
}
