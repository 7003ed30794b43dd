// Package inmemory provides a map-backed storage driver for tests and
// sessions that do not need a durable archive.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/papercomputeco/chatzilla/pkg/storage"
)

// Driver implements storage.Driver using an in-memory map.
type Driver struct {
	// mu guards conversations
	mu sync.RWMutex

	// conversations is keyed by conversation ID
	conversations map[string]*storage.Conversation
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		conversations: make(map[string]*storage.Conversation),
	}
}

// Sync appends the turns of conv the archive has not seen yet.
func (s *Driver) Sync(_ context.Context, conv *storage.Conversation) (int, error) {
	if conv == nil {
		return 0, errors.New("cannot sync nil conversation")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.conversations[conv.ID]
	if !ok {
		stored = &storage.Conversation{
			ID:        conv.ID,
			Model:     conv.Model,
			Endpoint:  conv.Endpoint,
			CreatedAt: conv.CreatedAt,
		}
		s.conversations[conv.ID] = stored
	}

	have := len(stored.Turns)
	if have > len(conv.Turns) {
		return 0, fmt.Errorf("%w: %s holds %d turns, got %d",
			storage.ErrHistoryRewritten, conv.ID, have, len(conv.Turns))
	}

	stored.Turns = append(stored.Turns, conv.Turns[have:]...)
	return len(conv.Turns) - have, nil
}

// Get returns a copy of the archived conversation.
func (s *Driver) Get(_ context.Context, id string) (*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, storage.NotFoundError{ID: id}
	}

	return clone(conv), nil
}

// List returns copies of all conversations ordered by creation time.
func (s *Driver) List(_ context.Context) ([]*storage.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*storage.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, clone(conv))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out, nil
}

// Close is a no-op.
func (s *Driver) Close() error {
	return nil
}

func clone(c *storage.Conversation) *storage.Conversation {
	cp := *c
	cp.Turns = slices.Clone(c.Turns)
	return &cp
}

var _ storage.Driver = (*Driver)(nil)
