package testutils

import (
	"context"
	"errors"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
	"github.com/papercomputeco/chatzilla/pkg/storage"
)

// MockPublisher records published events.
type MockPublisher struct {
	Events []*eventstream.TurnEvent

	// Fail causes PublishTurn to return an error.
	Fail bool
}

func (m *MockPublisher) PublishTurn(_ context.Context, event *eventstream.TurnEvent) error {
	if m.Fail {
		return errors.New("mock publish failure")
	}
	m.Events = append(m.Events, event)
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// FailingDriver is a storage.Driver whose Sync always fails.
type FailingDriver struct {
	storage.Driver
}

func (FailingDriver) Sync(context.Context, *storage.Conversation) (int, error) {
	return 0, errors.New("mock sync failure")
}
