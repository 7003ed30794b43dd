// Package nop provides an eventstream publisher that drops every event.
package nop

import (
	"context"
	"sync/atomic"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
)

// Publisher drops events after validating them. It is the publisher used
// when no event stream is configured.
type Publisher struct {
	dropped atomic.Int64
}

// NewPublisher creates a no-op publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishTurn rejects nil events and otherwise counts and drops the event.
func (p *Publisher) PublishTurn(_ context.Context, event *eventstream.TurnEvent) error {
	if event == nil {
		return eventstream.ErrNilTurnEvent
	}

	p.dropped.Add(1)
	return nil
}

// Dropped returns how many events have been accepted and discarded.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
