// Package eventstream defines the publisher used to broadcast completed
// conversation turns to an external event stream.
package eventstream

import "context"

// Publisher publishes turn events to an event stream backend.
type Publisher interface {
	PublishTurn(ctx context.Context, event *TurnEvent) error
	Close() error
}
