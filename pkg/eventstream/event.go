package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeTurnCompleted is emitted after an assistant reply has been
	// appended to a conversation.
	EventTypeTurnCompleted = "chatzilla.turn.completed"
)

// TurnEvent is a transport-neutral event payload for a completed exchange.
type TurnEvent struct {
	SchemaVersion  int          `json:"schema_version"`
	EventType      string       `json:"event_type"`
	EventID        string       `json:"event_id"`
	EmittedAt      time.Time    `json:"emitted_at"`
	ConversationID string       `json:"conversation_id"`
	TurnIndex      int          `json:"turn_index"`
	Exchange       llm.Exchange `json:"exchange"`
}

// NewTurnEvent builds a TurnEvent for the assistant turn stored at turnIndex
// of the conversation identified by conversationID.
func NewTurnEvent(conversationID string, turnIndex int, exchange llm.Exchange) *TurnEvent {
	return &TurnEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeTurnCompleted,
		EventID:        uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		ConversationID: conversationID,
		TurnIndex:      turnIndex,
		Exchange:       exchange,
	}
}
