package schema

import (
	"time"

	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Conversation holds the schema definition for the Conversation entity.
// One row per archived conversation; its turns hang off the turns edge.
type Conversation struct {
	ent.Schema
}

// Fields of the Conversation.
func (Conversation) Fields() []ent.Field {
	return []ent.Field{
		field.String("id").
			Unique().
			Immutable().
			NotEmpty(),

		// model every request of the conversation was sent to
		field.String("model"),

		// endpoint is the chat URL the conversation talked to
		field.String("endpoint"),

		field.Time("created_at").
			Default(time.Now).
			Immutable(),
	}
}

// Indexes of the Conversation.
func (Conversation) Indexes() []ent.Index {
	return []ent.Index{
		// List orders by creation time
		index.Fields("created_at"),
	}
}

// Edges of the Conversation.
func (Conversation) Edges() []ent.Edge {
	return []ent.Edge{
		edge.To("turns", Turn.Type),
	}
}
