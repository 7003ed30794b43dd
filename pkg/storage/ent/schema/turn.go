package schema

import (
	"entgo.io/ent"
	"entgo.io/ent/schema/edge"
	"entgo.io/ent/schema/field"
	"entgo.io/ent/schema/index"
)

// Turn holds the schema definition for the Turn entity.
// Turns are append-only; position is the zero-based index in the history.
type Turn struct {
	ent.Schema
}

// Fields of the Turn.
func (Turn) Fields() []ent.Field {
	return []ent.Field{
		field.String("conversation_id").
			Immutable().
			NotEmpty(),

		field.Int("position").
			Immutable().
			NonNegative(),

		// role is one of "system", "user", "assistant"
		field.String("role").
			Immutable(),

		// content is kept verbatim
		field.Text("content").
			Immutable(),
	}
}

// Indexes of the Turn.
func (Turn) Indexes() []ent.Index {
	return []ent.Index{
		index.Fields("conversation_id", "position").
			Unique(),
	}
}

// Edges of the Turn.
func (Turn) Edges() []ent.Edge {
	return []ent.Edge{
		edge.From("conversation", Conversation.Type).
			Ref("turns").
			Field("conversation_id").
			Unique().
			Required(),
	}
}
