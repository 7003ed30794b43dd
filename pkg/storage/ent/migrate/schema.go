// Package migrate holds the archive tables described by the entities in
// storage/ent/schema and creates them with ent's migration engine.
package migrate

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

var (
	// ConversationsColumns holds the columns for the "conversations" table.
	ConversationsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Unique: true},
		{Name: "model", Type: field.TypeString},
		{Name: "endpoint", Type: field.TypeString},
		{Name: "created_at", Type: field.TypeTime},
	}
	// ConversationsTable holds the schema information for the "conversations" table.
	ConversationsTable = &schema.Table{
		Name:       "conversations",
		Columns:    ConversationsColumns,
		PrimaryKey: []*schema.Column{ConversationsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "conversation_created_at",
				Unique:  false,
				Columns: []*schema.Column{ConversationsColumns[3]},
			},
		},
	}
	// TurnsColumns holds the columns for the "turns" table.
	TurnsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "position", Type: field.TypeInt},
		{Name: "role", Type: field.TypeString},
		{Name: "content", Type: field.TypeString, Size: 2147483647},
		{Name: "conversation_id", Type: field.TypeString},
	}
	// TurnsTable holds the schema information for the "turns" table.
	TurnsTable = &schema.Table{
		Name:       "turns",
		Columns:    TurnsColumns,
		PrimaryKey: []*schema.Column{TurnsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "turns_conversations_turns",
				Columns:    []*schema.Column{TurnsColumns[4]},
				RefColumns: []*schema.Column{ConversationsColumns[0]},
				OnDelete:   schema.NoAction,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "turn_conversation_id_position",
				Unique:  true,
				Columns: []*schema.Column{TurnsColumns[4], TurnsColumns[1]},
			},
		},
	}
	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		ConversationsTable,
		TurnsTable,
	}
)

func init() {
	TurnsTable.ForeignKeys[0].RefTable = ConversationsTable
}

// Create runs ent's auto-migration for every table. It only adds tables,
// columns and indexes, so it is safe to run on every open.
func Create(ctx context.Context, drv dialect.Driver, opts ...schema.MigrateOption) error {
	m, err := schema.NewMigrate(drv, opts...)
	if err != nil {
		return fmt.Errorf("ent/migrate: %w", err)
	}
	return m.Create(ctx, Tables...)
}
