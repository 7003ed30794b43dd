// Package entdriver
package entdriver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/storage"
	"github.com/papercomputeco/chatzilla/pkg/storage/ent/migrate"
)

var (
	conversationsTable = migrate.ConversationsTable.Name
	turnsTable         = migrate.TurnsTable.Name
)

const (
	fieldID             = "id"
	fieldModel          = "model"
	fieldEndpoint       = "endpoint"
	fieldCreatedAt      = "created_at"
	fieldConversationID = "conversation_id"
	fieldPosition       = "position"
	fieldRole           = "role"
	fieldContent        = "content"
)

// EntDriver provides storage operations over an ent SQL driver.
// It is database-agnostic and can be embedded by specific drivers.
type EntDriver struct {
	DB *entsql.Driver
}

func (ed *EntDriver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(ed.DB.Dialect())
}

// Sync appends the turns of conv the archive has not seen yet, in one transaction.
func (ed *EntDriver) Sync(ctx context.Context, conv *storage.Conversation) (int, error) {
	if conv == nil {
		return 0, errors.New("cannot sync nil conversation")
	}

	tx, err := ed.DB.Tx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	b := ed.builder()
	query, args := b.Insert(conversationsTable).
		Columns(fieldID, fieldModel, fieldEndpoint, fieldCreatedAt).
		Values(conv.ID, conv.Model, conv.Endpoint, createdAt.UTC()).
		OnConflict(entsql.ConflictColumns(fieldID), entsql.DoNothing()).
		Query()
	if err := tx.Exec(ctx, query, args, nil); err != nil {
		return 0, fmt.Errorf("failed to insert conversation: %w", err)
	}

	have, err := ed.countTurns(ctx, tx, conv.ID)
	if err != nil {
		return 0, err
	}

	if have > len(conv.Turns) {
		return 0, fmt.Errorf("%w: %s holds %d turns, got %d",
			storage.ErrHistoryRewritten, conv.ID, have, len(conv.Turns))
	}

	if have < len(conv.Turns) {
		insert := b.Insert(turnsTable).
			Columns(fieldConversationID, fieldPosition, fieldRole, fieldContent)
		for i := have; i < len(conv.Turns); i++ {
			t := conv.Turns[i]
			insert.Values(conv.ID, i, string(t.Role), t.Content)
		}

		query, args = insert.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return 0, fmt.Errorf("failed to insert turns: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(conv.Turns) - have, nil
}

func (ed *EntDriver) countTurns(ctx context.Context, q dialect.ExecQuerier, id string) (int, error) {
	b := ed.builder()
	t := b.Table(turnsTable)
	query, args := b.Select(entsql.Count("*")).
		From(t).
		Where(entsql.EQ(t.C(fieldConversationID), id)).
		Query()

	rows := &entsql.Rows{}
	if err := q.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("failed to count turns: %w", err)
		}
	}
	return n, rows.Err()
}

// Get retrieves a conversation and its turns.
func (ed *EntDriver) Get(ctx context.Context, id string) (*storage.Conversation, error) {
	convs, err := ed.conversations(ctx, func(s *entsql.Selector, t *entsql.SelectTable) {
		s.Where(entsql.EQ(t.C(fieldID), id))
	})
	if err != nil {
		return nil, err
	}
	if len(convs) == 0 {
		return nil, storage.NotFoundError{ID: id}
	}

	return convs[0], nil
}

// List returns all conversations ordered by creation time.
func (ed *EntDriver) List(ctx context.Context) ([]*storage.Conversation, error) {
	return ed.conversations(ctx, func(s *entsql.Selector, t *entsql.SelectTable) {
		s.OrderBy(t.C(fieldCreatedAt), t.C(fieldID))
	})
}

// conversations runs a conversation query shaped by modify and loads the
// turns of every row it returns.
func (ed *EntDriver) conversations(ctx context.Context, modify func(*entsql.Selector, *entsql.SelectTable)) ([]*storage.Conversation, error) {
	b := ed.builder()
	t := b.Table(conversationsTable)
	selector := b.Select(t.C(fieldID), t.C(fieldModel), t.C(fieldEndpoint), t.C(fieldCreatedAt)).From(t)
	modify(selector, t)
	query, args := selector.Query()

	rows := &entsql.Rows{}
	if err := ed.DB.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}

	var out []*storage.Conversation
	for rows.Next() {
		conv := &storage.Conversation{}
		if err := rows.Scan(&conv.ID, &conv.Model, &conv.Endpoint, &conv.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	rows.Close()

	for _, conv := range out {
		var err error
		if conv.Turns, err = ed.turns(ctx, conv.ID); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (ed *EntDriver) turns(ctx context.Context, id string) ([]llm.Turn, error) {
	b := ed.builder()
	t := b.Table(turnsTable)
	query, args := b.Select(t.C(fieldRole), t.C(fieldContent)).
		From(t).
		Where(entsql.EQ(t.C(fieldConversationID), id)).
		OrderBy(t.C(fieldPosition)).
		Query()

	rows := &entsql.Rows{}
	if err := ed.DB.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var out []llm.Turn
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		out = append(out, llm.NewTurn(llm.Role(role), content))
	}

	return out, rows.Err()
}

// Close closes the underlying database.
func (ed *EntDriver) Close() error {
	return ed.DB.Close()
}

var _ storage.Driver = (*EntDriver)(nil)
