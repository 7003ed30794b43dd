package ollama

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/chatzilla/pkg/eventstream"
	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/logger"
	"github.com/papercomputeco/chatzilla/pkg/storage"
)

// Recorder archives a conversation after each completed exchange.
// storage.Driver satisfies it.
type Recorder interface {
	Sync(ctx context.Context, conv *storage.Conversation) (int, error)
}

// Conversation owns an append-only turn history against one chat endpoint.
// The server keeps no session state, so Next resends the accumulated history
// on every call.
//
// A Conversation is not safe for concurrent use.
type Conversation struct {
	id        string
	client    *Client
	endpoint  string
	model     string
	createdAt time.Time
	history   []llm.Turn

	// pending is set while the last turn has not been answered because the
	// exchange that carried it failed.
	pending bool

	window    llm.Window
	recorder  Recorder
	publisher eventstream.Publisher
	logger    *slog.Logger
}

// ConversationOption configures a Conversation created with NewConversation.
type ConversationOption func(*Conversation)

// WithModel overrides DefaultModel.
func WithModel(model string) ConversationOption {
	return func(c *Conversation) {
		c.model = model
	}
}

// WithWindow sets the policy that selects which turns Next sends.
// Defaults to llm.FullHistory.
func WithWindow(w llm.Window) ConversationOption {
	return func(c *Conversation) {
		c.window = w
	}
}

// WithRecorder archives the conversation after every completed exchange.
func WithRecorder(r Recorder) ConversationOption {
	return func(c *Conversation) {
		c.recorder = r
	}
}

// WithPublisher emits an eventstream.TurnEvent after every completed exchange.
func WithPublisher(p eventstream.Publisher) ConversationOption {
	return func(c *Conversation) {
		c.publisher = p
	}
}

// WithConversationLogger sets the logger for recorder and publisher failures.
func WithConversationLogger(l *slog.Logger) ConversationOption {
	return func(c *Conversation) {
		c.logger = l
	}
}

// WithConversationID sets the ID used by the recorder and published events.
// Defaults to a random UUID.
func WithConversationID(id string) ConversationOption {
	return func(c *Conversation) {
		c.id = id
	}
}

// WithHistory seeds the conversation with turns from an earlier session.
// The turns are copied. Pair it with WithPending when the last of them was
// never answered.
func WithHistory(turns []llm.Turn) ConversationOption {
	return func(c *Conversation) {
		c.history = slices.Clone(turns)
	}
}

// WithPending marks the last seeded turn as unanswered so Retry resends it.
// It has no effect on an empty history.
func WithPending(pending bool) ConversationOption {
	return func(c *Conversation) {
		c.pending = pending
	}
}

// NewConversation creates an empty conversation against endpoint.
func NewConversation(client *Client, endpoint string, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		id:        uuid.NewString(),
		client:    client,
		endpoint:  endpoint,
		model:     DefaultModel,
		createdAt: time.Now(),
		window:    llm.FullHistory,
		logger:    logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pending = c.pending && len(c.history) > 0
	return c
}

// ID returns the conversation ID.
func (c *Conversation) ID() string {
	return c.id
}

// Model returns the model every request is sent to.
func (c *Conversation) Model() string {
	return c.model
}

// Endpoint returns the chat endpoint URL.
func (c *Conversation) Endpoint() string {
	return c.endpoint
}

// Begin opens the conversation: it appends Turn{role, content} and sends
// that single turn, then appends the assistant reply.
//
// If the request fails the turn stays in the history without an answer and
// the error is returned; see Pending and Retry.
func (c *Conversation) Begin(ctx context.Context, content string, role llm.Role) (*llm.Reply, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	turn := llm.NewTurn(role, content)
	c.history = append(c.history, turn)
	c.pending = true

	return c.exchange(ctx, []llm.Turn{turn})
}

// Next appends a user turn and sends the whole history, then appends the
// assistant reply. Calling Next on an empty conversation sends only the new
// turn.
//
// If the request fails the user turn stays in the history without an answer
// and the error is returned; see Pending and Retry.
func (c *Conversation) Next(ctx context.Context, content string) (*llm.Reply, error) {
	c.history = append(c.history, llm.UserTurn(content))
	c.pending = true

	return c.exchange(ctx, c.window(c.history))
}

// Retry resends the history when the last turn is unanswered, without
// appending it a second time.
func (c *Conversation) Retry(ctx context.Context) (*llm.Reply, error) {
	if !c.Pending() {
		return nil, ErrNothingPending
	}

	return c.exchange(ctx, c.window(c.history))
}

// Pending reports whether the last turn is waiting for a reply, which
// happens when the request that carried it failed. The role of that turn
// does not matter: a failed Begin with an assistant turn is pending too.
func (c *Conversation) Pending() bool {
	return c.pending
}

// History returns the live turn history. It is not a copy; callers must not
// modify it.
func (c *Conversation) History() []llm.Turn {
	return c.history
}

// exchange sends turns and, on success, appends the assistant reply.
func (c *Conversation) exchange(ctx context.Context, turns []llm.Turn) (*llm.Reply, error) {
	started := time.Now()

	reply, err := c.client.Chat(ctx, c.endpoint, c.model, turns)
	if err != nil {
		return nil, err
	}

	c.history = append(c.history, llm.AssistantTurn(reply.Text()))
	c.pending = false

	c.observe(ctx, llm.Exchange{
		Model:     c.model,
		Endpoint:  c.endpoint,
		Sent:      slices.Clone(turns),
		Reply:     c.history[len(c.history)-1],
		StartedAt: started,
		Duration:  time.Since(started),
	})

	return reply, nil
}

// observe hands a completed exchange to the recorder and publisher. Their
// failures are logged and never change the conversation or the reply.
func (c *Conversation) observe(ctx context.Context, ex llm.Exchange) {
	if c.recorder != nil {
		_, err := c.recorder.Sync(ctx, &storage.Conversation{
			ID:        c.id,
			Model:     c.model,
			Endpoint:  c.endpoint,
			CreatedAt: c.createdAt,
			Turns:     c.history,
		})
		if err != nil {
			c.logger.Warn("failed to archive conversation",
				"conversation_id", c.id,
				"error", err,
			)
		}
	}

	if c.publisher != nil {
		event := eventstream.NewTurnEvent(c.id, len(c.history)-1, ex)
		if err := c.publisher.PublishTurn(ctx, event); err != nil {
			c.logger.Warn("failed to publish turn event",
				"conversation_id", c.id,
				"event_id", event.EventID,
				"error", err,
			)
		}
	}
}
