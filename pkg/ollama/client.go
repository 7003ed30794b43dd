// Package ollama is a blocking client for a local Ollama-style inference
// server: one-shot prompts, multi-turn conversations, and a liveness probe.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/logger"
)

const (
	// DefaultBaseURL is the default Ollama server URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the model a Conversation uses unless WithModel is given.
	DefaultModel = "llama3.1"

	// GeneratePath is the non-chat completion API path.
	GeneratePath = "/api/generate"

	// ChatPath is the chat API path.
	ChatPath = "/api/chat"

	// DefaultPingTimeout bounds the liveness probe. Prompt and chat calls have
	// no timeout of their own.
	DefaultPingTimeout = 5 * time.Second
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client issues requests against an inference server. It holds no
// conversation state and may be shared by several Conversations.
type Client struct {
	httpClient  HTTPDoer
	logger      *slog.Logger
	pingTimeout time.Duration
}

// Option configures a Client created with NewClient.
type Option func(*Client)

// WithHTTPClient overrides the HTTP transport. Defaults to an *http.Client
// with no timeout.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithLogger sets the logger used for request and probe diagnostics.
// Defaults to logger.Nop().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithPingTimeout overrides DefaultPingTimeout.
func WithPingTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.pingTimeout = d
	}
}

// NewClient creates a Client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		logger:      logger.Nop(),
		pingTimeout: DefaultPingTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint joins a base URL and an API path.
func Endpoint(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + path
}

// Prompt sends a single prompt with no history to the non-chat completion
// endpoint. Reply.Text is the response's "response" field and Reply.Raw is
// the whole payload.
func (c *Client) Prompt(ctx context.Context, text, model, endpoint string) (*llm.Reply, error) {
	c.logger.Debug("sending prompt request",
		"endpoint", endpoint,
		"model", model,
		"prompt_len", len(text),
	)

	raw, err := c.post(ctx, endpoint, generateRequest{
		Model:  model,
		Prompt: text,
		Stream: false,
	})
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Response == nil {
		return nil, fmt.Errorf("%w: response", ErrMissingField)
	}

	return llm.NewReply(*resp.Response, raw), nil
}

// Chat sends turns to the chat endpoint and returns the assistant reply.
// Reply.Text is the response's "message.content" field.
func (c *Client) Chat(ctx context.Context, endpoint, model string, turns []llm.Turn) (*llm.Reply, error) {
	c.logger.Debug("sending chat request",
		"endpoint", endpoint,
		"model", model,
		"message_count", len(turns),
	)

	raw, err := c.post(ctx, endpoint, chatRequest{
		Model:    model,
		Messages: turns,
		Stream:   false,
	})
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if resp.Message == nil {
		return nil, fmt.Errorf("%w: message", ErrMissingField)
	}
	if resp.Message.Content == nil {
		return nil, fmt.Errorf("%w: message.content", ErrMissingField)
	}

	return llm.NewReply(*resp.Message.Content, raw), nil
}

// post marshals body, POSTs it as JSON and returns the raw response body.
func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return raw, nil
}

// Prompt sends a single prompt using a default Client.
func Prompt(ctx context.Context, text, model, endpoint string) (*llm.Reply, error) {
	return NewClient().Prompt(ctx, text, model, endpoint)
}
