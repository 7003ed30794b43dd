package ollama

import (
	"github.com/papercomputeco/chatzilla/pkg/llm"
)

// generateRequest is the body of a non-chat completion call.
type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// generateResponse decodes only the field Prompt consumes. Timings, counts
// and the rest of the payload are opaque and travel in llm.Reply.Raw.
type generateResponse struct {
	Response *string `json:"response"`
}

// chatRequest is the body of a chat call. Messages carries the turns exactly
// as they are held in the conversation history.
type chatRequest struct {
	Model    string     `json:"model"`
	Messages []llm.Turn `json:"messages"`
	Stream   bool       `json:"stream"`
}

type chatMessage struct {
	Content *string `json:"content"`
}

// chatResponse decodes only message.content.
type chatResponse struct {
	Message *chatMessage `json:"message"`
}
