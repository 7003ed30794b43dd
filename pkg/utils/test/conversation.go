package testutils

import (
	"fmt"
	"time"

	"github.com/papercomputeco/chatzilla/pkg/llm"
	"github.com/papercomputeco/chatzilla/pkg/storage"
)

// NewTestTurns returns n alternating user/assistant turns.
func NewTestTurns(n int) []llm.Turn {
	turns := make([]llm.Turn, 0, n)
	for i := range n {
		if i%2 == 0 {
			turns = append(turns, llm.UserTurn(fmt.Sprintf("question %d", i/2)))
		} else {
			turns = append(turns, llm.AssistantTurn(fmt.Sprintf("answer %d", i/2)))
		}
	}
	return turns
}

// NewTestConversation creates an archived conversation holding n turns.
func NewTestConversation(id string, n int) *storage.Conversation {
	return &storage.Conversation{
		ID:        id,
		Model:     "test-model",
		Endpoint:  "http://localhost:11434/api/chat",
		CreatedAt: time.Date(2025, 5, 18, 14, 26, 12, 0, time.UTC),
		Turns:     NewTestTurns(n),
	}
}
