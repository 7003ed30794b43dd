package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papercomputeco/chatzilla/pkg/llm"
)

const (
	sessionFile = "session.json"
)

// SessionState is the chat conversation persisted between CLI runs.
type SessionState struct {
	// ConversationID keeps archive rows and published events of a resumed
	// session attached to the same conversation.
	ConversationID string `json:"conversation_id"`

	Model    string `json:"model"`
	Endpoint string `json:"endpoint"`

	// Turns is the conversation history in chronological order.
	Turns []llm.Turn `json:"turns"`

	// Pending is set when the last turn was never answered.
	Pending bool `json:"pending,omitempty"`
}

// LoadSession loads the session state from a target .chatzilla/session.json.
// Returns nil, nil if no session has been saved.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadSession(overrideDir string) (*SessionState, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session state: %w", err)
	}

	state := &SessionState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parsing session state: %w", err)
	}

	return state, nil
}

// SaveSession persists the session state to a target .chatzilla/session.json.
func (m *Manager) SaveSession(state *SessionState, overrideDir string) error {
	if state == nil {
		return errors.New("cannot save nil session state")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing session state: %w", err)
	}

	return nil
}

// ClearSession removes the session state so the next chat starts fresh.
// Returns nil if there is nothing to clear.
func (m *Manager) ClearSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing session state: %w", err)
	}

	return nil
}
