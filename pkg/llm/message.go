// Package llm holds the provider-agnostic conversation types shared by the
// chatzilla client, persistence, and event stream packages.
package llm

import "fmt"

// Role identifies who authored a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Roles returns every role the chat endpoint accepts.
func Roles() []Role {
	return []Role{RoleUser, RoleAssistant, RoleSystem, RoleTool}
}

// Valid reports whether r is one of the accepted roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// ParseRole converts s into a Role, rejecting anything outside Roles().
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q (expected one of user, assistant, system, tool)", s)
	}
	return r, nil
}

// Turn is a single message in a conversation. Its identity is its index in
// the owning conversation.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewTurn creates a turn with the given role and content.
func NewTurn(role Role, content string) Turn {
	return Turn{Role: role, Content: content}
}

// UserTurn is shorthand for NewTurn(RoleUser, content).
func UserTurn(content string) Turn {
	return NewTurn(RoleUser, content)
}

// AssistantTurn is shorthand for NewTurn(RoleAssistant, content).
func AssistantTurn(content string) Turn {
	return NewTurn(RoleAssistant, content)
}
