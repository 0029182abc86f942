package types

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Role identifies the author of a message in a conversation.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the wire name of the role.
func (r Role) String() string { return string(r) }

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ParseRole parses a role name (case-insensitive).
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role: %q", s)
	}
	return r, nil
}

// Message is a single role-tagged entry in a conversation.
// Messages are immutable once created.
type Message struct {
	Role     Role   `json:"role"`
	Content  string `json:"content"`
	Position int    `json:"position"` // insertion order within the conversation
}

// Chars returns the content length in characters (code points).
func (m Message) Chars() int {
	return utf8.RuneCountInString(m.Content)
}

// Summary is a lossy digest of evicted conversation turns.
type Summary struct {
	Text              string `json:"text"`
	ApproximateTokens int    `json:"approximateTokens"`
}

// TokenUsage contains token usage statistics reported by a provider.
// Note: fields are always emitted, do not use omitempty.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Completion is the result of a single chat completion request.
type Completion struct {
	Content      string     `json:"content"`
	ModelID      string     `json:"modelID"`
	FinishReason string     `json:"finishReason,omitempty"`
	Usage        TokenUsage `json:"usage"`
}
