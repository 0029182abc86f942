package event

import "time"

// EventType represents the type of event.
type EventType string

const (
	SessionStarted         EventType = "session.started"
	SessionEnded           EventType = "session.ended"
	MessageAdded           EventType = "message.added"
	MessageRemoved         EventType = "message.removed"
	ConversationCleared    EventType = "conversation.cleared"
	ConversationSummarized EventType = "conversation.summarized"
	CommandExecuted        EventType = "command.executed"
	InputRejected          EventType = "input.rejected"
	ClarificationRequested EventType = "input.clarification"
	CompletionReceived     EventType = "completion.received"
	CompletionFailed       EventType = "completion.failed"
	PolicyReloaded         EventType = "policy.reloaded"
)

// SessionStartedData is the data for session.started events.
type SessionStartedData struct {
	SessionID string `json:"sessionID"`
	Provider  string `json:"provider"`
	Model     string `json:"model"`
}

// SessionEndedData is the data for session.ended events.
type SessionEndedData struct {
	SessionID string `json:"sessionID"`
	Turns     int    `json:"turns"`
}

// MessageAddedData is the data for message.added events.
type MessageAddedData struct {
	SessionID string `json:"sessionID"`
	Role      string `json:"role"`
	Position  int    `json:"position"`
	Chars     int    `json:"chars"`
}

// MessageRemovedData is the data for message.removed events.
type MessageRemovedData struct {
	SessionID string `json:"sessionID"`
}

// ConversationClearedData is the data for conversation.cleared events.
type ConversationClearedData struct {
	SessionID string `json:"sessionID"`
}

// ConversationSummarizedData is the data for conversation.summarized events.
type ConversationSummarizedData struct {
	SessionID     string `json:"sessionID"`
	Evicted       int    `json:"evicted"`
	SummaryTokens int    `json:"summaryTokens"`
}

// CommandExecutedData is the data for command.executed events.
type CommandExecutedData struct {
	SessionID string `json:"sessionID"`
	Command   string `json:"command"`
}

// InputRejectedData is the data for input.rejected events.
// The rejected text is never included.
type InputRejectedData struct {
	SessionID string `json:"sessionID"`
	Message   string `json:"message"`
}

// ClarificationRequestedData is the data for input.clarification events.
type ClarificationRequestedData struct {
	SessionID string `json:"sessionID"`
	Prompt    string `json:"prompt"`
}

// CompletionReceivedData is the data for completion.received events.
type CompletionReceivedData struct {
	SessionID    string        `json:"sessionID"`
	Provider     string        `json:"provider"`
	Model        string        `json:"model"`
	FinishReason string        `json:"finishReason,omitempty"`
	InputTokens  int           `json:"inputTokens"`
	OutputTokens int           `json:"outputTokens"`
	Duration     time.Duration `json:"duration"`
}

// CompletionFailedData is the data for completion.failed events.
type CompletionFailedData struct {
	SessionID string `json:"sessionID"`
	Provider  string `json:"provider"`
	Error     string `json:"error"`
}

// PolicyReloadedData is the data for policy.reloaded events.
type PolicyReloadedData struct {
	Path  string `json:"path"`
	Error string `json:"error,omitempty"`
}
