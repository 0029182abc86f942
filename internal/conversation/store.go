// Package conversation holds the message history of a chat session and
// decides which part of it fits into a model's context budget.
package conversation

import (
	"fmt"
	"unicode/utf8"

	"github.com/abxba0/fluentchat/pkg/types"
)

// Limits controls token estimation and summarization.
type Limits struct {
	// CharsPerToken is the heuristic used to estimate tokens from characters.
	CharsPerToken int

	// NearLimitRatio is the fraction of the context budget that counts as "near".
	NearLimitRatio float64

	// ReplyReserveTokens is kept free in every window for the model's answer.
	ReplyReserveTokens int

	// SummaryTopicCount is how many user messages are quoted in a summary.
	SummaryTopicCount int

	// SummaryTruncateChars is the maximum length of a quoted user message.
	SummaryTruncateChars int
}

// DefaultLimits returns the default limits.
var DefaultLimits = Limits{
	CharsPerToken:        4,
	NearLimitRatio:       0.8,
	ReplyReserveTokens:   500,
	SummaryTopicCount:    3,
	SummaryTruncateChars: 50,
}

// SummaryHook is called after older messages were folded into a summary.
type SummaryHook func(summary types.Summary, evicted int)

// Option configures a Store.
type Option func(*Store)

// WithLimits overrides the default limits. Zero or negative fields keep
// their DefaultLimits value.
func WithLimits(l Limits) Option {
	return func(s *Store) { s.limits = l }
}

// WithSummaryHook registers a callback for summarization events.
func WithSummaryHook(fn SummaryHook) Option {
	return func(s *Store) { s.onSummary = fn }
}

// Store owns the ordered message history and the summaries of evicted turns.
// A Store belongs to exactly one session and is not safe for concurrent use.
type Store struct {
	messages  []types.Message
	summaries []types.Summary
	nextPos   int
	limits    Limits
	onSummary SummaryHook
}

// NewStore creates an empty conversation.
func NewStore(opts ...Option) *Store {
	s := &Store{limits: DefaultLimits}
	for _, opt := range opts {
		opt(s)
	}
	s.limits = s.limits.withDefaults()
	return s
}

func (l Limits) withDefaults() Limits {
	if l.CharsPerToken <= 0 {
		l.CharsPerToken = DefaultLimits.CharsPerToken
	}
	if l.NearLimitRatio <= 0 {
		l.NearLimitRatio = DefaultLimits.NearLimitRatio
	}
	if l.ReplyReserveTokens <= 0 {
		l.ReplyReserveTokens = DefaultLimits.ReplyReserveTokens
	}
	if l.SummaryTopicCount <= 0 {
		l.SummaryTopicCount = DefaultLimits.SummaryTopicCount
	}
	if l.SummaryTruncateChars <= 0 {
		l.SummaryTruncateChars = DefaultLimits.SummaryTruncateChars
	}
	return l
}

// AddMessage appends a message. No validation is performed.
func (s *Store) AddMessage(role types.Role, content string) {
	s.messages = append(s.messages, types.Message{
		Role:     role,
		Content:  content,
		Position: s.nextPos,
	})
	s.nextPos++
}

// GetMessages returns a copy of the raw history in insertion order.
// Summaries are not included.
func (s *Store) GetMessages() []types.Message {
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Summaries returns a copy of the summaries, oldest first.
func (s *Store) Summaries() []types.Summary {
	out := make([]types.Summary, len(s.summaries))
	copy(out, s.summaries)
	return out
}

// RemoveLastUserMessage removes the most recent user message, if any.
// It reports whether a message was removed.
func (s *Store) RemoveLastUserMessage() bool {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == types.RoleUser {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return true
		}
	}
	return false
}

// ClearConversation drops all messages and summaries.
func (s *Store) ClearConversation() {
	s.messages = nil
	s.summaries = nil
	s.nextPos = 0
}

// EstimateTokenCount estimates the tokens used by the raw history.
// Summarized text is not counted.
func (s *Store) EstimateTokenCount() int {
	total := 0
	for _, m := range s.messages {
		total += m.Chars()
	}
	return total / s.limits.CharsPerToken
}

// IsNearTokenLimit reports whether the raw history uses more than the
// near-limit share of maxTokens.
func (s *Store) IsNearTokenLimit(maxTokens int) bool {
	return float64(s.EstimateTokenCount()) > float64(maxTokens)*s.limits.NearLimitRatio
}

// GetWindow returns the messages to send for a context budget of maxTokens:
// one system message per summary followed by the most recent messages that fit.
// When an older message does not fit, everything before it is summarized and
// removed from the history.
func (s *Store) GetWindow(maxTokens int) []types.Message {
	window := make([]types.Message, 0, len(s.summaries)+len(s.messages))
	summaryTokens := 0
	for _, sum := range s.summaries {
		window = append(window, types.Message{
			Role:    types.RoleSystem,
			Content: fmt.Sprintf("Previous conversation summary: %s", sum.Text),
		})
		summaryTokens += s.tokens(sum.Text)
	}

	return append(window, s.recentThatFit(maxTokens-summaryTokens-s.limits.ReplyReserveTokens)...)
}

// recentThatFit collects messages newest first while they fit into available
// tokens and returns them oldest first.
func (s *Store) recentThatFit(available int) []types.Message {
	start := len(s.messages)
	used := 0
	for i := len(s.messages) - 1; i >= 0; i-- {
		cost := s.tokens(s.messages[i].Content)
		if used+cost > available {
			if i > 0 {
				// The collected tail starts at i+1; shift it once the prefix is gone.
				start -= i
				s.summarizeBefore(i)
			}
			break
		}
		used += cost
		start = i
	}

	out := make([]types.Message, len(s.messages)-start)
	copy(out, s.messages[start:])
	return out
}

func (s *Store) tokens(text string) int {
	return utf8.RuneCountInString(text) / s.limits.CharsPerToken
}
