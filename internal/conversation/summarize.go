package conversation

import (
	"fmt"
	"strings"

	"github.com/abxba0/fluentchat/pkg/types"
)

// summarizeBefore folds messages[:end] into a new summary and drops them.
func (s *Store) summarizeBefore(end int) {
	if end <= 0 || end > len(s.messages) {
		return
	}

	evicted := s.messages[:end]
	summary := buildSummary(evicted, s.limits)
	s.summaries = append(s.summaries, summary)

	remaining := make([]types.Message, len(s.messages)-end)
	copy(remaining, s.messages[end:])
	s.messages = remaining

	if s.onSummary != nil {
		s.onSummary(summary, end)
	}
}

// buildSummary creates a deterministic digest of the given messages.
func buildSummary(messages []types.Message, limits Limits) types.Summary {
	var topics []string
	userCount := 0
	hasAssistant := false
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			if userCount < limits.SummaryTopicCount {
				topics = append(topics, truncate(m.Content, limits.SummaryTruncateChars))
			}
			userCount++
		case types.RoleAssistant:
			hasAssistant = true
		case types.RoleSystem:
		}
	}

	var b strings.Builder
	b.WriteString("User discussed: ")
	b.WriteString(strings.Join(topics, ", "))
	if extra := userCount - limits.SummaryTopicCount; extra > 0 {
		fmt.Fprintf(&b, " and %d other topics", extra)
	}
	if hasAssistant {
		b.WriteString(". Assistant provided guidance on these topics.")
	}

	text := b.String()
	return types.Summary{
		Text:              text,
		ApproximateTokens: len([]rune(text)) / limits.CharsPerToken,
	}
}

// truncate shortens s to max characters, marking the cut with "...".
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
