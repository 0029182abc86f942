// Package guard screens raw user text before it reaches a language model.
package guard

import (
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/abxba0/fluentchat/internal/logging"
)

// Messages shown to the user.
const (
	MsgEmpty    = "Input cannot be empty."
	MsgRejected = "Your message contains content that cannot be processed. Please rephrase your request in a safe and appropriate manner."

	promptHelp     = "I'd be happy to help! Could you tell me specifically what you need assistance with?"
	promptShort    = "Could you provide more details about what you're looking for?"
	promptHow      = "Could you be more specific about what process or topic you'd like to learn about?"
	promptWhat     = "Could you provide more context about what specific information you're seeking?"
	promptFallback = "Could you elaborate on your question or provide more context so I can give you a better response?"
)

// ValidationResult is the verdict for one input line.
type ValidationResult struct {
	Accepted            bool
	ErrorMessage        string
	NeedsClarification  bool
	ClarificationPrompt string
}

// Guard validates and sanitizes user input against a Policy.
// It holds no mutable state and is safe for concurrent use.
type Guard struct {
	policy Policy
}

// New creates a Guard for the given policy.
func New(policy Policy) *Guard {
	return &Guard{policy: policy}
}

// Policy returns the tables the guard was built from.
func (g *Guard) Policy() Policy {
	return g.policy
}

// TooLongMessage is the rejection shown for input over MaxInputLength.
func (g *Guard) TooLongMessage() string {
	return fmt.Sprintf("Input is too long. Please keep messages under %d characters.", g.policy.MaxInputLength)
}

// ValidateInput checks a raw line and reports whether it may be sent.
func (g *Guard) ValidateInput(input string) ValidationResult {
	if strings.TrimSpace(input) == "" {
		return ValidationResult{ErrorMessage: MsgEmpty}
	}

	if utf8.RuneCountInString(input) > g.policy.MaxInputLength {
		return ValidationResult{ErrorMessage: g.TooLongMessage()}
	}

	if reason, risky := g.riskReason(input); risky {
		logging.Debug().Str("reason", reason).Msg("Input rejected")
		return ValidationResult{ErrorMessage: MsgRejected}
	}

	if g.isVague(input) {
		return ValidationResult{
			Accepted:            true,
			NeedsClarification:  true,
			ClarificationPrompt: g.GetClarificationPrompt(input),
		}
	}

	return ValidationResult{Accepted: true}
}

// ContainsRiskyContent reports whether input contains a risky keyword,
// too much profanity, or a prompt-injection phrase.
func (g *Guard) ContainsRiskyContent(input string) bool {
	_, risky := g.riskReason(input)
	return risky
}

func (g *Guard) riskReason(input string) (string, bool) {
	lower := strings.ToLower(input)

	for _, kw := range g.policy.RiskyKeywords {
		if strings.Contains(lower, kw) {
			return "keyword:" + kw, true
		}
	}

	count := 0
	for _, word := range g.policy.ProfanityWords {
		if word != "" {
			count += strings.Count(lower, word)
		}
	}
	if count > g.policy.ProfanityThreshold {
		return fmt.Sprintf("profanity:%d", count), true
	}

	for _, phrase := range g.policy.InjectionPhrases {
		if strings.Contains(lower, phrase) {
			return "injection:" + phrase, true
		}
	}
	return "", false
}

func (g *Guard) isVague(input string) bool {
	if len(strings.Fields(input)) >= g.policy.VagueWordLimit {
		return false
	}
	lower := strings.ToLower(input)
	for _, phrase := range g.policy.VaguePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// SanitizeInput normalizes whitespace and strips script blocks,
// "javascript:" schemes and runs of special characters.
func (g *Guard) SanitizeInput(input string) string {
	s := collapseSpace(input)
	s = stripBlocksFold(s, "<script", "</script>")
	s = removeFold(s, "javascript:")
	s = removeRuns(s, g.policy.SpecialChars, g.policy.SpecialRunLength)
	return collapseSpace(s)
}

// GetClarificationPrompt picks the follow-up question for a vague input.
func (g *Guard) GetClarificationPrompt(input string) string {
	lower := strings.ToLower(input)
	words := len(strings.Fields(input))

	switch {
	case strings.Contains(lower, "help") && words < 3:
		return promptHelp
	case utf8.RuneCountInString(input) < 10:
		return promptShort
	case strings.Contains(lower, "how") && words < 4:
		return promptHow
	case strings.Contains(lower, "what") && words < 4:
		return promptWhat
	default:
		return promptFallback
	}
}

// Holder gives concurrent access to a Guard that may be replaced at runtime.
type Holder struct {
	mu    sync.RWMutex
	guard *Guard
}

// NewHolder creates a Holder for g.
func NewHolder(g *Guard) *Holder {
	return &Holder{guard: g}
}

// Get returns the current guard.
func (h *Holder) Get() *Guard {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.guard
}

// Set replaces the current guard.
func (h *Holder) Set(g *Guard) {
	h.mu.Lock()
	h.guard = g
	h.mu.Unlock()
}
