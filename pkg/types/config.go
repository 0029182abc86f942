package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the fluentchat configuration.
type Config struct {
	// Schema reference (for editor support)
	Schema string `json:"$schema,omitempty"`

	// Provider used when no failover pair is configured
	DefaultProvider string `json:"defaultProvider,omitempty"`

	// Primary/fallback provider selection
	Failover FailoverConfig `json:"failover"`

	// Chat session settings
	Chat ChatConfig `json:"chat"`

	// Provider configs keyed by provider ID ("openai", "anthropic", "ark")
	Provider map[string]ProviderConfig `json:"provider,omitempty"`
}

// FailoverConfig names the providers tried, in order, when a session starts.
type FailoverConfig struct {
	PrimaryProvider  string `json:"primaryProvider,omitempty"`
	FallbackProvider string `json:"fallbackProvider,omitempty"`
}

// ChatConfig holds settings for the interactive session.
type ChatConfig struct {
	ContextWindowTokens      int    `json:"contextWindowTokens,omitempty"`
	SystemPrompt             string `json:"systemPrompt,omitempty"`
	EnableSafetyFeatures     *bool  `json:"enableSafetyFeatures,omitempty"`
	EnableConversationMemory *bool  `json:"enableConversationMemory,omitempty"`

	// Optional YAML file overriding the input guard tables. Reloaded on change.
	SafetyPolicyFile string `json:"safetyPolicyFile,omitempty"`
}

// SafetyEnabled reports whether input validation is on (default true).
func (c ChatConfig) SafetyEnabled() bool {
	return c.EnableSafetyFeatures == nil || *c.EnableSafetyFeatures
}

// MemoryEnabled reports whether conversation memory is on (default true).
func (c ChatConfig) MemoryEnabled() bool {
	return c.EnableConversationMemory == nil || *c.EnableConversationMemory
}

// ProviderConfig holds configuration for a specific provider.
type ProviderConfig struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`

	// Model ID (endpoint ID for ARK)
	Model     string `json:"model,omitempty"`
	MaxTokens int    `json:"maxTokens,omitempty"`

	RequestTimeout Duration `json:"requestTimeout,omitempty"`

	// Rate limiting parameters, informational only
	PermitLimit     int `json:"permitLimit,omitempty"`
	WindowInSeconds int `json:"windowInSeconds,omitempty"`

	// Disable provider
	Disable bool `json:"disable,omitempty"`
}

// Duration is a time.Duration that reads either a Go duration string ("2m")
// or a number of milliseconds from JSON.
type Duration time.Duration

// MarshalJSON writes the duration as a Go duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		*d = Duration(time.Duration(val) * time.Millisecond)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", val, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration: %s", string(data))
	}
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Model represents an LLM model available from a provider.
type Model struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	ProviderID      string  `json:"providerID"`
	ContextLength   int     `json:"contextLength"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	InputPrice      float64 `json:"inputPrice,omitempty"`  // per 1M tokens
	OutputPrice     float64 `json:"outputPrice,omitempty"` // per 1M tokens
}
