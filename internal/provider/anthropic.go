package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/claude"

	"github.com/abxba0/fluentchat/pkg/types"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-3-5-haiku-20241022"

// NewAnthropicProvider creates a provider for Anthropic Claude models.
func NewAnthropicProvider(ctx context.Context, cfg types.ProviderConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultAnthropicModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8000
	}

	modelCfg := &claude.Config{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: cfg.MaxTokens,
	}
	if cfg.BaseURL != "" {
		baseURL := cfg.BaseURL
		modelCfg.BaseURL = &baseURL
	}

	chatModel, err := claude.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return NewChatProvider("anthropic", "Anthropic", chatModel, cfg, anthropicModels()), nil
}

func anthropicModels() []types.Model {
	return []types.Model{
		{
			ID:              "claude-3-5-haiku-20241022",
			Name:            "Claude 3.5 Haiku",
			ProviderID:      "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			InputPrice:      0.8,
			OutputPrice:     4.0,
		},
		{
			ID:              "claude-3-5-sonnet-20241022",
			Name:            "Claude 3.5 Sonnet",
			ProviderID:      "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			InputPrice:      3.0,
			OutputPrice:     15.0,
		},
		{
			ID:              "claude-sonnet-4-20250514",
			Name:            "Claude Sonnet 4",
			ProviderID:      "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 64000,
			InputPrice:      3.0,
			OutputPrice:     15.0,
		},
		{
			ID:              "claude-haiku-4-5",
			Name:            "Claude 4.5 Haiku",
			ProviderID:      "anthropic",
			ContextLength:   200000,
			MaxOutputTokens: 8192,
			InputPrice:      0.8,
			OutputPrice:     4.0,
		},
	}
}
