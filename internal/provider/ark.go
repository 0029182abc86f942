package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/ark"

	"github.com/abxba0/fluentchat/pkg/types"
)

// NewArkProvider creates a provider for a Volcengine ARK endpoint.
func NewArkProvider(ctx context.Context, cfg types.ProviderConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ARK_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ARK_API_KEY not set")
	}

	// Model is the endpoint ID on the ARK platform.
	if cfg.Model == "" {
		cfg.Model = os.Getenv("ARK_MODEL_ID")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("ARK_MODEL_ID not set")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("ARK_BASE_URL")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	maxTokens := cfg.MaxTokens
	modelCfg := &ark.ChatModelConfig{
		APIKey:    cfg.APIKey,
		Model:     cfg.Model,
		MaxTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return NewChatProvider("ark", "ARK", chatModel, cfg, arkModels(cfg.Model)), nil
}

func arkModels(endpointID string) []types.Model {
	return []types.Model{
		{
			ID:              endpointID,
			Name:            "ARK Endpoint",
			ProviderID:      "ark",
			ContextLength:   128000,
			MaxOutputTokens: 4096,
		},
	}
}
