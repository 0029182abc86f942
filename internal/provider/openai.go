package provider

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"github.com/abxba0/fluentchat/pkg/types"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-3.5-turbo"

// NewOpenAIProvider creates a provider for OpenAI or any OpenAI compatible
// endpoint (BaseURL).
func NewOpenAIProvider(ctx context.Context, cfg types.ProviderConfig) (*ChatProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}

	maxTokens := cfg.MaxTokens
	modelCfg := &openai.ChatModelConfig{
		APIKey:              cfg.APIKey,
		Model:               cfg.Model,
		MaxCompletionTokens: &maxTokens,
	}
	if cfg.BaseURL != "" {
		modelCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI model: %w", err)
	}

	p := NewChatProvider("openai", "OpenAI", chatModel, cfg, openAIModels())
	p.options = openAIOptions
	return p, nil
}

// Newer OpenAI models reject max_tokens and require max_completion_tokens.
func openAIOptions(req *CompletionRequest) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, openai.WithMaxCompletionTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	return opts
}

func openAIModels() []types.Model {
	return []types.Model{
		{
			ID:              "gpt-3.5-turbo",
			Name:            "GPT-3.5 Turbo",
			ProviderID:      "openai",
			ContextLength:   16385,
			MaxOutputTokens: 4096,
			InputPrice:      0.5,
			OutputPrice:     1.5,
		},
		{
			ID:              "gpt-4o",
			Name:            "GPT-4o",
			ProviderID:      "openai",
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			InputPrice:      2.5,
			OutputPrice:     10.0,
		},
		{
			ID:              "gpt-4o-mini",
			Name:            "GPT-4o Mini",
			ProviderID:      "openai",
			ContextLength:   128000,
			MaxOutputTokens: 16384,
			InputPrice:      0.15,
			OutputPrice:     0.6,
		},
		{
			ID:              "gpt-5-mini",
			Name:            "GPT-5 Mini",
			ProviderID:      "openai",
			ContextLength:   272000,
			MaxOutputTokens: 128000,
			InputPrice:      0.25,
			OutputPrice:     2.0,
		},
	}
}
