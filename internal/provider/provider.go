package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/pkg/types"
)

// ErrNoProviders is returned when no provider could be configured or reached.
var ErrNoProviders = errors.New("no providers available")

// Provider represents an LLM provider backed by an Eino ChatModel.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of known models.
	Models() []types.Model

	// DefaultModel returns the model used when a request names none.
	DefaultModel() string

	// Config returns the settings the provider was created with.
	Config() types.ProviderConfig

	// Complete sends the messages and waits for the full reply.
	Complete(ctx context.Context, req *CompletionRequest) (*types.Completion, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Model       string          `json:"model,omitempty"`
	Messages    []types.Message `json:"messages"`
	MaxTokens   int             `json:"maxTokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

// optionsFunc builds the provider specific call options for a request.
type optionsFunc func(req *CompletionRequest) []model.Option

// ChatProvider implements Provider over any Eino BaseChatModel.
type ChatProvider struct {
	id        string
	name      string
	chatModel model.BaseChatModel
	models    []types.Model
	modelID   string
	config    types.ProviderConfig
	options   optionsFunc
}

// NewChatProvider wraps an existing chat model. It is used for OpenAI
// compatible gateways and in tests.
func NewChatProvider(id, name string, cm model.BaseChatModel, cfg types.ProviderConfig, models []types.Model) *ChatProvider {
	return &ChatProvider{
		id:        id,
		name:      name,
		chatModel: cm,
		models:    models,
		modelID:   cfg.Model,
		config:    cfg,
		options:   commonOptions,
	}
}

// ID returns the provider identifier.
func (p *ChatProvider) ID() string { return p.id }

// Name returns the human-readable provider name.
func (p *ChatProvider) Name() string { return p.name }

// Models returns the list of known models.
func (p *ChatProvider) Models() []types.Model { return p.models }

// DefaultModel returns the configured model ID.
func (p *ChatProvider) DefaultModel() string { return p.modelID }

// Config returns the provider settings.
func (p *ChatProvider) Config() types.ProviderConfig { return p.config }

// Complete sends the request and converts the reply.
func (p *ChatProvider) Complete(ctx context.Context, req *CompletionRequest) (*types.Completion, error) {
	r := *req
	if r.MaxTokens == 0 {
		r.MaxTokens = p.config.MaxTokens
	}
	modelID := r.Model
	if modelID == "" {
		modelID = p.modelID
	}

	start := time.Now()
	msg, err := p.chatModel.Generate(ctx, ConvertToEinoMessages(r.Messages), p.options(&r)...)
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", p.id, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%s completion failed: empty response", p.id)
	}

	completion := ConvertFromEinoMessage(msg, modelID)
	logging.Debug().
		Str("provider", p.id).
		Str("model", completion.ModelID).
		Int("input", completion.Usage.Input).
		Int("output", completion.Usage.Output).
		Dur("elapsed", time.Since(start)).
		Msg("Completion received")
	return completion, nil
}

func commonOptions(req *CompletionRequest) []model.Option {
	var opts []model.Option
	if req.Model != "" {
		opts = append(opts, model.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(req.Temperature)))
	}
	return opts
}

// ConvertToEinoMessages converts conversation messages to Eino format.
func ConvertToEinoMessages(messages []types.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))
	for _, msg := range messages {
		role := schema.User
		switch msg.Role {
		case types.RoleSystem:
			role = schema.System
		case types.RoleAssistant:
			role = schema.Assistant
		case types.RoleUser:
		}
		result = append(result, &schema.Message{
			Role:    role,
			Content: msg.Content,
		})
	}
	return result
}

// ConvertFromEinoMessage converts an Eino reply to a Completion.
// modelID is used when the reply carries no model name.
func ConvertFromEinoMessage(msg *schema.Message, modelID string) *types.Completion {
	completion := &types.Completion{
		Content: msg.Content,
		ModelID: modelID,
	}
	if msg.ResponseMeta != nil {
		completion.FinishReason = msg.ResponseMeta.FinishReason
		if msg.ResponseMeta.Usage != nil {
			completion.Usage.Input = msg.ResponseMeta.Usage.PromptTokens
			completion.Usage.Output = msg.ResponseMeta.Usage.CompletionTokens
		}
	}
	if name, ok := msg.Extra["model"].(string); ok && name != "" {
		completion.ModelID = name
	}
	return completion
}
