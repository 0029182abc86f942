package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abxba0/fluentchat/pkg/types"
)

// fakeChatModel is a scripted Eino BaseChatModel.
type fakeChatModel struct {
	mu        sync.Mutex
	reply     *schema.Message
	err       error
	failFirst int
	block     bool
	calls     int
	lastInput []*schema.Message
	lastOpts  *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.lastInput = input
	f.lastOpts = model.GetCommonOptions(&model.Options{}, opts...)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if calls <= f.failFirst {
		return nil, errors.New("service unavailable")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (f *fakeChatModel) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func okReply(content string) *schema.Message {
	return &schema.Message{
		Role:    schema.Assistant,
		Content: content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: "stop",
			Usage:        &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 7, TotalTokens: 19},
		},
	}
}

func newFakeProvider(id string, fake *fakeChatModel) *ChatProvider {
	return NewChatProvider(id, id, fake, types.ProviderConfig{Model: id + "-model", MaxTokens: 256}, nil)
}

func TestConvertToEinoMessages(t *testing.T) {
	msgs := []types.Message{
		{Role: types.RoleSystem, Content: "be brief"},
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleAssistant, Content: "hello"},
	}

	got := ConvertToEinoMessages(msgs)

	require.Len(t, got, 3)
	assert.Equal(t, schema.System, got[0].Role)
	assert.Equal(t, schema.User, got[1].Role)
	assert.Equal(t, schema.Assistant, got[2].Role)
	assert.Equal(t, "hello", got[2].Content)
}

func TestConvertFromEinoMessage(t *testing.T) {
	got := ConvertFromEinoMessage(okReply("answer"), "gpt-4o")

	assert.Equal(t, "answer", got.Content)
	assert.Equal(t, "gpt-4o", got.ModelID)
	assert.Equal(t, "stop", got.FinishReason)
	assert.Equal(t, types.TokenUsage{Input: 12, Output: 7}, got.Usage)

	bare := ConvertFromEinoMessage(&schema.Message{Content: "x"}, "m")
	assert.Empty(t, bare.FinishReason)
	assert.Zero(t, bare.Usage)
}

func TestChatProvider_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: okReply("Go is a language.")}
	p := newFakeProvider("fake", fake)

	req := &CompletionRequest{
		Messages: []types.Message{
			{Role: types.RoleSystem, Content: "prompt"},
			{Role: types.RoleUser, Content: "What is Go?"},
		},
		Temperature: 0.5,
	}
	got, err := p.Complete(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Go is a language.", got.Content)
	assert.Equal(t, "fake-model", got.ModelID)
	assert.Equal(t, 12, got.Usage.Input)

	require.Len(t, fake.lastInput, 2)
	assert.Equal(t, "What is Go?", fake.lastInput[1].Content)
	require.NotNil(t, fake.lastOpts.MaxTokens)
	assert.Equal(t, 256, *fake.lastOpts.MaxTokens, "max tokens defaults to the provider config")
	require.NotNil(t, fake.lastOpts.Temperature)
	assert.InDelta(t, 0.5, *fake.lastOpts.Temperature, 0.001)
	assert.Nil(t, fake.lastOpts.Model)
	assert.Zero(t, req.MaxTokens, "request is not modified")
}

func TestChatProvider_CompleteModelOverride(t *testing.T) {
	fake := &fakeChatModel{reply: okReply("ok")}
	p := newFakeProvider("fake", fake)

	got, err := p.Complete(context.Background(), &CompletionRequest{Model: "other", MaxTokens: 10})
	require.NoError(t, err)

	assert.Equal(t, "other", got.ModelID)
	require.NotNil(t, fake.lastOpts.Model)
	assert.Equal(t, "other", *fake.lastOpts.Model)
	assert.Equal(t, 10, *fake.lastOpts.MaxTokens)
}

func TestChatProvider_CompleteErrors(t *testing.T) {
	boom := errors.New("boom")
	p := newFakeProvider("fake", &fakeChatModel{err: boom})

	_, err := p.Complete(context.Background(), &CompletionRequest{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "fake completion failed")

	p = newFakeProvider("nil", &fakeChatModel{})
	_, err = p.Complete(context.Background(), &CompletionRequest{})
	assert.ErrorContains(t, err, "empty response")
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(NewChatProvider("openai", "OpenAI", &fakeChatModel{}, types.ProviderConfig{}, openAIModels()))
	registry.Register(NewChatProvider("anthropic", "Anthropic", &fakeChatModel{}, types.ProviderConfig{}, anthropicModels()))

	p, err := registry.Get("OpenAI")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.ID())

	p, err = registry.Get("claude")
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.ID())

	_, err = registry.Get("google")
	assert.ErrorContains(t, err, "provider not found")

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "anthropic", list[0].ID())
	assert.Equal(t, "openai", list[1].ID())

	m, err := registry.GetModel("openai", "gpt-3.5-turbo")
	require.NoError(t, err)
	assert.Equal(t, "GPT-3.5 Turbo", m.Name)

	_, err = registry.GetModel("openai", "gpt-1")
	assert.Error(t, err)

	models := registry.AllModels()
	assert.Equal(t, "anthropic", models[0].ProviderID)
	assert.Len(t, models, len(openAIModels())+len(anthropicModels()))
}

func TestRegistry_Candidates(t *testing.T) {
	tests := []struct {
		name string
		cfg  *types.Config
		want []string
	}{
		{
			name: "failover pair",
			cfg:  &types.Config{Failover: types.FailoverConfig{PrimaryProvider: "OpenAI", FallbackProvider: "Claude"}},
			want: []string{"openai", "anthropic"},
		},
		{
			name: "same provider twice",
			cfg:  &types.Config{Failover: types.FailoverConfig{PrimaryProvider: "openai", FallbackProvider: "OPENAI"}},
			want: []string{"openai"},
		},
		{
			name: "default provider only",
			cfg:  &types.Config{DefaultProvider: "ark"},
			want: []string{"ark"},
		},
		{
			name: "nothing configured",
			cfg:  &types.Config{},
			want: []string{"openai"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry(tt.cfg)
			registry.Register(newFakeProvider("openai", &fakeChatModel{}))
			assert.Equal(t, tt.want, registry.Candidates())
		})
	}
}

func TestParseModelString(t *testing.T) {
	p, m := ParseModelString("Anthropic/claude-3-5-haiku-20241022")
	assert.Equal(t, "anthropic", p)
	assert.Equal(t, "claude-3-5-haiku-20241022", m)

	p, m = ParseModelString("gpt-4o")
	assert.Empty(t, p)
	assert.Equal(t, "gpt-4o", m)
}

func TestInitializeProviders(t *testing.T) {
	t.Setenv("ARK_MODEL_ID", "")

	t.Run("no credentials", func(t *testing.T) {
		registry, err := InitializeProviders(context.Background(), &types.Config{
			Provider: map[string]types.ProviderConfig{"openai": {}},
		})
		assert.ErrorIs(t, err, ErrNoProviders)
		assert.Empty(t, registry.List())
	})

	t.Run("builds configured providers", func(t *testing.T) {
		registry, err := InitializeProviders(context.Background(), &types.Config{
			Provider: map[string]types.ProviderConfig{
				"OpenAI":    {APIKey: "sk-test"},
				"anthropic": {APIKey: "sk-ant-test", Disable: true},
				"ark":       {APIKey: "ark-test"},
				"google":    {APIKey: "g-test"},
			},
		})
		require.NoError(t, err)

		list := registry.List()
		require.Len(t, list, 1, "anthropic is disabled, ark lacks an endpoint, google is unknown")
		assert.Equal(t, "openai", list[0].ID())
		assert.Equal(t, DefaultOpenAIModel, list[0].DefaultModel())
		assert.Equal(t, 4000, list[0].Config().MaxTokens)
	})
}

func fastSelect() SelectOptions {
	return SelectOptions{MaxRetries: 2, InitialInterval: time.Millisecond, MaxElapsedTime: time.Second}
}

func TestSelect_FallsBack(t *testing.T) {
	primary := &fakeChatModel{err: errors.New("invalid api key")}
	fallback := &fakeChatModel{reply: okReply("hi"), failFirst: 1}
	registry := NewRegistry(nil)
	registry.Register(newFakeProvider("openai", primary))
	registry.Register(newFakeProvider("anthropic", fallback))

	type attempt struct {
		id  string
		err error
	}
	var attempts []attempt
	opts := fastSelect()
	opts.OnAttempt = func(id string, err error) { attempts = append(attempts, attempt{id, err}) }

	p, err := Select(context.Background(), registry, []string{"openai", "anthropic"}, opts)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", p.ID())
	assert.Equal(t, 3, primary.callCount(), "one probe plus two retries")
	assert.Equal(t, 2, fallback.callCount())
	require.Len(t, attempts, 2)
	assert.Error(t, attempts[0].err)
	assert.NoError(t, attempts[1].err)

	require.Len(t, primary.lastInput, 1)
	assert.Equal(t, ProbePrompt, primary.lastInput[0].Content)
}

func TestSelect_AllFail(t *testing.T) {
	registry := NewRegistry(nil)
	registry.Register(newFakeProvider("openai", &fakeChatModel{err: errors.New("quota exceeded")}))

	_, err := Select(context.Background(), registry, []string{"openai", "anthropic"}, fastSelect())

	assert.ErrorIs(t, err, ErrNoProviders)
	assert.ErrorContains(t, err, "openai: openai completion failed: quota exceeded")
	assert.ErrorContains(t, err, "anthropic: provider not found")
}

func TestSelect_NoCandidates(t *testing.T) {
	_, err := Select(context.Background(), NewRegistry(nil), nil, fastSelect())
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSelect_RequestTimeout(t *testing.T) {
	fake := &fakeChatModel{block: true}
	registry := NewRegistry(nil)
	registry.Register(NewChatProvider("slow", "Slow", fake,
		types.ProviderConfig{RequestTimeout: types.Duration(10 * time.Millisecond)}, nil))

	opts := fastSelect()
	opts.MaxRetries = 0
	_, err := Select(context.Background(), registry, []string{"slow"}, opts)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, fake.callCount())
}

func TestKnownModels(t *testing.T) {
	openai := KnownModels("openai", types.ProviderConfig{})
	require.NotEmpty(t, openai)
	assert.Equal(t, DefaultOpenAIModel, openai[0].ID)

	claude := KnownModels("claude", types.ProviderConfig{})
	require.NotEmpty(t, claude)
	for _, m := range claude {
		assert.Equal(t, "anthropic", m.ProviderID)
	}

	assert.Empty(t, KnownModels("ark", types.ProviderConfig{}))
	ark := KnownModels("ark", types.ProviderConfig{Model: "ep-123"})
	require.Len(t, ark, 1)
	assert.Equal(t, "ep-123", ark[0].ID)

	assert.Nil(t, KnownModels("unknown", types.ProviderConfig{}))
}
