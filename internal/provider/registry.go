package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/pkg/types"
)

// Registry manages all configured providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	config    *types.Config
}

// NewRegistry creates a new provider registry.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		config:    config,
	}
}

// Register adds a provider to the registry.
func (r *Registry) Register(provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[provider.ID()] = provider
}

// Get retrieves a provider by ID. IDs are case-insensitive.
func (r *Registry) Get(providerID string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	provider, ok := r.providers[NormalizeID(providerID)]
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", providerID)
	}
	return provider, nil
}

// List returns all providers sorted by ID.
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool {
		return providers[i].ID() < providers[j].ID()
	})
	return providers
}

// GetModel retrieves a specific model from a provider.
func (r *Registry) GetModel(providerID, modelID string) (*types.Model, error) {
	provider, err := r.Get(providerID)
	if err != nil {
		return nil, err
	}

	for _, model := range provider.Models() {
		if model.ID == modelID {
			return &model, nil
		}
	}

	return nil, fmt.Errorf("model not found: %s/%s", providerID, modelID)
}

// AllModels returns all models from all providers, grouped by provider.
func (r *Registry) AllModels() []types.Model {
	var models []types.Model
	for _, p := range r.List() {
		models = append(models, p.Models()...)
	}
	return models
}

// Candidates returns the provider IDs to try, in order: the failover
// primary and fallback, or the default provider when no failover is set.
// Duplicates are removed.
func (r *Registry) Candidates() []string {
	var ids []string
	seen := make(map[string]bool)
	add := func(id string) {
		id = NormalizeID(id)
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if r.config != nil {
		add(r.config.Failover.PrimaryProvider)
		add(r.config.Failover.FallbackProvider)
		if len(ids) == 0 {
			add(r.config.DefaultProvider)
		}
	}
	if len(ids) == 0 {
		for _, p := range r.List() {
			add(p.ID())
		}
	}
	return ids
}

// ParseModelString parses "provider/model" format.
func ParseModelString(s string) (providerID, modelID string) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) == 2 {
		return NormalizeID(parts[0]), parts[1]
	}
	return "", s
}

// NormalizeID maps a configured provider name to its registry ID.
func NormalizeID(id string) string {
	id = strings.ToLower(strings.TrimSpace(id))
	switch id {
	case "claude":
		return "anthropic"
	case "volcengine":
		return "ark"
	}
	return id
}

// KnownModels returns the built-in model list of a provider without
// creating it. ARK lists the configured endpoint, if any.
func KnownModels(providerID string, cfg types.ProviderConfig) []types.Model {
	switch NormalizeID(providerID) {
	case "openai":
		return openAIModels()
	case "anthropic":
		return anthropicModels()
	case "ark":
		if cfg.Model == "" {
			return nil
		}
		return arkModels(cfg.Model)
	}
	return nil
}

// constructor builds a provider from its config section.
type constructor func(ctx context.Context, cfg types.ProviderConfig) (*ChatProvider, error)

var constructors = map[string]constructor{
	"openai":    NewOpenAIProvider,
	"anthropic": NewAnthropicProvider,
	"ark":       NewArkProvider,
}

// InitializeProviders creates and registers every enabled provider that has
// credentials. Providers that fail to build are logged and skipped.
// ErrNoProviders is returned when none could be created.
func InitializeProviders(ctx context.Context, config *types.Config) (*Registry, error) {
	registry := NewRegistry(config)

	ids := make([]string, 0, len(config.Provider))
	for id := range config.Provider {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		cfg := config.Provider[id]
		normalized := NormalizeID(id)
		build, ok := constructors[normalized]
		if !ok {
			logging.Warn().Str("provider", id).Msg("Unknown provider in config")
			continue
		}
		if cfg.Disable || cfg.APIKey == "" {
			continue
		}

		p, err := build(ctx, cfg)
		if err != nil {
			logging.Warn().Err(err).Str("provider", normalized).Msg("Provider not available")
			continue
		}
		registry.Register(p)
	}

	if len(registry.List()) == 0 {
		return registry, ErrNoProviders
	}
	return registry, nil
}
