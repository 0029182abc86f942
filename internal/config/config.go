package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/pkg/types"
)

// DefaultSystemPrompt seeds every new conversation.
const DefaultSystemPrompt = "You are a helpful, professional AI assistant. Provide clear, concise, and accurate responses. Ask for clarification when needed."

var (
	envPattern  = regexp.MustCompile(`\{env:([^}]+)\}`)
	filePattern = regexp.MustCompile(`\{file:([^}]+)\}`)
)

// Default returns the built-in configuration.
func Default() *types.Config {
	return &types.Config{
		DefaultProvider: "openai",
		Failover: types.FailoverConfig{
			PrimaryProvider:  "openai",
			FallbackProvider: "anthropic",
		},
		Chat: types.ChatConfig{
			ContextWindowTokens: 4000,
			SystemPrompt:        DefaultSystemPrompt,
		},
		Provider: map[string]types.ProviderConfig{
			"openai":    providerDefaults("openai"),
			"anthropic": providerDefaults("anthropic"),
		},
	}
}

// providerDefaults returns the rate and size settings for a provider.
func providerDefaults(id string) types.ProviderConfig {
	cfg := types.ProviderConfig{
		MaxTokens:       1500,
		RequestTimeout:  types.Duration(2 * time.Minute),
		PermitLimit:     100,
		WindowInSeconds: 60,
	}
	switch id {
	case "openai":
		cfg.Model = "gpt-3.5-turbo"
		cfg.MaxTokens = 4000
	case "anthropic":
		cfg.Model = "claude-3-5-haiku-20241022"
		cfg.MaxTokens = 8000
		cfg.PermitLimit = 50
	case "ark":
		cfg.MaxTokens = 4096
	}
	return cfg
}

// Load loads configuration from multiple sources (priority order):
// 1. Built-in defaults
// 2. Global config ($XDG_CONFIG_HOME/fluentchat/)
// 3. Project config (fluentchat.json[c] and .fluentchat/)
// 4. FLUENTCHAT_CONFIG file
// 5. FLUENTCHAT_CONFIG_CONTENT inline JSON
// 6. Environment variables
//
// Missing files are skipped; malformed files are reported.
func Load(directory string) (*types.Config, error) {
	config := Default()

	loaded := make(map[string]bool)
	loadOnce := func(path string, baseDir string) error {
		absPath, err := filepath.Abs(path)
		if err != nil || loaded[absPath] {
			return nil
		}
		if err := loadConfigFile(path, config, baseDir); err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		loaded[absPath] = true
		logging.Debug().Str("path", absPath).Msg("Loaded config file")
		return nil
	}

	var sources [][2]string

	globalPath := GetPaths().Config
	sources = append(sources,
		[2]string{filepath.Join(globalPath, "fluentchat.json"), globalPath},
		[2]string{filepath.Join(globalPath, "fluentchat.jsonc"), globalPath},
	)

	if directory != "" {
		projectConfigDir := filepath.Join(directory, ".fluentchat")
		sources = append(sources,
			[2]string{filepath.Join(directory, "fluentchat.json"), directory},
			[2]string{filepath.Join(directory, "fluentchat.jsonc"), directory},
			[2]string{filepath.Join(projectConfigDir, "fluentchat.json"), projectConfigDir},
			[2]string{filepath.Join(projectConfigDir, "fluentchat.jsonc"), projectConfigDir},
		)
	}

	if configPath := os.Getenv("FLUENTCHAT_CONFIG"); configPath != "" {
		sources = append(sources, [2]string{configPath, filepath.Dir(configPath)})
	}

	for _, src := range sources {
		if err := loadOnce(src[0], src[1]); err != nil {
			return nil, err
		}
	}

	if content := os.Getenv("FLUENTCHAT_CONFIG_CONTENT"); content != "" {
		var inline types.Config
		if err := json.Unmarshal(jsonc.ToJSON([]byte(content)), &inline); err != nil {
			return nil, fmt.Errorf("invalid FLUENTCHAT_CONFIG_CONTENT: %w", err)
		}
		mergeConfig(config, &inline)
	}

	applyEnvOverrides(config)
	normalizeProviders(config)

	if err := Validate(config); err != nil {
		return nil, err
	}
	return config, nil
}

// loadConfigFile loads a single config file with interpolation support.
func loadConfigFile(path string, config *types.Config, baseDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	data = jsonc.ToJSON(data)
	data = interpolate(data, baseDir)

	var fileConfig types.Config
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return err
	}

	mergeConfig(config, &fileConfig)
	return nil
}

// interpolate processes {env:VAR} and {file:path} placeholders.
func interpolate(data []byte, baseDir string) []byte {
	str := envPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})

	str = filePattern.ReplaceAllStringFunc(str, func(match string) string {
		filePath := filePattern.FindStringSubmatch(match)[1]
		if strings.HasPrefix(filePath, "~/") {
			filePath = filepath.Join(os.Getenv("HOME"), filePath[2:])
		} else if !filepath.IsAbs(filePath) {
			filePath = filepath.Join(baseDir, filePath)
		}

		content, err := os.ReadFile(filePath)
		if err != nil {
			return match
		}

		// Escape for a JSON string; trailing newlines are dropped so key
		// files can end with one.
		quoted, _ := json.Marshal(strings.TrimRight(string(content), "\r\n"))
		return string(quoted[1 : len(quoted)-1])
	})

	return []byte(str)
}

// mergeConfig merges non-zero fields of source into target.
func mergeConfig(target, source *types.Config) {
	if source.Schema != "" {
		target.Schema = source.Schema
	}
	if source.DefaultProvider != "" {
		target.DefaultProvider = source.DefaultProvider
	}
	if source.Failover.PrimaryProvider != "" {
		target.Failover.PrimaryProvider = source.Failover.PrimaryProvider
	}
	if source.Failover.FallbackProvider != "" {
		target.Failover.FallbackProvider = source.Failover.FallbackProvider
	}

	chat := source.Chat
	if chat.ContextWindowTokens != 0 {
		target.Chat.ContextWindowTokens = chat.ContextWindowTokens
	}
	if chat.SystemPrompt != "" {
		target.Chat.SystemPrompt = chat.SystemPrompt
	}
	if chat.EnableSafetyFeatures != nil {
		target.Chat.EnableSafetyFeatures = chat.EnableSafetyFeatures
	}
	if chat.EnableConversationMemory != nil {
		target.Chat.EnableConversationMemory = chat.EnableConversationMemory
	}
	if chat.SafetyPolicyFile != "" {
		target.Chat.SafetyPolicyFile = chat.SafetyPolicyFile
	}

	if source.Provider != nil && target.Provider == nil {
		target.Provider = make(map[string]types.ProviderConfig)
	}
	for name, src := range source.Provider {
		id := strings.ToLower(name)
		target.Provider[id] = mergeProvider(target.Provider[id], src)
	}
}

func mergeProvider(target, source types.ProviderConfig) types.ProviderConfig {
	if source.APIKey != "" {
		target.APIKey = source.APIKey
	}
	if source.BaseURL != "" {
		target.BaseURL = source.BaseURL
	}
	if source.Model != "" {
		target.Model = source.Model
	}
	if source.MaxTokens != 0 {
		target.MaxTokens = source.MaxTokens
	}
	if source.RequestTimeout != 0 {
		target.RequestTimeout = source.RequestTimeout
	}
	if source.PermitLimit != 0 {
		target.PermitLimit = source.PermitLimit
	}
	if source.WindowInSeconds != 0 {
		target.WindowInSeconds = source.WindowInSeconds
	}
	if source.Disable {
		target.Disable = true
	}
	return target
}

// applyEnvOverrides applies environment variable overrides. API keys from
// the environment only fill providers that have none configured.
func applyEnvOverrides(config *types.Config) {
	providerEnvMap := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"ark":       "ARK_API_KEY",
	}

	for provider, envVar := range providerEnvMap {
		if apiKey := os.Getenv(envVar); apiKey != "" {
			p := config.Provider[provider]
			if p.APIKey == "" {
				p.APIKey = apiKey
				config.Provider[provider] = p
			}
		}
	}

	if modelID := os.Getenv("ARK_MODEL_ID"); modelID != "" {
		p := config.Provider["ark"]
		if p.Model == "" {
			p.Model = modelID
			config.Provider["ark"] = p
		}
	}

	if provider := os.Getenv("FLUENTCHAT_PROVIDER"); provider != "" {
		config.DefaultProvider = provider
		config.Failover.PrimaryProvider = provider
	}

	if window := os.Getenv("FLUENTCHAT_CONTEXT_WINDOW"); window != "" {
		n, err := strconv.Atoi(window)
		if err != nil {
			logging.Warn().Str("value", window).Msg("Ignoring invalid FLUENTCHAT_CONTEXT_WINDOW")
		} else {
			config.Chat.ContextWindowTokens = n
		}
	}
}

// normalizeProviders fills unset provider fields with their defaults.
func normalizeProviders(config *types.Config) {
	for name, p := range config.Provider {
		config.Provider[name] = mergeProvider(providerDefaults(name), p)
	}
}

// Validate checks the settings a session cannot run without.
func Validate(config *types.Config) error {
	if config.Chat.ContextWindowTokens <= 0 {
		return fmt.Errorf("chat.contextWindowTokens must be positive, got %d", config.Chat.ContextWindowTokens)
	}
	for name, p := range config.Provider {
		if p.MaxTokens < 0 {
			return fmt.Errorf("provider %s: maxTokens must not be negative", name)
		}
		if p.RequestTimeout < 0 {
			return fmt.Errorf("provider %s: requestTimeout must not be negative", name)
		}
	}
	return nil
}

// Save saves the configuration to a file.
func Save(config *types.Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Masked returns a copy of config with API keys shortened for display.
func Masked(config *types.Config) *types.Config {
	out := *config
	out.Provider = make(map[string]types.ProviderConfig, len(config.Provider))
	for name, p := range config.Provider {
		p.APIKey = MaskKey(p.APIKey)
		out.Provider[name] = p
	}
	return &out
}

// MaskKey keeps the first characters of a secret, at most ten.
func MaskKey(key string) string {
	if key == "" {
		return ""
	}
	n := min(len(key)/2, 10)
	return key[:n] + "..."
}
