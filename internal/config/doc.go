// Package config provides configuration loading, merging, and path management
// for fluentchat.
//
// # Configuration Loading
//
// Load starts from the built-in defaults and merges, in priority order:
//
//  1. Global config ($XDG_CONFIG_HOME/fluentchat/fluentchat.json[c])
//  2. Project config (fluentchat.json[c] and .fluentchat/fluentchat.json[c])
//  3. FLUENTCHAT_CONFIG file
//  4. FLUENTCHAT_CONFIG_CONTENT inline JSON
//  5. Environment variables
//
// Files may contain comments (JSONC, processed with tidwall/jsonc). Only the
// fields a file sets override earlier sources; provider sections are merged
// field by field.
//
// # Variable Interpolation
//
//   - {env:VAR_NAME} expands to the environment variable
//   - {file:path} expands to the file contents, escaped for JSON; relative
//     paths are resolved against the config file directory, ~/ against HOME
//
// Example:
//
//	{
//	  // Try OpenAI first, then Claude.
//	  "failover": {"primaryProvider": "openai", "fallbackProvider": "anthropic"},
//	  "chat": {"contextWindowTokens": 4000, "safetyPolicyFile": "policy.yaml"},
//	  "provider": {
//	    "openai": {"apiKey": "{env:MY_OPENAI_KEY}", "requestTimeout": "90s"}
//	  }
//	}
//
// # Environment Variables
//
//	OPENAI_API_KEY, ANTHROPIC_API_KEY, ARK_API_KEY   provider keys (fill empty keys only)
//	ARK_MODEL_ID                                     ARK endpoint ID
//	FLUENTCHAT_PROVIDER                              default and primary provider
//	FLUENTCHAT_CONTEXT_WINDOW                        context window in tokens
//
// # Watching Files
//
// WatchFile reports changes to a single file, such as the safety policy,
// so it can be reloaded while a session runs.
package config
