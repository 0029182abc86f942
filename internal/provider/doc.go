// Package provider provides chat completion providers built on the Eino framework.
//
// Every provider wraps an Eino BaseChatModel and answers one request at a
// time with a complete reply (no streaming, no tools). Supported backends:
//
//   - OpenAI, and OpenAI compatible endpoints through BaseURL
//   - Anthropic Claude
//   - Volcengine ARK, where the model is an endpoint ID
//
// # Registry and selection
//
// InitializeProviders builds every provider that has credentials in the
// configuration. Select then probes the failover candidates in order with a
// short "Hello" request, retrying each with exponential backoff, and returns
// the first provider that answers:
//
//	registry, err := provider.InitializeProviders(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	p, err := provider.Select(ctx, registry, registry.Candidates(), provider.DefaultSelectOptions())
//
// # Environment
//
//	OPENAI_API_KEY      OpenAI API key
//	ANTHROPIC_API_KEY   Anthropic API key
//	ARK_API_KEY         ARK API key
//	ARK_MODEL_ID        ARK endpoint ID
//	ARK_BASE_URL        ARK base URL (optional)
package provider
