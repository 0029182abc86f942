package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/config"
	"github.com/abxba0/fluentchat/internal/provider"
	"github.com/abxba0/fluentchat/pkg/types"
)

// ProbePrompt is sent by the probe command.
const ProbePrompt = "Hello! Please introduce yourself briefly."

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Check the provider configuration with a single prompt",
		Long: `Print the provider configuration and send one prompt to the primary
provider, then to the fallback provider if the primary fails.`,
		RunE: runProbe,
	}
}

func runProbe(cmd *cobra.Command, args []string) error {
	_, appConfig, err := loadConfig()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printProviderConfig(out, appConfig)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	registry, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		fmt.Fprintf(out, "\nError occurred: %v\n", err)
		fmt.Fprintln(out, "\nSet OPENAI_API_KEY, ANTHROPIC_API_KEY or ARK_API_KEY and ARK_MODEL_ID,")
		fmt.Fprintln(out, "or add an apiKey to the provider section of fluentchat.json.")
		return err
	}

	primary := provider.NormalizeID(appConfig.Failover.PrimaryProvider)
	fallback := provider.NormalizeID(appConfig.Failover.FallbackProvider)
	if primary == "" {
		primary = provider.NormalizeID(appConfig.DefaultProvider)
	}

	if err := probeProvider(ctx, out, registry, primary, "Primary"); err == nil {
		return nil
	}
	if fallback == "" || fallback == primary {
		return fmt.Errorf("primary provider %s failed", primary)
	}

	fmt.Fprintf(out, "\nPrimary provider (%s) failed, trying fallback provider (%s)...\n", primary, fallback)
	return probeProvider(ctx, out, registry, fallback, "Fallback")
}

func printProviderConfig(w io.Writer, appConfig *types.Config) {
	fmt.Fprintln(w, "fluentchat provider check")
	fmt.Fprintln(w, strings.Repeat("=", 25))
	fmt.Fprintf(w, "Default Provider: %s\n", appConfig.DefaultProvider)
	fmt.Fprintf(w, "Primary Provider: %s\n", appConfig.Failover.PrimaryProvider)
	fmt.Fprintf(w, "Fallback Provider: %s\n", appConfig.Failover.FallbackProvider)

	pc := appConfig.Provider[provider.NormalizeID(appConfig.DefaultProvider)]
	fmt.Fprintln(w, "Provider Configuration:")
	fmt.Fprintf(w, "- Model: %s\n", pc.Model)
	fmt.Fprintf(w, "- Max Tokens: %d\n", pc.MaxTokens)
	fmt.Fprintf(w, "- Request Timeout: %s\n", pc.RequestTimeout.Std())
	fmt.Fprintf(w, "- Permit Limit: %d\n", pc.PermitLimit)
	fmt.Fprintf(w, "- Window In Seconds: %d\n", pc.WindowInSeconds)
	if pc.APIKey != "" {
		fmt.Fprintf(w, "Using API key: %s\n", config.MaskKey(pc.APIKey))
	}
}

func probeProvider(ctx context.Context, w io.Writer, registry *provider.Registry, id, label string) error {
	fmt.Fprintf(w, "\n=== Trying %s Provider: %s ===\n", label, id)

	p, err := registry.Get(id)
	if err != nil {
		fmt.Fprintf(w, "%s provider (%s) failed: %v\n", label, id, err)
		return err
	}

	fmt.Fprintln(w, "Sending a simple prompt to the AI...")
	fmt.Fprintf(w, "Prompt: %s\n", ProbePrompt)

	if timeout := p.Config().RequestTimeout.Std(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	completion, err := p.Complete(ctx, &provider.CompletionRequest{
		Messages: []types.Message{{Role: types.RoleUser, Content: ProbePrompt}},
	})
	if err != nil {
		fmt.Fprintf(w, "%s provider (%s) failed: %v\n", label, id, err)
		return err
	}

	fmt.Fprintf(w, "\nAI Response: %s\n", completion.Content)
	fmt.Fprintf(w, "Model ID: %s\n", completion.ModelID)
	fmt.Fprintf(w, "Finish Reason: %s\n", completion.FinishReason)
	fmt.Fprintf(w, "Token Usage: Input=%d, Output=%d\n", completion.Usage.Input, completion.Usage.Output)
	return nil
}
