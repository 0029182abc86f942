package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/abxba0/fluentchat/internal/config"
	"github.com/abxba0/fluentchat/internal/event"
	"github.com/abxba0/fluentchat/internal/guard"
	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/internal/metrics"
	"github.com/abxba0/fluentchat/internal/provider"
	"github.com/abxba0/fluentchat/internal/render"
	"github.com/abxba0/fluentchat/internal/server"
	"github.com/abxba0/fluentchat/internal/session"
	"github.com/abxba0/fluentchat/pkg/types"
)

// MsgAllProvidersFailed is printed when no provider answers the probe.
const MsgAllProvidersFailed = "All providers failed. Please check your API keys and configuration."

var (
	chatProvider      string
	chatModel         string
	chatContextWindow int
	chatNoSafety      bool
	chatNoColor       bool
	chatStatusAddr    string
	chatEventLog      string
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session.

The primary provider is tried first, then the fallback. Type a message to
chat or use :new, :del, :help and :quit.

Examples:
  fluentchat chat
  fluentchat chat --provider anthropic
  fluentchat chat --model openai/gpt-4o --context-window 8000
  fluentchat chat --status-addr :9090 --event-log events.jsonl`,
		RunE: runChat,
	}
	addChatFlags(cmd)
	return cmd
}

func addChatFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&chatProvider, "provider", "p", "", "Provider to try first (openai|anthropic|ark)")
	cmd.Flags().StringVarP(&chatModel, "model", "m", "", "Model to use (model or provider/model)")
	cmd.Flags().IntVar(&chatContextWindow, "context-window", 0, "Context window in tokens")
	cmd.Flags().BoolVar(&chatNoSafety, "no-safety", false, "Disable input validation")
	cmd.Flags().BoolVar(&chatNoColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&chatStatusAddr, "status-addr", "", "Serve health, status, metrics and events on this address")
	cmd.Flags().StringVar(&chatEventLog, "event-log", "", "Append session events as JSON lines to this file")
}

func runChat(cmd *cobra.Command, args []string) error {
	workDir, appConfig, err := loadConfig()
	if err != nil {
		return err
	}
	applyChatFlags(appConfig)
	if err := config.Validate(appConfig); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	renderer := render.New(out, render.Options{NoColor: chatNoColor})

	registry, err := provider.InitializeProviders(ctx, appConfig)
	if err != nil {
		fmt.Fprintln(out, MsgAllProvidersFailed)
		return err
	}

	candidates := registry.Candidates()
	opts := provider.DefaultSelectOptions()
	opts.OnAttempt = func(id string, err error) {
		renderer.Connected(id, err)
		if err != nil && id == candidates[0] && len(candidates) > 1 {
			renderer.Notice(fmt.Sprintf("Primary provider failed, trying fallback: %s", candidates[1]))
		}
	}
	p, err := provider.Select(ctx, registry, candidates, opts)
	if err != nil {
		fmt.Fprintln(out, MsgAllProvidersFailed)
		return err
	}

	modelID := p.DefaultModel()
	if chatModel != "" {
		if _, m := provider.ParseModelString(chatModel); m != "" {
			modelID = m
		}
	}

	checkModel(renderer, registry, p.ID(), modelID, appConfig.Chat.ContextWindowTokens)

	bus := event.NewBus()
	defer bus.Close()

	if chatEventLog != "" {
		stopLog, err := startEventLog(ctx, bus, chatEventLog)
		if err != nil {
			return err
		}
		defer stopLog()
	}

	m := metrics.New()

	policyPath := config.GetPaths().PolicyPath()
	if appConfig.Chat.SafetyPolicyFile != "" {
		policyPath = config.ResolvePath(appConfig.Chat.SafetyPolicyFile, workDir)
	}
	holder := guard.NewHolder(loadGuard(policyPath))
	if watcher, err := watchPolicy(policyPath, holder, bus); err != nil {
		logging.Debug().Err(err).Str("path", policyPath).Msg("Safety policy not watched")
	} else {
		defer watcher.Close()
	}

	sess := session.New(session.Options{
		Completer:      p,
		Provider:       p.ID(),
		Model:          modelID,
		Chat:           appConfig.Chat,
		RequestTimeout: p.Config().RequestTimeout.Std(),
		Guard:          holder,
		Renderer:       renderer,
		Bus:            bus,
		Metrics:        m,
		In:             cmd.InOrStdin(),
	})
	if chatStatusAddr != "" {
		stopServer := startStatusServer(chatStatusAddr, server.Info{
			SessionID: sess.ID(),
			Provider:  p.ID(),
			Model:     modelID,
		}, bus, m)
		defer stopServer()
	}

	sess.Start()

	if err := sess.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// applyChatFlags overrides config values with command line flags.
// checkModel looks up the selected model and warns when the context window is
// larger than the model accepts. Unknown models are only logged.
func checkModel(renderer *render.Renderer, registry *provider.Registry, providerID, modelID string, window int) {
	info, err := registry.GetModel(providerID, modelID)
	if err != nil {
		logging.Debug().Err(err).Msg("Model not in catalogue")
		return
	}
	logging.Info().
		Str("provider", providerID).
		Str("model", info.ID).
		Int("contextLength", info.ContextLength).
		Msg("Model selected")
	if info.ContextLength > 0 && window > info.ContextLength {
		renderer.Notice(fmt.Sprintf("Context window of %d tokens exceeds the %d tokens %s accepts.",
			window, info.ContextLength, info.ID))
	}
}

func applyChatFlags(appConfig *types.Config) {
	if chatModel != "" {
		if id, _ := provider.ParseModelString(chatModel); id != "" && chatProvider == "" {
			chatProvider = id
		}
	}
	if chatProvider != "" {
		id := provider.NormalizeID(chatProvider)
		appConfig.DefaultProvider = id
		appConfig.Failover.PrimaryProvider = id
		if provider.NormalizeID(appConfig.Failover.FallbackProvider) == id {
			appConfig.Failover.FallbackProvider = ""
		}
	}
	if chatContextWindow > 0 {
		appConfig.Chat.ContextWindowTokens = chatContextWindow
	}
	if chatNoSafety {
		off := false
		appConfig.Chat.EnableSafetyFeatures = &off
	}
}

// loadGuard builds a guard from the policy file, or the built-in policy
// when the file is missing or invalid.
func loadGuard(path string) *guard.Guard {
	policy, err := guard.LoadPolicy(path)
	switch {
	case err == nil:
		logging.Info().Str("path", path).Msg("Safety policy loaded")
	case errors.Is(err, guard.ErrPolicyNotFound):
		logging.Debug().Str("path", path).Msg("No safety policy file, using defaults")
	default:
		logging.Warn().Err(err).Str("path", path).Msg("Invalid safety policy, using defaults")
	}
	return guard.New(policy)
}

// watchPolicy swaps the guard whenever the policy file changes. An invalid
// file keeps the current guard.
func watchPolicy(path string, holder *guard.Holder, bus *event.Bus) (*config.Watcher, error) {
	return config.WatchFile(path, func(changed string) {
		data := event.PolicyReloadedData{Path: changed}
		policy, err := guard.LoadPolicy(changed)
		if err != nil {
			logging.Warn().Err(err).Str("path", changed).Msg("Safety policy not reloaded")
			data.Error = err.Error()
		} else {
			holder.Set(guard.New(policy))
			logging.Info().Str("path", changed).Msg("Safety policy reloaded")
		}
		bus.Publish(event.Event{Type: event.PolicyReloaded, Data: data})
	})
}

// startStatusServer runs the status server on addr until the returned
// function is called.
func startStatusServer(addr string, info server.Info, bus *event.Bus, m *metrics.Metrics) func() {
	cfg := server.DefaultConfig()
	cfg.Addr = addr
	srv := server.New(cfg, info, bus, m)

	go func() {
		logging.Info().Str("addr", addr).Msg("Status server listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Str("addr", addr).Msg("Status server error")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Status server shutdown error")
		}
	}
}

// startEventLog appends bus events to path until the returned function is
// called.
func startEventLog(ctx context.Context, bus *event.Bus, path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}

	logCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := event.WriteLog(logCtx, bus, f); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Event log stopped")
		}
	}()

	return func() {
		cancel()
		<-done
		f.Close()
	}, nil
}
