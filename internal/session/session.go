package session

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/abxba0/fluentchat/internal/command"
	"github.com/abxba0/fluentchat/internal/conversation"
	"github.com/abxba0/fluentchat/internal/event"
	"github.com/abxba0/fluentchat/internal/guard"
	"github.com/abxba0/fluentchat/internal/logging"
	"github.com/abxba0/fluentchat/internal/metrics"
	"github.com/abxba0/fluentchat/internal/provider"
	"github.com/abxba0/fluentchat/internal/render"
	"github.com/abxba0/fluentchat/pkg/types"
)

// DefaultContextWindow is used when the chat config has none.
const DefaultContextWindow = 4000

// MsgNearLimit is shown when the history approaches the context budget.
const MsgNearLimit = "Approaching token limit. Older messages will be summarized."

// Completer produces a reply for a window of messages.
type Completer interface {
	Complete(ctx context.Context, req *provider.CompletionRequest) (*types.Completion, error)
}

// Signal tells the caller whether to keep reading input.
type Signal int

const (
	Continue Signal = iota
	Quit
)

func (s Signal) String() string {
	if s == Quit {
		return "quit"
	}
	return "continue"
}

// Options configures a Session.
type Options struct {
	// Completer answers accepted user messages. Required.
	Completer Completer

	// Provider and Model are shown in the banner and sent with requests.
	Provider string
	Model    string

	Chat types.ChatConfig

	// MaxTokens limits the reply; zero uses the provider default.
	MaxTokens int

	// RequestTimeout bounds each completion; zero means no timeout.
	RequestTimeout time.Duration

	// Limits overrides the conversation heuristics.
	Limits *conversation.Limits

	// Guard supplies the input guard. Defaults to the built-in policy.
	Guard *guard.Holder

	// Renderer prints output. Defaults to stdout.
	Renderer *render.Renderer

	// Bus and Metrics are optional.
	Bus     *event.Bus
	Metrics *metrics.Metrics

	// In is read by Run. Defaults to stdin.
	In io.Reader
}

// Session is one interactive conversation.
type Session struct {
	id     string
	opts   Options
	store  *conversation.Store
	guard  *guard.Holder
	render *render.Renderer
	window int
	turns  int
}

// New creates a session. It panics if no Completer is given.
func New(opts Options) *Session {
	if opts.Completer == nil {
		panic("session: Completer is required")
	}
	s := &Session{
		id:     ulid.Make().String(),
		opts:   opts,
		guard:  opts.Guard,
		render: opts.Renderer,
		window: opts.Chat.ContextWindowTokens,
	}
	if s.guard == nil {
		s.guard = guard.NewHolder(guard.New(guard.DefaultPolicy()))
	}
	if s.render == nil {
		s.render = render.New(os.Stdout, render.Options{})
	}
	if s.window <= 0 {
		s.window = DefaultContextWindow
	}

	storeOpts := []conversation.Option{conversation.WithSummaryHook(s.onSummary)}
	if opts.Limits != nil {
		storeOpts = append(storeOpts, conversation.WithLimits(*opts.Limits))
	}
	s.store = conversation.NewStore(storeOpts...)
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the conversation history.
func (s *Session) Store() *conversation.Store { return s.store }

// Start prints the banner, seeds the system prompt and prints the help text.
func (s *Session) Start() {
	s.render.Banner(render.BannerInfo{
		Provider:      s.opts.Provider,
		Model:         s.opts.Model,
		ContextWindow: s.window,
		Safety:        s.opts.Chat.SafetyEnabled(),
		Memory:        s.opts.Chat.MemoryEnabled(),
	})

	if prompt := s.opts.Chat.SystemPrompt; prompt != "" {
		s.store.AddMessage(types.RoleSystem, prompt)
	}
	s.render.Started(command.HelpText())

	logging.Info().
		Str("session", s.id).
		Str("provider", s.opts.Provider).
		Str("model", s.opts.Model).
		Int("window", s.window).
		Msg("Session started")
	s.publish(event.SessionStarted, event.SessionStartedData{
		SessionID: s.id,
		Provider:  s.opts.Provider,
		Model:     s.opts.Model,
	})
}

// HandleLine processes one line of input.
func (s *Session) HandleLine(ctx context.Context, line string) Signal {
	if strings.TrimSpace(line) == "" {
		return Continue
	}
	s.turns++
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordTurn()
	}

	if command.IsCommand(line) {
		return s.handleCommand(line)
	}

	input := line
	if s.opts.Chat.SafetyEnabled() {
		g := s.guard.Get()
		result := g.ValidateInput(input)
		if !result.Accepted {
			s.reject(result.ErrorMessage)
			return Continue
		}
		if result.NeedsClarification {
			s.clarify(result.ClarificationPrompt)
			return Continue
		}
		input = g.SanitizeInput(input)
	}

	s.store.AddMessage(types.RoleUser, input)
	s.publishAdded(types.RoleUser)
	s.respond(ctx)
	return Continue
}

// MaxLineBytes caps a single input line. The rest of a longer line is
// discarded and the line is rejected as too long.
const MaxLineBytes = 1024 * 1024

type inputLine struct {
	text    string
	tooLong bool
}

// Run reads lines until a quit command, end of input or ctx is done.
func (s *Session) Run(ctx context.Context) error {
	in := s.opts.In
	if in == nil {
		in = os.Stdin
	}

	lines := make(chan inputLine)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		reader := bufio.NewReaderSize(in, 64*1024)
		for {
			line, err := readLine(reader, MaxLineBytes)
			if err != nil && line.text == "" && !line.tooLong {
				errc <- err
				return
			}
			select {
			case lines <- line:
			case <-done:
				return
			}
			if err != nil {
				errc <- err
				return
			}
		}
	}()

	defer s.end()
	for {
		s.render.Prompt()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			if err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			return nil
		case line := <-lines:
			if line.tooLong {
				s.rejectOversized()
				continue
			}
			if s.HandleLine(ctx, line.text) == Quit {
				return nil
			}
		}
	}
}

// readLine reads one line without its terminator. Bytes past limit are
// dropped up to the next newline and the line is marked too long.
func readLine(r *bufio.Reader, limit int) (inputLine, error) {
	var buf []byte
	var line inputLine
	for {
		chunk, err := r.ReadSlice('\n')
		if !line.tooLong {
			if len(buf)+len(chunk) > limit+1 {
				line.tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if !line.tooLong {
			line.text = strings.TrimRight(string(buf), "\r\n")
		}
		return line, err
	}
}

// rejectOversized counts a line over MaxLineBytes as a turn and rejects it
// with the length warning, whether or not safety features are enabled.
func (s *Session) rejectOversized() {
	s.turns++
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordTurn()
	}
	logging.Debug().Str("session", s.id).Int("limit", MaxLineBytes).Msg("Input line too long")
	s.reject(s.guard.Get().TooLongMessage())
}

func (s *Session) end() {
	logging.Info().Str("session", s.id).Int("turns", s.turns).Msg("Session ended")
	s.publish(event.SessionEnded, event.SessionEndedData{SessionID: s.id, Turns: s.turns})
}

func (s *Session) handleCommand(line string) Signal {
	cmd := command.Parse(line)
	result := command.Handle(cmd, &trackedConversation{session: s})
	s.render.Output(result.Output)

	logging.Debug().Str("session", s.id).Str("command", cmd.Kind.String()).Msg("Command executed")
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordCommand(cmd.Kind.String())
	}
	s.publish(event.CommandExecuted, event.CommandExecutedData{
		SessionID: s.id,
		Command:   cmd.Kind.String(),
	})

	if result.Quit {
		return Quit
	}
	return Continue
}

func (s *Session) reject(msg string) {
	s.render.Warning(msg)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordRejection()
	}
	s.publish(event.InputRejected, event.InputRejectedData{SessionID: s.id, Message: msg})
}

func (s *Session) clarify(prompt string) {
	s.render.Clarify(prompt)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordClarification()
	}
	s.publish(event.ClarificationRequested, event.ClarificationRequestedData{SessionID: s.id, Prompt: prompt})
}

func (s *Session) respond(ctx context.Context) {
	messages := s.store.GetWindow(s.window)
	if !s.opts.Chat.MemoryEnabled() {
		messages = withoutHistory(messages)
	}
	if s.store.IsNearTokenLimit(s.window) {
		s.render.Notice(MsgNearLimit)
	}

	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	start := time.Now()
	completion, err := s.opts.Completer.Complete(ctx, &provider.CompletionRequest{
		Model:     s.opts.Model,
		Messages:  messages,
		MaxTokens: s.opts.MaxTokens,
	})
	elapsed := time.Since(start)
	if err != nil {
		s.fail(err, elapsed)
		return
	}

	s.store.AddMessage(types.RoleAssistant, completion.Content)
	s.publishAdded(types.RoleAssistant)

	s.render.Assistant(completion.Content)
	s.render.Usage(completion.Usage.Input, completion.Usage.Output, s.store.EstimateTokenCount())

	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordCompletion(s.opts.Provider, elapsed, completion.Usage.Input, completion.Usage.Output)
	}
	s.publish(event.CompletionReceived, event.CompletionReceivedData{
		SessionID:    s.id,
		Provider:     s.opts.Provider,
		Model:        completion.ModelID,
		FinishReason: completion.FinishReason,
		InputTokens:  completion.Usage.Input,
		OutputTokens: completion.Usage.Output,
		Duration:     elapsed,
	})
}

func (s *Session) fail(err error, elapsed time.Duration) {
	logging.Error().Err(err).Str("session", s.id).Str("provider", s.opts.Provider).Msg("Completion failed")
	s.render.CompletionError(err)
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordCompletionError(s.opts.Provider, elapsed)
	}
	s.publish(event.CompletionFailed, event.CompletionFailedData{
		SessionID: s.id,
		Provider:  s.opts.Provider,
		Error:     err.Error(),
	})
}

func (s *Session) onSummary(summary types.Summary, evicted int) {
	logging.Info().
		Str("session", s.id).
		Int("evicted", evicted).
		Int("tokens", summary.ApproximateTokens).
		Msg("Conversation summarized")
	if s.opts.Metrics != nil {
		s.opts.Metrics.RecordSummary(evicted)
	}
	s.publish(event.ConversationSummarized, event.ConversationSummarizedData{
		SessionID:     s.id,
		Evicted:       evicted,
		SummaryTokens: summary.ApproximateTokens,
	})
}

func (s *Session) publishAdded(role types.Role) {
	if s.opts.Bus == nil {
		return
	}
	msgs := s.store.GetMessages()
	if len(msgs) == 0 {
		return
	}
	last := msgs[len(msgs)-1]
	s.publish(event.MessageAdded, event.MessageAddedData{
		SessionID: s.id,
		Role:      role.String(),
		Position:  last.Position,
		Chars:     last.Chars(),
	})
}

func (s *Session) publish(t event.EventType, data any) {
	if s.opts.Bus == nil {
		return
	}
	s.opts.Bus.Publish(event.Event{Type: t, Data: data})
}

// withoutHistory keeps system messages and the newest message.
func withoutHistory(messages []types.Message) []types.Message {
	if len(messages) == 0 {
		return messages
	}
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages[:len(messages)-1] {
		if m.Role == types.RoleSystem {
			out = append(out, m)
		}
	}
	return append(out, messages[len(messages)-1])
}

// trackedConversation reports command side effects on the event bus.
type trackedConversation struct {
	session *Session
}

func (c *trackedConversation) ClearConversation() {
	c.session.store.ClearConversation()
	c.session.publish(event.ConversationCleared, event.ConversationClearedData{SessionID: c.session.id})
}

func (c *trackedConversation) RemoveLastUserMessage() bool {
	removed := c.session.store.RemoveLastUserMessage()
	if removed {
		c.session.publish(event.MessageRemoved, event.MessageRemovedData{SessionID: c.session.id})
	}
	return removed
}
