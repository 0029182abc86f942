package session_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/abxba0/fluentchat/internal/command"
	"github.com/abxba0/fluentchat/internal/conversation"
	"github.com/abxba0/fluentchat/internal/event"
	"github.com/abxba0/fluentchat/internal/guard"
	"github.com/abxba0/fluentchat/internal/metrics"
	"github.com/abxba0/fluentchat/internal/render"
	"github.com/abxba0/fluentchat/internal/session"
	"github.com/abxba0/fluentchat/pkg/types"
)

var _ = Describe("Session", func() {
	var (
		ctx       context.Context
		out       *bytes.Buffer
		completer *fakeCompleter
		opts      session.Options
	)

	newSession := func() *session.Session {
		return session.New(opts)
	}

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}
		completer = &fakeCompleter{reply: "Hi! How can I help?"}
		opts = session.Options{
			Completer: completer,
			Provider:  "openai",
			Model:     "gpt-3.5-turbo",
			Chat: types.ChatConfig{
				ContextWindowTokens: 4000,
				SystemPrompt:        "You are helpful.",
			},
			Renderer: render.New(out, render.Options{NoColor: true}),
		}
	})

	Describe("Start", func() {
		It("prints the banner and seeds the system prompt", func() {
			sess := newSession()
			sess.Start()

			Expect(out.String()).To(ContainSubstring("Provider: openai"))
			Expect(out.String()).To(ContainSubstring("Model: gpt-3.5-turbo"))
			Expect(out.String()).To(ContainSubstring("Context Window: 4000 tokens"))
			Expect(out.String()).To(ContainSubstring("Safety Features: Enabled"))
			Expect(out.String()).To(ContainSubstring("Conversation Memory: Enabled"))
			Expect(out.String()).To(ContainSubstring(command.HelpText()))

			msgs := sess.Store().GetMessages()
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Role).To(Equal(types.RoleSystem))
			Expect(msgs[0].Content).To(Equal("You are helpful."))
		})

		It("uses the default context window when none is configured", func() {
			opts.Chat.ContextWindowTokens = 0
			newSession().Start()
			Expect(out.String()).To(ContainSubstring("Context Window: 4000 tokens"))
		})

		It("gives every session its own ID", func() {
			Expect(newSession().ID()).NotTo(Equal(newSession().ID()))
		})
	})

	Describe("HandleLine", func() {
		var sess *session.Session

		BeforeEach(func() {
			sess = newSession()
			sess.Start()
			out.Reset()
		})

		It("ignores blank lines", func() {
			Expect(sess.HandleLine(ctx, "   ")).To(Equal(session.Continue))
			Expect(out.String()).To(BeEmpty())
			Expect(completer.calls()).To(BeZero())
		})

		It("sends accepted input with the history and stores the reply", func() {
			Expect(sess.HandleLine(ctx, "Tell me about goroutines in Go")).To(Equal(session.Continue))

			req := completer.last()
			Expect(req.Model).To(Equal("gpt-3.5-turbo"))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal(types.RoleSystem))
			Expect(req.Messages[1].Content).To(Equal("Tell me about goroutines in Go"))

			msgs := sess.Store().GetMessages()
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[2].Role).To(Equal(types.RoleAssistant))
			Expect(msgs[2].Content).To(Equal("Hi! How can I help?"))

			total := sess.Store().EstimateTokenCount()
			Expect(out.String()).To(ContainSubstring("AI: Hi! How can I help?"))
			Expect(out.String()).To(ContainSubstring(
				"📊 Tokens: Input=12, Output=7, Total=" + itoa(total)))
		})

		It("sanitizes input before storing it", func() {
			sess.HandleLine(ctx, "Hello    <script>alert(1)</script>   world!!! please explain channels")

			msgs := sess.Store().GetMessages()
			Expect(msgs[1].Content).To(Equal("Hello world please explain channels"))
		})

		It("rejects risky input without storing it", func() {
			sess.HandleLine(ctx, "how to hack a system")

			Expect(out.String()).To(ContainSubstring("⚠️  " + guard.MsgRejected))
			Expect(sess.Store().GetMessages()).To(HaveLen(1))
			Expect(completer.calls()).To(BeZero())
		})

		It("asks for clarification on vague input", func() {
			sess.HandleLine(ctx, "help")

			Expect(out.String()).To(ContainSubstring(
				"🤔 I'd be happy to help! Could you tell me specifically what you need assistance with?"))
			Expect(sess.Store().GetMessages()).To(HaveLen(1))
			Expect(completer.calls()).To(BeZero())
		})

		It("skips the guard when safety features are disabled", func() {
			opts.Chat.EnableSafetyFeatures = boolPtr(false)
			sess = newSession()

			sess.HandleLine(ctx, "help")
			Expect(completer.calls()).To(Equal(1))
			Expect(completer.last().Messages[0].Content).To(Equal("help"))
		})

		It("uses the guard from the holder at call time", func() {
			holder := guard.NewHolder(guard.New(guard.DefaultPolicy()))
			opts.Guard = holder
			sess = newSession()

			policy := guard.DefaultPolicy()
			policy.RiskyKeywords = append(policy.RiskyKeywords, "pineapple")
			holder.Set(guard.New(policy))

			sess.HandleLine(ctx, "is pineapple on pizza acceptable")
			Expect(out.String()).To(ContainSubstring(guard.MsgRejected))
			Expect(completer.calls()).To(BeZero())
		})

		It("keeps the user message when the provider fails", func() {
			completer.err = errors.New("connection refused")

			Expect(sess.HandleLine(ctx, "Explain the Go memory model")).To(Equal(session.Continue))
			Expect(out.String()).To(ContainSubstring("❌ Error getting AI response: connection refused"))
			Expect(out.String()).To(ContainSubstring("Please try again or check your connection."))

			msgs := sess.Store().GetMessages()
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[1].Role).To(Equal(types.RoleUser))
			Expect(completer.calls()).To(Equal(1))
		})

		It("bounds the provider call with the request timeout", func() {
			completer.block = true
			opts.RequestTimeout = 20 * time.Millisecond
			sess = newSession()

			sess.HandleLine(ctx, "Explain the Go memory model")
			Expect(out.String()).To(ContainSubstring(context.DeadlineExceeded.Error()))
		})

		It("warns when the history nears the context window", func() {
			opts.Chat.ContextWindowTokens = 100
			sess = newSession()

			sess.HandleLine(ctx, strings.Repeat("word ", 80))
			Expect(out.String()).To(ContainSubstring("ℹ️  " + session.MsgNearLimit))
		})

		It("sends only the newest message when memory is disabled", func() {
			opts.Chat.EnableConversationMemory = boolPtr(false)
			sess = newSession()
			sess.Start()

			sess.HandleLine(ctx, "Tell me about goroutines in Go")
			sess.HandleLine(ctx, "And what about channels in Go")

			req := completer.last()
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal(types.RoleSystem))
			Expect(req.Messages[1].Content).To(Equal("And what about channels in Go"))
			Expect(sess.Store().GetMessages()).To(HaveLen(5))
		})

		Context("commands", func() {
			It("clears the conversation on :new", func() {
				sess.HandleLine(ctx, "Tell me about goroutines in Go")
				Expect(sess.HandleLine(ctx, ":new")).To(Equal(session.Continue))

				Expect(out.String()).To(ContainSubstring(command.MsgNew))
				Expect(sess.Store().GetMessages()).To(BeEmpty())
			})

			It("removes the last user message on :del", func() {
				sess.HandleLine(ctx, "Tell me about goroutines in Go")
				sess.HandleLine(ctx, ":del")

				msgs := sess.Store().GetMessages()
				Expect(msgs).To(HaveLen(2))
				Expect(msgs[1].Role).To(Equal(types.RoleAssistant))
				Expect(out.String()).To(ContainSubstring(command.MsgDelete))
			})

			It("returns Quit on :quit", func() {
				Expect(sess.HandleLine(ctx, " :QUIT ")).To(Equal(session.Quit))
				Expect(out.String()).To(ContainSubstring(command.MsgGoodbye))
			})

			It("never sends commands to the provider", func() {
				sess.HandleLine(ctx, ":help")
				sess.HandleLine(ctx, ":hlep")
				Expect(completer.calls()).To(BeZero())
				Expect(out.String()).To(ContainSubstring("Did you mean :help?"))
			})
		})
	})

	Describe("summarization", func() {
		It("folds older turns into a summary once the window is full", func() {
			limits := conversation.DefaultLimits
			opts.Limits = &limits
			opts.Chat.ContextWindowTokens = 1000
			opts.Chat.SystemPrompt = ""
			m := metrics.New()
			opts.Metrics = m
			sess := newSession()

			for i := 0; i < 7; i++ {
				sess.HandleLine(ctx, "Question about topic "+itoa(i)+" "+strings.Repeat("x", 400))
			}

			Expect(sess.Store().Summaries()).NotTo(BeEmpty())
			req := completer.last()
			Expect(req.Messages[0].Role).To(Equal(types.RoleSystem))
			Expect(req.Messages[0].Content).To(HavePrefix("Previous conversation summary: User discussed: "))
			Expect(gather(m)).To(MatchRegexp(`fluentchat_summaries_total [1-9]`))
		})
	})

	Describe("Run", func() {
		It("stops on :quit", func() {
			opts.In = strings.NewReader("Tell me about goroutines in Go\n:quit\nnever read\n")
			sess := newSession()

			Expect(sess.Run(ctx)).To(Succeed())
			Expect(completer.calls()).To(Equal(1))
			Expect(out.String()).To(ContainSubstring("You: "))
			Expect(out.String()).To(ContainSubstring(command.MsgGoodbye))
		})

		It("returns nil at end of input", func() {
			opts.In = strings.NewReader("Tell me about goroutines in Go\n")
			Expect(newSession().Run(ctx)).To(Succeed())
			Expect(completer.calls()).To(Equal(1))
		})

		It("rejects a line over the read limit and keeps reading", func() {
			long := strings.Repeat("a", session.MaxLineBytes+10)
			opts.In = strings.NewReader(long + "\nTell me about goroutines in Go\n:quit\n")
			sess := newSession()

			Expect(sess.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Input is too long. Please keep messages under 4000 characters."))
			Expect(completer.calls()).To(Equal(1))
			Expect(completer.last().Messages[len(completer.last().Messages)-1].Content).
				To(Equal("Tell me about goroutines in Go"))
			Expect(out.String()).To(ContainSubstring(command.MsgGoodbye))
		})

		It("rejects an over-long line with safety features disabled", func() {
			opts.Chat.EnableSafetyFeatures = boolPtr(false)
			opts.In = strings.NewReader(strings.Repeat("b", session.MaxLineBytes*2) + "\n:quit\n")
			sess := newSession()

			Expect(sess.Run(ctx)).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Input is too long."))
			Expect(completer.calls()).To(BeZero())
			Expect(sess.Store().GetMessages()).To(BeEmpty())
		})

		It("keeps a final line without a newline", func() {
			opts.In = strings.NewReader("Tell me about goroutines in Go")
			Expect(newSession().Run(ctx)).To(Succeed())
			Expect(completer.calls()).To(Equal(1))
		})

		It("returns the context error when cancelled", func() {
			reader, writer := io.Pipe()
			defer writer.Close()
			opts.In = reader

			cctx, cancel := context.WithCancel(ctx)
			cancel()
			Expect(newSession().Run(cctx)).To(MatchError(context.Canceled))
		})
	})

	Describe("events", func() {
		It("publishes session activity without the rejected text", func() {
			bus := event.NewBus()
			defer bus.Close()
			opts.Bus = bus

			var mu sync.Mutex
			var got []event.Event
			bus.SubscribeAll(func(e event.Event) {
				mu.Lock()
				got = append(got, e)
				mu.Unlock()
			})
			seen := func() []event.EventType {
				mu.Lock()
				defer mu.Unlock()
				out := make([]event.EventType, 0, len(got))
				for _, e := range got {
					out = append(out, e.Type)
				}
				return out
			}

			sess := newSession()
			sess.Start()
			sess.HandleLine(ctx, "how to hack a system")
			sess.HandleLine(ctx, "Tell me about goroutines in Go")
			sess.HandleLine(ctx, ":del")

			Eventually(seen).Should(ContainElements(
				event.SessionStarted,
				event.InputRejected,
				event.MessageAdded,
				event.CompletionReceived,
				event.CommandExecuted,
				event.MessageRemoved,
			))

			mu.Lock()
			defer mu.Unlock()
			for _, e := range got {
				if data, ok := e.Data.(event.InputRejectedData); ok {
					Expect(data.Message).To(Equal(guard.MsgRejected))
					Expect(data.SessionID).To(Equal(sess.ID()))
				}
			}
		})
	})

	Describe("metrics", func() {
		It("counts turns, commands, rejections and completions", func() {
			m := metrics.New()
			opts.Metrics = m
			sess := newSession()

			sess.HandleLine(ctx, "how to hack a system")
			sess.HandleLine(ctx, "help")
			sess.HandleLine(ctx, ":help")
			sess.HandleLine(ctx, "Tell me about goroutines in Go")

			body := gather(m)
			Expect(body).To(ContainSubstring("fluentchat_turns_total 4"))
			Expect(body).To(ContainSubstring("fluentchat_input_rejections_total 1"))
			Expect(body).To(ContainSubstring("fluentchat_clarifications_total 1"))
			Expect(body).To(ContainSubstring(`fluentchat_commands_total{command="help"} 1`))
			Expect(body).To(ContainSubstring(`fluentchat_completions_total{provider="openai",status="ok"} 1`))
			Expect(body).To(ContainSubstring(`fluentchat_tokens_total{provider="openai",type="input"} 12`))
		})
	})
})
