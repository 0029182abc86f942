// Package render writes the chat REPL to a terminal.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Title is the first line of the banner.
const Title = "FluentChat AI Assistant"

// Options configures a Renderer.
type Options struct {
	NoColor bool
}

// BannerInfo is the session configuration shown at start.
type BannerInfo struct {
	Provider      string
	Model         string
	ContextWindow int
	Safety        bool
	Memory        bool
}

// Renderer prints session output with colors.
type Renderer struct {
	out io.Writer

	title   *color.Color
	dim     *color.Color
	user    *color.Color
	ai      *color.Color
	warn    *color.Color
	errc    *color.Color
	success *color.Color
}

// New creates a Renderer writing to out.
func New(out io.Writer, opts Options) *Renderer {
	r := &Renderer{
		out:     out,
		title:   color.New(color.FgCyan, color.Bold),
		dim:     color.New(color.FgHiBlack),
		user:    color.New(color.FgCyan, color.Bold),
		ai:      color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow),
		errc:    color.New(color.FgRed),
		success: color.New(color.FgGreen),
	}
	if opts.NoColor {
		for _, c := range []*color.Color{r.title, r.dim, r.user, r.ai, r.warn, r.errc, r.success} {
			c.DisableColor()
		}
	}
	return r
}

// Banner prints the welcome block.
func (r *Renderer) Banner(info BannerInfo) {
	fmt.Fprintln(r.out, r.title.Sprint(Title))
	fmt.Fprintln(r.out, strings.Repeat("=", len(Title)))
	fmt.Fprintf(r.out, "Provider: %s\n", info.Provider)
	fmt.Fprintf(r.out, "Model: %s\n", info.Model)
	fmt.Fprintf(r.out, "Context Window: %d tokens\n", info.ContextWindow)
	fmt.Fprintf(r.out, "Safety Features: %s\n", enabled(info.Safety))
	fmt.Fprintf(r.out, "Conversation Memory: %s\n", enabled(info.Memory))
}

// Started prints the help text and the chat start line.
func (r *Renderer) Started(help string) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, help)
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "Chat started! Type your message or use commands starting with ':'")
	fmt.Fprintln(r.out, strings.Repeat("=", 37))
}

// Prompt prints the input prompt without a newline.
func (r *Renderer) Prompt() {
	fmt.Fprintf(r.out, "\n%s", r.user.Sprint("You: "))
}

// Output prints command output as is.
func (r *Renderer) Output(text string) {
	if text == "" {
		return
	}
	fmt.Fprintln(r.out, text)
}

// Assistant prints a model reply.
func (r *Renderer) Assistant(content string) {
	fmt.Fprintf(r.out, "\n%s%s\n", r.ai.Sprint("AI: "), content)
}

// Warning prints an input rejection.
func (r *Renderer) Warning(msg string) {
	fmt.Fprintln(r.out, r.warn.Sprintf("⚠️  %s", msg))
}

// Clarify prints a clarification prompt.
func (r *Renderer) Clarify(prompt string) {
	fmt.Fprintf(r.out, "🤔 %s\n", prompt)
}

// Notice prints an informational line.
func (r *Renderer) Notice(msg string) {
	fmt.Fprintln(r.out, r.dim.Sprintf("ℹ️  %s", msg))
}

// Usage prints token usage after a reply.
func (r *Renderer) Usage(input, output, total int) {
	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, r.dim.Sprintf("📊 Tokens: Input=%d, Output=%d, Total=%d", input, output, total))
}

// CompletionError prints a failed provider call.
func (r *Renderer) CompletionError(err error) {
	fmt.Fprintln(r.out, r.errc.Sprintf("❌ Error getting AI response: %v", err))
	fmt.Fprintln(r.out, "Please try again or check your connection.")
}

// Connected prints a provider probe result.
func (r *Renderer) Connected(provider string, err error) {
	if err != nil {
		fmt.Fprintln(r.out, r.errc.Sprintf("✗ Failed to connect to %s: %v", provider, err))
		return
	}
	fmt.Fprintln(r.out, r.success.Sprintf("✓ Successfully connected to %s", provider))
}

func enabled(b bool) string {
	if b {
		return "Enabled"
	}
	return "Disabled"
}
