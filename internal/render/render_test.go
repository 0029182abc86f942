package render

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestRenderer() (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer
	return New(&buf, Options{NoColor: true}), &buf
}

func TestRenderer_Banner(t *testing.T) {
	r, buf := newTestRenderer()
	r.Banner(BannerInfo{Provider: "openai", Model: "gpt-3.5-turbo", ContextWindow: 4000, Safety: true})

	out := buf.String()
	assert.Contains(t, out, Title+"\n=======")
	assert.Contains(t, out, "Provider: openai\n")
	assert.Contains(t, out, "Model: gpt-3.5-turbo\n")
	assert.Contains(t, out, "Context Window: 4000 tokens\n")
	assert.Contains(t, out, "Safety Features: Enabled\n")
	assert.Contains(t, out, "Conversation Memory: Disabled\n")
}

func TestRenderer_Lines(t *testing.T) {
	tests := []struct {
		name string
		fn   func(r *Renderer)
		want string
	}{
		{"prompt", func(r *Renderer) { r.Prompt() }, "\nYou: "},
		{"assistant", func(r *Renderer) { r.Assistant("Hi there") }, "\nAI: Hi there\n"},
		{"warning", func(r *Renderer) { r.Warning("Input cannot be empty.") }, "⚠️  Input cannot be empty.\n"},
		{"clarify", func(r *Renderer) { r.Clarify("More?") }, "🤔 More?\n"},
		{"notice", func(r *Renderer) { r.Notice("note") }, "ℹ️  note\n"},
		{"usage", func(r *Renderer) { r.Usage(1, 2, 3) }, "\n📊 Tokens: Input=1, Output=2, Total=3\n"},
		{"output", func(r *Renderer) { r.Output("Goodbye!") }, "Goodbye!\n"},
		{"empty output", func(r *Renderer) { r.Output("") }, ""},
		{"connected", func(r *Renderer) { r.Connected("openai", nil) }, "✓ Successfully connected to openai\n"},
		{"not connected", func(r *Renderer) { r.Connected("ark", errors.New("boom")) }, "✗ Failed to connect to ark: boom\n"},
		{
			"completion error",
			func(r *Renderer) { r.CompletionError(errors.New("timeout")) },
			"❌ Error getting AI response: timeout\nPlease try again or check your connection.\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, buf := newTestRenderer()
			tt.fn(r)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestRenderer_Started(t *testing.T) {
	r, buf := newTestRenderer()
	r.Started("Available commands:")

	assert.Contains(t, buf.String(), "\nAvailable commands:\n")
	assert.Contains(t, buf.String(), "Chat started! Type your message or use commands starting with ':'")
}
