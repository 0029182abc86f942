// Package command recognizes and executes the colon-prefixed meta-commands
// of a chat session.
//
// Commands are vim-style and matched case-insensitively after trimming:
//
//	:new            start a new conversation
//	:del            delete the last user message
//	:help           show the command reference
//	:quit :exit :q  leave the session
//
// Anything else starting with a colon is an unknown command.
package command

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

// Kind identifies a meta-command.
type Kind int

const (
	Unknown Kind = iota
	New
	Delete
	Help
	Quit
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case New:
		return "new"
	case Delete:
		return "delete"
	case Help:
		return "help"
	case Quit:
		return "quit"
	case Unknown:
		return "unknown"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is a parsed meta-command. Raw keeps the line as typed.
type Command struct {
	Kind Kind
	Raw  string
}

// Result is the outcome of handling a command.
type Result struct {
	// Output is the text to show the user.
	Output string
	// Quit asks the caller to end the session.
	Quit bool
}

// Conversation is the state a command may change.
type Conversation interface {
	ClearConversation()
	RemoveLastUserMessage() bool
}

const (
	MsgNew     = "✓ Started new conversation. Previous history cleared."
	MsgDelete  = "✓ Removed your last message."
	MsgGoodbye = "Goodbye!"
)

const helpText = `Available Commands:
==================
:new    - Start a new conversation (clears history)
:del    - Delete your last message
:help   - Show this help message
:quit   - Exit the application (:q, :exit also work)

Simply type your message and press Enter to chat with the AI.
Commands are vim-style and start with a colon (:).`

// tokens maps every accepted spelling to its kind, in suggestion order.
var tokens = []struct {
	text string
	kind Kind
}{
	{":new", New},
	{":del", Delete},
	{":help", Help},
	{":quit", Quit},
	{":exit", Quit},
	{":q", Quit},
}

// HelpText returns the command reference.
func HelpText() string {
	return helpText
}

// IsCommand reports whether input is a meta-command rather than chat text.
func IsCommand(input string) bool {
	return strings.HasPrefix(strings.TrimLeftFunc(input, unicode.IsSpace), ":")
}

// Parse classifies input. Blank input and commands with arguments are Unknown.
func Parse(input string) Command {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, t := range tokens {
		if normalized == t.text {
			return Command{Kind: t.kind, Raw: input}
		}
	}
	return Command{Kind: Unknown, Raw: input}
}

// Handle executes cmd against conv.
func Handle(cmd Command, conv Conversation) Result {
	switch cmd.Kind {
	case New:
		conv.ClearConversation()
		return Result{Output: MsgNew}
	case Delete:
		// Same feedback whether or not anything was removed.
		conv.RemoveLastUserMessage()
		return Result{Output: MsgDelete}
	case Help:
		return Result{Output: helpText}
	case Quit:
		return Result{Output: MsgGoodbye, Quit: true}
	case Unknown:
	}

	lines := []string{fmt.Sprintf("Unknown command: %s", cmd.Raw)}
	if s := Suggest(cmd.Raw); s != "" {
		lines = append(lines, fmt.Sprintf("Did you mean %s?", s))
	}
	lines = append(lines, "Type :help for available commands.")
	return Result{Output: strings.Join(lines, "\n")}
}

// Suggest returns the known command closest to the first word of raw,
// or "" when none is within two edits.
func Suggest(raw string) string {
	fields := strings.Fields(strings.ToLower(raw))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ":") {
		return ""
	}
	word := fields[0]

	best, bestDist := "", 3
	for _, t := range tokens {
		if d := levenshtein.ComputeDistance(word, t.text); d < bestDist {
			best, bestDist = t.text, d
		}
	}
	return best
}
