// Package session runs the interactive chat loop.
//
// A Session owns one conversation.Store and processes input one line at a
// time. Each line goes through the same steps:
//
//   - blank lines are ignored
//   - meta-commands (":new", ":del", ":help", ":quit") are handled by the
//     command package and never reach the model
//   - with safety features on, the input guard may reject the line or ask
//     for clarification; neither stores anything
//   - accepted text is sanitized, appended as a user message and the
//     context window is sent to the Completer
//   - the reply is appended and printed with token usage
//
// Provider failures are shown to the user and the loop continues; the user
// message stays in the history and is not retried.
//
// Basic usage:
//
//	sess := session.New(session.Options{
//		Completer: p,
//		Provider:  p.ID(),
//		Model:     p.DefaultModel(),
//		Chat:      cfg.Chat,
//		Renderer:  render.New(os.Stdout, render.Options{}),
//	})
//	sess.Start()
//	err := sess.Run(ctx)
//
// Session is not safe for concurrent use. The guard may be swapped from
// another goroutine through guard.Holder.
package session
