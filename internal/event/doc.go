/*
Package event provides a pub/sub event system for chat sessions.

Publishers emit events and subscribers react to them without direct
dependencies. Subscribers never receive the text a user typed unless it was
accepted into the conversation; rejected input is reported by its
user-facing message only.

# Architecture

Bus keeps typed in-process subscribers and calls them directly, so Data keeps
its Go type. Every event is also encoded as JSON and published on a watermill
GoChannel under Topic, which lets consumers such as the event log read a
stream of messages:

	msgs, err := bus.Messages(ctx)
	for msg := range msgs {
		fmt.Println(msg.Metadata.Get(event.MetaType), string(msg.Payload))
		msg.Ack()
	}

WriteLog stores the same stream as JSON lines.

# Event Types

Session:
  - session.started, session.ended

Conversation:
  - message.added, message.removed
  - conversation.cleared, conversation.summarized
  - command.executed

Input:
  - input.rejected, input.clarification

Provider:
  - completion.received, completion.failed

Configuration:
  - policy.reloaded

# Delivery

Publish calls each subscriber in its own goroutine; PublishSync calls them in
order before returning. Subscribers must not block for long and must not touch
conversation state.
*/
package event
