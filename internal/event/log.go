package event

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Record is one line of the event log.
type Record struct {
	ID   string          `json:"id"`
	Time string          `json:"time"`
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WriteLog writes every event published on b to w as one JSON object per
// line. It returns when ctx is done or the bus is closed.
func WriteLog(ctx context.Context, b *Bus, w io.Writer) error {
	msgs, err := b.Messages(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to events: %w", err)
	}

	enc := json.NewEncoder(w)
	for msg := range msgs {
		var payload struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			msg.Ack()
			continue
		}
		rec := Record{
			ID:   msg.UUID,
			Time: msg.Metadata.Get(MetaTime),
			Type: EventType(msg.Metadata.Get(MetaType)),
			Data: payload.Data,
		}
		if string(rec.Data) == "null" {
			rec.Data = nil
		}
		err := enc.Encode(rec)
		msg.Ack()
		if err != nil {
			return fmt.Errorf("write event log: %w", err)
		}
	}
	return nil
}
