package event

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_Subscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	received := make(chan Event, 1)
	unsub := bus.Subscribe(SessionStarted, func(e Event) {
		received <- e
	})
	defer unsub()

	bus.Publish(Event{Type: SessionStarted, Data: SessionStartedData{SessionID: "s1", Provider: "openai"}})

	select {
	case e := <-received:
		assert.Equal(t, SessionStarted, e.Type)
		data, ok := e.Data.(SessionStartedData)
		require.True(t, ok, "data keeps its Go type")
		assert.Equal(t, "openai", data.Provider)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	wg.Add(3)
	unsub := bus.SubscribeAll(func(e Event) {
		atomic.AddInt32(&count, 1)
		wg.Done()
	})
	defer unsub()

	bus.Publish(Event{Type: MessageAdded})
	bus.Publish(Event{Type: ConversationCleared})
	bus.Publish(Event{Type: CompletionFailed})

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&count))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for events")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var typed, global int32
	unsubTyped := bus.Subscribe(InputRejected, func(e Event) { atomic.AddInt32(&typed, 1) })
	unsubGlobal := bus.SubscribeAll(func(e Event) { atomic.AddInt32(&global, 1) })

	bus.PublishSync(Event{Type: InputRejected})
	unsubTyped()
	unsubGlobal()
	bus.PublishSync(Event{Type: InputRejected})

	assert.Equal(t, int32(1), atomic.LoadInt32(&typed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&global))
}

func TestBus_PublishSyncFiltersByType(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var got []EventType
	bus.Subscribe(MessageAdded, func(e Event) { got = append(got, e.Type) })
	bus.Subscribe(MessageRemoved, func(e Event) { got = append(got, e.Type) })

	bus.PublishSync(Event{Type: MessageAdded})
	bus.PublishSync(Event{Type: CommandExecuted})
	bus.PublishSync(Event{Type: MessageRemoved})

	assert.Equal(t, []EventType{MessageAdded, MessageRemoved}, got)
}

func TestBus_NoSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	assert.NotPanics(t, func() {
		bus.Publish(Event{Type: SessionEnded})
		bus.PublishSync(Event{Type: SessionEnded})
	})
}

func TestBus_Messages(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Messages(ctx)
	require.NoError(t, err)

	bus.PublishSync(Event{Type: ConversationSummarized, Data: ConversationSummarizedData{
		SessionID: "s1", Evicted: 4, SummaryTokens: 30,
	}})

	select {
	case msg := <-msgs:
		assert.Equal(t, string(ConversationSummarized), msg.Metadata.Get(MetaType))
		assert.NotEmpty(t, msg.Metadata.Get(MetaTime))
		assert.NotEmpty(t, msg.UUID)

		var decoded struct {
			Type EventType                  `json:"type"`
			Data ConversationSummarizedData `json:"data"`
		}
		require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
		assert.Equal(t, ConversationSummarized, decoded.Type)
		assert.Equal(t, 4, decoded.Data.Evicted)
		msg.Ack()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for watermill message")
	}
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	var count int32
	bus.SubscribeAll(func(e Event) { atomic.AddInt32(&count, 1) })

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "second close is a no-op")

	bus.PublishSync(Event{Type: SessionEnded})
	unsub := bus.Subscribe(SessionEnded, func(e Event) { atomic.AddInt32(&count, 1) })
	unsub()

	assert.Zero(t, atomic.LoadInt32(&count))
}

func TestBus_ConcurrentSubscribePublish(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var count int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unsub := bus.Subscribe(MessageAdded, func(e Event) {
				atomic.AddInt32(&count, 1)
			})
			defer unsub()

			for j := 0; j < 10; j++ {
				bus.PublishSync(Event{Type: MessageAdded})
			}
		}()
	}
	wg.Wait()

	assert.Positive(t, atomic.LoadInt32(&count))
}
