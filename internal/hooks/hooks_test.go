package hooks

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestManager_On_And_Emit(t *testing.T) {
	m := testManager()

	var called bool
	m.On(EventReplySent, "test", func(_ context.Context, p Payload) error {
		called = true
		assert.Equal(t, EventReplySent, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventReplySent, nil)
	assert.True(t, called)
}

func TestManager_Emit_MultipleHandlers(t *testing.T) {
	m := testManager()

	var order []string
	m.On(EventMessageReceived, "first", func(_ context.Context, _ Payload) error {
		order = append(order, "first")
		return nil
	})
	m.On(EventMessageReceived, "second", func(_ context.Context, _ Payload) error {
		order = append(order, "second")
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, nil)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestManager_Emit_WithData(t *testing.T) {
	m := testManager()

	var gotData map[string]any
	m.On(EventMessageReceived, "test", func(_ context.Context, p Payload) error {
		gotData = p.Data
		return nil
	})

	m.Emit(context.Background(), EventMessageReceived, map[string]any{
		"channel": "c-100",
		"user":    "u-1",
	})

	assert.Equal(t, "c-100", gotData["channel"])
	assert.Equal(t, "u-1", gotData["user"])
}

func TestManager_Emit_HandlerError(t *testing.T) {
	m := testManager()

	var secondCalled bool
	m.On(EventReplySent, "failing", func(_ context.Context, _ Payload) error {
		return errors.New("handler broke")
	})
	m.On(EventReplySent, "second", func(_ context.Context, _ Payload) error {
		secondCalled = true
		return nil
	})

	// Should not panic; second handler should still run
	m.Emit(context.Background(), EventReplySent, nil)
	assert.True(t, secondCalled)
}

func TestManager_Emit_NoHandlers(t *testing.T) {
	m := testManager()
	// Should not panic
	m.Emit(context.Background(), EventThreadCreated, nil)
}

func TestManager_Off(t *testing.T) {
	m := testManager()

	var callCount int
	m.On(EventReplySent, "removable", func(_ context.Context, _ Payload) error {
		callCount++
		return nil
	})

	m.Emit(context.Background(), EventReplySent, nil)
	assert.Equal(t, 1, callCount)

	m.Off(EventReplySent, "removable")
	m.Emit(context.Background(), EventReplySent, nil)
	assert.Equal(t, 1, callCount) // should not have been called again
}

func TestManager_Off_KeepsOthers(t *testing.T) {
	m := testManager()

	var keepCalled int
	m.On(EventReplySent, "remove-me", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventReplySent, "keep-me", func(_ context.Context, _ Payload) error {
		keepCalled++
		return nil
	})

	m.Off(EventReplySent, "remove-me")
	m.Emit(context.Background(), EventReplySent, nil)
	assert.Equal(t, 1, keepCalled)
}

func TestManager_EmitAsync(t *testing.T) {
	m := testManager()

	var count atomic.Int32
	var wg sync.WaitGroup
	wg.Add(2)

	m.On(EventRateLimited, "async1", func(_ context.Context, _ Payload) error {
		count.Add(1)
		wg.Done()
		return nil
	})
	m.On(EventRateLimited, "async2", func(_ context.Context, _ Payload) error {
		count.Add(1)
		wg.Done()
		return nil
	})

	m.EmitAsync(context.Background(), EventRateLimited, nil)

	// Wait with timeout
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handlers did not complete in time")
	}

	assert.Equal(t, int32(2), count.Load())
}

func TestManager_Count(t *testing.T) {
	m := testManager()

	assert.Equal(t, 0, m.Count(EventReplySent))

	m.On(EventReplySent, "h1", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 1, m.Count(EventReplySent))

	m.On(EventReplySent, "h2", func(_ context.Context, _ Payload) error { return nil })
	assert.Equal(t, 2, m.Count(EventReplySent))
}

func TestManager_Events(t *testing.T) {
	m := testManager()

	m.On(EventReplySent, "h1", func(_ context.Context, _ Payload) error { return nil })
	m.On(EventMessageReceived, "h2", func(_ context.Context, _ Payload) error { return nil })

	assert.Equal(t, []string{EventMessageReceived, EventReplySent}, m.Events())

	m.Off(EventReplySent, "h1")
	assert.Equal(t, []string{EventMessageReceived}, m.Events())
}

func TestManager_Emit_RecoversPanic(t *testing.T) {
	m := testManager()

	var after bool
	m.On(EventReplySent, "boom", func(_ context.Context, _ Payload) error { panic("boom") })
	m.On(EventReplySent, "after", func(_ context.Context, p Payload) error {
		after = true
		assert.False(t, p.Time.IsZero())
		return nil
	})

	assert.NotPanics(t, func() { m.Emit(context.Background(), EventReplySent, nil) })
	assert.True(t, after)
}

func TestAllEvents_NotEmpty(t *testing.T) {
	require.NotEmpty(t, AllEvents)
	assert.Contains(t, AllEvents, EventReplySent)
	assert.Contains(t, AllEvents, EventMessageReceived)
}

func TestManager_OnAll(t *testing.T) {
	m := testManager()

	var seen []string
	m.OnAll("recorder", func(_ context.Context, p Payload) error {
		seen = append(seen, p.Event)
		return nil
	})

	for _, event := range AllEvents {
		assert.Equal(t, 1, m.Count(event), event)
	}

	m.Emit(context.Background(), EventGenerationFailed, nil)
	m.Emit(context.Background(), EventChannelConnected, nil)
	assert.Equal(t, []string{EventGenerationFailed, EventChannelConnected}, seen)

	m.Off(EventGenerationFailed, "recorder")
	assert.Equal(t, 0, m.Count(EventGenerationFailed))
}

func TestMessageData(t *testing.T) {
	data := MessageData(domain.InboundMessage{
		ID:        "m-1",
		ChannelID: "c-1",
		GuildID:   "g-1",
		Author:    domain.Author{ID: "u-1"},
		Kind:      domain.KindThread,
	})
	assert.Equal(t, map[string]any{
		"channel": "c-1",
		"user":    "u-1",
		"msg_id":  "m-1",
		"kind":    "thread",
		"guild":   "g-1",
	}, data)

	assert.NotContains(t, MessageData(domain.InboundMessage{Kind: domain.KindDirectMessage}), "guild")
}
