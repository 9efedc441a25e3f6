// Package hooks provides an event-driven hook system for relay lifecycle events.
package hooks

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/logging"
)

// Event names for the hook system.
const (
	EventMessageReceived     = "message_received"
	EventMessageIgnored      = "message_ignored"
	EventRateLimited         = "rate_limited"
	EventGenerationStarted   = "generation_started"
	EventGenerationFailed    = "generation_failed"
	EventReplySent           = "reply_sent"
	EventThreadCreated       = "thread_created"
	EventChannelConnected    = "channel_connected"
	EventChannelDisconnected = "channel_disconnected"
	EventGatewayStart        = "gateway_start"
	EventGatewayStop         = "gateway_stop"
)

// AllEvents lists all known hook event names.
var AllEvents = []string{
	EventMessageReceived,
	EventMessageIgnored,
	EventRateLimited,
	EventGenerationStarted,
	EventGenerationFailed,
	EventReplySent,
	EventThreadCreated,
	EventChannelConnected,
	EventChannelDisconnected,
	EventGatewayStart,
	EventGatewayStop,
}

// Payload carries event data to hook handlers.
type Payload struct {
	Event string         `json:"event"`
	Data  map[string]any `json:"data,omitempty"`
	Time  time.Time      `json:"time"`
}

// MessageData is the common payload for events about an inbound message.
func MessageData(msg domain.InboundMessage) map[string]any {
	data := map[string]any{
		"channel": msg.ChannelID,
		"user":    msg.Author.ID,
		"msg_id":  msg.ID,
		"kind":    string(msg.Kind),
	}
	if msg.GuildID != "" {
		data["guild"] = msg.GuildID
	}
	return data
}

// Handler is a function that handles a hook event.
// Returning an error logs the failure but does not stop processing.
type Handler func(ctx context.Context, p Payload) error

// Manager manages hook registrations and dispatches events.
type Manager struct {
	mu       sync.RWMutex
	handlers map[string][]namedHandler
	log      *logging.Logger
}

type namedHandler struct {
	name    string
	handler Handler
}

// NewManager creates a hook manager.
func NewManager(log *logging.Logger) *Manager {
	return &Manager{
		handlers: make(map[string][]namedHandler),
		log:      log.Sub("hooks"),
	}
}

// On registers a handler for the given event.
// The name identifies the handler for logging and debugging.
func (m *Manager) On(event, name string, handler Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = append(m.handlers[event], namedHandler{name: name, handler: handler})
	m.log.Debug().Str("event", event).Str("handler", name).Msg("hook registered")
}

// OnAll registers handler for every event in AllEvents.
func (m *Manager) OnAll(name string, handler Handler) {
	for _, event := range AllEvents {
		m.On(event, name, handler)
	}
}

// Off removes all handlers with the given name from the event.
func (m *Manager) Off(event, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(h namedHandler) bool {
		return h.name == name
	})
}

// Emit runs the event's handlers in registration order and returns when
// all have finished. A failing or panicking handler is logged and skipped.
func (m *Manager) Emit(ctx context.Context, event string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, Data: data, Time: time.Now()}
	for _, h := range handlers {
		m.call(ctx, h, p)
	}
}

// EmitAsync runs each handler on its own goroutine and returns immediately.
// Handlers must not mutate data.
func (m *Manager) EmitAsync(ctx context.Context, event string, data map[string]any) {
	handlers := m.snapshot(event)
	if len(handlers) == 0 {
		return
	}
	p := Payload{Event: event, Data: data, Time: time.Now()}
	for _, h := range handlers {
		go m.call(ctx, h, p)
	}
}

func (m *Manager) snapshot(event string) []namedHandler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.handlers[event])
}

func (m *Manager) call(ctx context.Context, h namedHandler, p Payload) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("event", p.Event).Str("handler", h.name).Interface("panic", r).Msg("hook handler panicked")
		}
	}()
	if err := h.handler(ctx, p); err != nil {
		m.log.Warn().Err(err).Str("event", p.Event).Str("handler", h.name).Msg("hook handler error")
	}
}

// Count returns the number of handlers registered for an event.
func (m *Manager) Count(event string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[event])
}

// Events returns the events with at least one handler, sorted.
func (m *Manager) Events() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var events []string
	for event, handlers := range m.handlers {
		if len(handlers) > 0 {
			events = append(events, event)
		}
	}
	slices.Sort(events)
	return events
}
