package domain

import (
	"context"
	"time"
)

// ChannelKind classifies where a message was posted.
type ChannelKind string

const (
	KindChannel       ChannelKind = "channel"
	KindDirectMessage ChannelKind = "dm"
	KindThread        ChannelKind = "thread"
	KindUnsupported   ChannelKind = "unsupported"
)

// Location is the request metadata value for the kind.
func (k ChannelKind) Location() string {
	return string(k)
}

// ChannelStatus reports the runtime state of a channel.
type ChannelStatus struct {
	ChannelID string `json:"channelId"`
	BotID     string `json:"botId,omitempty"`
	Connected bool   `json:"connected"`
	Running   bool   `json:"running"`
	LastError string `json:"lastError,omitempty"`
}

// Channel is the lifecycle interface every platform adapter satisfies.
type Channel interface {
	// ID returns the channel identifier (e.g., "discord").
	ID() string

	// Start connects the channel and begins listening for messages.
	Start(ctx context.Context) error

	// Stop gracefully disconnects the channel.
	Stop(ctx context.Context) error

	// OnMessage registers a handler for inbound messages.
	OnMessage(handler func(msg InboundMessage))

	// Status reports connection state.
	Status() ChannelStatus
}

// Messenger is the set of platform primitives the delivery pipeline needs.
type Messenger interface {
	// BotID returns the bot's own user ID once connected.
	BotID() string

	FetchMessage(ctx context.Context, channelID, messageID string) (InboundMessage, error)

	// FetchHistory returns up to limit messages posted before beforeID, oldest first.
	FetchHistory(ctx context.Context, channelID string, limit int, beforeID string) ([]InboundMessage, error)

	Send(ctx context.Context, channelID, text string) (string, error)
	Reply(ctx context.Context, channelID, replyToID, text string) (string, error)
	Edit(ctx context.Context, channelID, messageID, text string) error
	CreateThread(ctx context.Context, channelID, messageID, name string, archiveMinutes int) (string, error)
	Typing(ctx context.Context, channelID string) error

	// SendEphemeral sends a silent reply that is deleted after ttl.
	SendEphemeral(ctx context.Context, channelID, replyToID, text string, ttl time.Duration) error
}
