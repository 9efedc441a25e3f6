package domain

import (
	"time"
	"unicode/utf8"
)

// Author identifies who wrote a message.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Bot         bool   `json:"bot,omitempty"`
}

// Mention returns the platform mention token for the author.
func (a Author) Mention() string {
	return "<@" + a.ID + ">"
}

// Attachment represents a file or media attachment on a message.
type Attachment struct {
	ID          string `json:"id,omitempty"`
	URL         string `json:"url,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Filename    string `json:"filename,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// Embed is a platform-generated link preview.
type Embed struct {
	Provider    string `json:"provider,omitempty"` // "YouTube", "X", "Twitter"
	Author      string `json:"author,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// InboundMessage is a message received from a channel. It is read-only for the pipeline.
type InboundMessage struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelId"`
	GuildID   string `json:"guildId,omitempty"`
	Author    Author `json:"author"`
	Body      string `json:"body"`

	Attachments []Attachment      `json:"attachments,omitempty"`
	Embeds      []Embed           `json:"embeds,omitempty"`
	Mentions    map[string]string `json:"mentions,omitempty"` // user ID -> display name

	Kind            ChannelKind `json:"kind"`
	ParentChannelID string      `json:"parentChannelId,omitempty"`
	ThreadOwnerID   string      `json:"threadOwnerId,omitempty"`
	ReplyToID       string      `json:"replyToId,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// Mentioned reports whether userID is in the message's mention list.
func (m InboundMessage) Mentioned(userID string) bool {
	_, ok := m.Mentions[userID]
	return ok
}

// NormalizedMessage is the author-agnostic form of an InboundMessage
// consumed by prompt assembly. Treat it as immutable.
type NormalizedMessage struct {
	Author      string      `json:"author"`
	PromptText  string      `json:"promptText"`
	ImageURLs   []string    `json:"imageUrls,omitempty"`
	IsFromBot   bool        `json:"isFromBot"`
	ChannelKind ChannelKind `json:"channelKind"`
	ThreadRef   string      `json:"threadRef,omitempty"`
}

// ConversationContext is an exchange ordered oldest first; the triggering
// message is always last.
type ConversationContext []NormalizedMessage

// Last returns the triggering message.
func (c ConversationContext) Last() (NormalizedMessage, bool) {
	if len(c) == 0 {
		return NormalizedMessage{}, false
	}
	return c[len(c)-1], true
}

// GeneratedResponse is the post-processed result of one generation call.
type GeneratedResponse struct {
	RawText     string `json:"rawText"`
	DisplayText string `json:"displayText"`
	MediaURL    string `json:"mediaUrl,omitempty"`
}

// Content renders the response as it is posted: display text followed by
// the media URL on its own line. The text is shortened so the URL always
// fits within MaxMessageLength.
func (r GeneratedResponse) Content() string {
	switch {
	case r.MediaURL == "":
		return r.DisplayText
	case r.DisplayText == "":
		return r.MediaURL
	}
	room := MaxMessageLength - utf8.RuneCountInString(r.MediaURL) - 1
	text := truncateRunes(r.DisplayText, room)
	if text == "" {
		return r.MediaURL
	}
	return text + "\n" + r.MediaURL
}
