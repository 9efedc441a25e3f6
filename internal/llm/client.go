// Package llm defines the generation client interface and the providers
// behind it: the OpenAI Responses API and Gemini.
package llm

import (
	"context"
	"time"
)

// Role constants for input items.
const (
	RoleDeveloper = "developer"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content part types. Assistant text uses ContentOutputText so the model
// can tell its own prior turns apart.
const (
	ContentInputText  = "input_text"
	ContentOutputText = "output_text"
	ContentInputImage = "input_image"
)

// Stream event types.
const (
	EventDelta = "delta"
	EventDone  = "done"
	EventError = "error"
)

// ContentPart is one piece of an input item.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// InputItem is a role-tagged entry of the ordered input list.
type InputItem struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// Text returns the concatenated text parts of the item.
func (i InputItem) Text() string {
	var s string
	for _, p := range i.Content {
		if p.Type != ContentInputImage {
			s += p.Text
		}
	}
	return s
}

// CompletionRequest is the input to a Complete or Stream call.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Input       []InputItem       `json:"input"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature *float64          `json:"temperature,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Store       bool              `json:"store,omitempty"`
}

// CompletionResponse is the result of a completion.
type CompletionResponse struct {
	ID       string        `json:"id,omitempty"`
	Content  string        `json:"content"`
	Model    string        `json:"model,omitempty"`
	Usage    Usage         `json:"usage"`
	Duration time.Duration `json:"duration,omitempty"`
}

// Usage tracks token consumption.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// StreamEvent is a chunk from a streaming completion. A stream is zero or
// more deltas followed by exactly one done or error event.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"` // text delta
	Error   error  `json:"-"`                 // type="error"

	// Response carries the authoritative full text (type="done").
	Response *CompletionResponse `json:"response,omitempty"`
}

// Client is the interface all generation providers implement.
type Client interface {
	// Complete sends a request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends a request and returns a channel of streaming events.
	Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)

	// Name returns the provider name (e.g., "openai", "gemini").
	Name() string
}
