package domain

import (
	"fmt"
	"time"
)

// UnsupportedChannelError is returned for messages from channel kinds the
// pipeline does not handle. The message is dropped.
type UnsupportedChannelError struct {
	Kind string
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("unsupported channel type %q", e.Kind)
}

// RateLimitError reports a denied message.
type RateLimitError struct {
	UserID   string
	Allowed  int
	Interval time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("user %s exceeded %d messages per %s", e.UserID, e.Allowed, e.Interval)
}

// ConfigurationError reports a missing or invalid setting required to build a request.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// GenerationError wraps any failure from the generation service.
type GenerationError struct {
	Provider string
	Model    string
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (%s/%s): %v", e.Provider, e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// MediaResolutionError reports a failed media lookup. It never leaves the media package.
type MediaResolutionError struct {
	Keyword string
	Err     error
}

func (e *MediaResolutionError) Error() string {
	return fmt.Sprintf("resolve media %q: %v", e.Keyword, e.Err)
}

func (e *MediaResolutionError) Unwrap() error { return e.Err }
