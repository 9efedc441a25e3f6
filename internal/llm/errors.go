package llm

import (
	"errors"
	"fmt"

	"github.com/soyeahso/gork/internal/domain"
)

// ProviderError carries provider-level failure detail.
type ProviderError struct {
	Provider string
	Message  string
	Code     int // HTTP status code (401, 429, 500, etc.)
}

func (e *ProviderError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("%s: %d %s", e.Provider, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// generationError wraps err as a domain.GenerationError unless it already is one.
func generationError(provider, model string, err error) error {
	if err == nil {
		return nil
	}
	var ge *domain.GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &domain.GenerationError{Provider: provider, Model: model, Err: err}
}

// ErrorEvent builds a terminal error event.
func ErrorEvent(provider, model string, err error) StreamEvent {
	return StreamEvent{Type: EventError, Error: generationError(provider, model, err)}
}
