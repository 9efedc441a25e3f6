package agent

import (
	"context"
	"errors"
	"strings"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/logging"
)

// FailoverClient wraps an LLM registry to try fallback models on failure.
type FailoverClient struct {
	registry  *llm.Registry
	primary   string
	fallbacks []string
	log       *logging.Logger
}

// NewFailoverClient creates a client that tries the primary model first,
// then falls back through the list on retryable errors (401, 429, 5xx).
func NewFailoverClient(registry *llm.Registry, primary string, fallbacks []string, log *logging.Logger) *FailoverClient {
	return &FailoverClient{
		registry:  registry,
		primary:   primary,
		fallbacks: fallbacks,
		log:       log.Sub("failover"),
	}
}

// Name returns "failover".
func (f *FailoverClient) Name() string { return "failover" }

func (f *FailoverClient) models() []string {
	return append([]string{f.primary}, f.fallbacks...)
}

// attempt prepares req for model, dropping parameters the model rejects.
func attempt(req llm.CompletionRequest, model string) llm.CompletionRequest {
	req.Model = model
	return llm.ApplyCapabilities(req)
}

// Complete tries the primary model, falling back on retryable errors.
func (f *FailoverClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var lastErr error
	for _, model := range f.models() {
		client, err := f.registry.Resolve(model)
		if err != nil {
			f.log.Debug().Str("model", model).Err(err).Msg("no provider for model, skipping")
			lastErr = &domain.GenerationError{Model: model, Err: err}
			continue
		}

		resp, err := client.Complete(ctx, attempt(req, model))
		if err == nil {
			return resp, nil
		}

		lastErr = asGenerationError(client.Name(), model, err)

		if isRetryable(err) {
			f.log.Warn().
				Str("model", model).
				Err(err).
				Msg("retryable error, trying next model")
			continue
		}

		// Non-retryable error, don't try more models
		return nil, lastErr
	}

	return nil, lastErr
}

// Stream tries the primary model for streaming, with failover. Only
// failures to open the stream fail over; once deltas flow the stream is
// committed to its model.
func (f *FailoverClient) Stream(ctx context.Context, req llm.CompletionRequest) (<-chan llm.StreamEvent, error) {
	var lastErr error
	for _, model := range f.models() {
		client, err := f.registry.Resolve(model)
		if err != nil {
			lastErr = &domain.GenerationError{Model: model, Err: err}
			continue
		}

		ch, err := client.Stream(ctx, attempt(req, model))
		if err == nil {
			return ch, nil
		}

		lastErr = asGenerationError(client.Name(), model, err)

		if isRetryable(err) {
			f.log.Warn().
				Str("model", model).
				Err(err).
				Msg("retryable stream error, trying next model")
			continue
		}

		return nil, lastErr
	}

	return nil, lastErr
}

func asGenerationError(provider, model string, err error) error {
	var ge *domain.GenerationError
	if errors.As(err, &ge) {
		return err
	}
	return &domain.GenerationError{Provider: provider, Model: model, Err: err}
}

// isRetryable checks if the error suggests trying another model.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var provErr *llm.ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Code {
		case 401, 403, 404, 429, 500, 502, 503, 529:
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "overloaded") ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "capacity") ||
		strings.Contains(msg, "timeout")
}
