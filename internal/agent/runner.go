// Package agent runs one exchange: assemble the prompt, generate, and
// post-process the reply.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/gork/internal/domain"
	"github.com/soyeahso/gork/internal/llm"
	"github.com/soyeahso/gork/internal/logging"
	"github.com/soyeahso/gork/internal/media"
	"github.com/soyeahso/gork/internal/prompt"
)

// DefaultTestingResponse is sent in testing mode when none is configured.
const DefaultTestingResponse = "Testing mode is enabled. No response will be generated by the generation API."

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	Model        string
	Fallbacks    []string
	MaxTokens    int
	Temperature  *float64
	Instructions prompt.Instructions

	TestingMode     bool
	TestingResponse string
}

// Exchange is one generation request.
type Exchange struct {
	History     domain.ConversationContext
	Location    domain.ChannelKind
	RequestorID string
	Augment     bool
}

// RunResult is the outcome of an exchange.
type RunResult struct {
	Response domain.GeneratedResponse `json:"response"`
	Model    string                   `json:"model,omitempty"`
	Usage    llm.Usage                `json:"usage"`
	Duration time.Duration            `json:"duration"`
}

// StreamCallback receives each delta during RunStream.
type StreamCallback func(event llm.StreamEvent)

// Runner drives assemble, generate and post-process for an exchange.
type Runner struct {
	cfg       RunnerConfig
	client    llm.Client
	assembler *prompt.Assembler
	post      *media.PostProcessor
	log       *logging.Logger
}

// NewRunner creates an agent runner. Generation goes through a
// FailoverClient over registry.
func NewRunner(
	cfg RunnerConfig,
	registry *llm.Registry,
	assembler *prompt.Assembler,
	post *media.PostProcessor,
	log *logging.Logger,
) *Runner {
	return &Runner{
		cfg:       cfg,
		client:    NewFailoverClient(registry, cfg.Model, cfg.Fallbacks, log),
		assembler: assembler,
		post:      post,
		log:       log.Sub("agent"),
	}
}

func (r *Runner) request(ctx context.Context, ex Exchange) (llm.CompletionRequest, error) {
	if strings.TrimSpace(r.cfg.Model) == "" {
		return llm.CompletionRequest{}, &domain.ConfigurationError{Field: "ai.model", Message: "model is required"}
	}
	input, err := r.assembler.Assemble(ctx, r.cfg.Instructions, ex.History, ex.Augment)
	if err != nil {
		return llm.CompletionRequest{}, err
	}
	return llm.CompletionRequest{
		Model:       r.cfg.Model,
		Input:       input,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
		Metadata:    metadata(ex),
		Store:       true,
	}, nil
}

func metadata(ex Exchange) map[string]string {
	md := map[string]string{"reason": "chat_completion"}
	if loc := ex.Location.Location(); loc != "" {
		md["location"] = loc
	}
	if ex.RequestorID != "" {
		md["requestor"] = ex.RequestorID
	}
	return md
}

func (r *Runner) testingResult(ctx context.Context, start time.Time) *RunResult {
	text := r.cfg.TestingResponse
	if text == "" {
		text = DefaultTestingResponse
	}
	return &RunResult{
		Response: r.post.Process(ctx, text),
		Model:    "testing",
		Duration: time.Since(start),
	}
}

// Run generates a complete reply for ex.
func (r *Runner) Run(ctx context.Context, ex Exchange) (*RunResult, error) {
	start := time.Now()
	if r.cfg.TestingMode {
		return r.testingResult(ctx, start), nil
	}

	req, err := r.request(ctx, ex)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("user", ex.RequestorID).
		Str("location", string(ex.Location)).
		Int("historyLen", len(ex.History)).
		Msg("processing exchange")

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("model", resp.Model).
		Int("inputTokens", resp.Usage.InputTokens).
		Int("outputTokens", resp.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("response generated")

	return &RunResult{
		Response: r.post.Process(ctx, resp.Content),
		Model:    resp.Model,
		Usage:    resp.Usage,
		Duration: time.Since(start),
	}, nil
}

// RunStream generates a reply, forwarding each delta to cb as it arrives.
// The returned result is post-processed from the authoritative text of the
// done event.
func (r *Runner) RunStream(ctx context.Context, ex Exchange, cb StreamCallback) (*RunResult, error) {
	start := time.Now()
	if r.cfg.TestingMode {
		res := r.testingResult(ctx, start)
		if cb != nil {
			cb(llm.StreamEvent{Type: llm.EventDelta, Content: res.Response.RawText})
		}
		return res, nil
	}

	req, err := r.request(ctx, ex)
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("user", ex.RequestorID).
		Str("location", string(ex.Location)).
		Int("historyLen", len(ex.History)).
		Msg("processing exchange with streaming")

	ch, err := r.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	var (
		accumulated strings.Builder
		final       *llm.CompletionResponse
	)
	for evt := range ch {
		switch evt.Type {
		case llm.EventDelta:
			accumulated.WriteString(evt.Content)
			if cb != nil {
				cb(evt)
			}
		case llm.EventDone:
			final = evt.Response
		case llm.EventError:
			return nil, asGenerationError("", r.cfg.Model, evt.Error)
		}
	}
	if err := ctx.Err(); err != nil && final == nil {
		return nil, fmt.Errorf("stream interrupted: %w", err)
	}

	if final == nil {
		// Stream closed without a done event; fall back to the deltas.
		final = &llm.CompletionResponse{Content: accumulated.String(), Model: r.cfg.Model}
	} else if final.Content == "" {
		final.Content = accumulated.String()
	}

	r.log.Info().
		Str("model", final.Model).
		Int("inputTokens", final.Usage.InputTokens).
		Int("outputTokens", final.Usage.OutputTokens).
		Dur("duration", time.Since(start)).
		Msg("streaming response generated")

	return &RunResult{
		Response: r.post.Process(ctx, final.Content),
		Model:    final.Model,
		Usage:    final.Usage,
		Duration: time.Since(start),
	}, nil
}
