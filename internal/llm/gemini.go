package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient serves gemini-* models through the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a Gemini API client. An empty baseURL uses the
// SDK default endpoint.
func NewGeminiClient(ctx context.Context, apiKey, baseURL string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Name returns the provider name.
func (g *GeminiClient) Name() string {
	return "gemini"
}

// Complete sends a non-streaming request.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	contents, cfg := toGemini(req)

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, generationError(g.Name(), req.Model, err)
	}

	out := &CompletionResponse{
		Content:  resp.Text(),
		Model:    req.Model,
		Duration: time.Since(start),
	}
	if resp.UsageMetadata != nil {
		out.Usage = Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// Stream sends a streaming request. The done event carries the
// concatenation of all chunks, which is the complete text for Gemini.
func (g *GeminiClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	contents, cfg := toGemini(req)
	events := make(chan StreamEvent)

	go func() {
		defer close(events)
		send := func(evt StreamEvent) bool {
			select {
			case events <- evt:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var full strings.Builder
		final := &CompletionResponse{Model: req.Model}
		for chunk, err := range g.client.Models.GenerateContentStream(ctx, req.Model, contents, cfg) {
			if err != nil {
				send(ErrorEvent(g.Name(), req.Model, err))
				return
			}
			text := chunk.Text()
			if chunk.UsageMetadata != nil {
				final.Usage = Usage{
					InputTokens:  int(chunk.UsageMetadata.PromptTokenCount),
					OutputTokens: int(chunk.UsageMetadata.CandidatesTokenCount),
				}
			}
			if text == "" {
				continue
			}
			full.WriteString(text)
			if !send(StreamEvent{Type: EventDelta, Content: text}) {
				return
			}
		}
		final.Content = full.String()
		send(StreamEvent{Type: EventDone, Response: final})
	}()

	return events, nil
}

// toGemini maps the role-tagged input list onto Gemini contents. Developer
// entries become the system instruction.
func toGemini(req CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, item := range req.Input {
		if item.Role == RoleDeveloper {
			system = append(system, item.Text())
			continue
		}

		role := genai.Role(genai.RoleUser)
		if item.Role == RoleAssistant {
			role = genai.RoleModel
		}

		var parts []*genai.Part
		for _, p := range item.Content {
			switch p.Type {
			case ContentInputText, ContentOutputText:
				parts = append(parts, genai.NewPartFromText(p.Text))
			case ContentInputImage:
				if data, mime, ok := decodeDataURL(p.ImageURL); ok {
					parts = append(parts, genai.NewPartFromBytes(data, mime))
				}
			}
		}
		if len(parts) > 0 {
			contents = append(contents, genai.NewContentFromParts(parts, role))
		}
	}

	cfg := &genai.GenerateContentConfig{}
	if len(system) > 0 {
		cfg.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	return contents, cfg
}

// decodeDataURL splits a base64 data URL into bytes and MIME type.
func decodeDataURL(u string) ([]byte, string, bool) {
	rest, ok := strings.CutPrefix(u, "data:")
	if !ok {
		return nil, "", false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", false
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", false
	}
	return data, mime, true
}
