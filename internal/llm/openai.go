package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient is a direct HTTP client for the OpenAI Responses API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a Responses API client. An empty baseURL uses
// the public endpoint.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// Complete sends a non-streaming request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.do(ctx, req, false)
	if err != nil {
		return nil, generationError(c.Name(), req.Model, err)
	}
	defer resp.Body.Close()

	var result openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, generationError(c.Name(), req.Model, fmt.Errorf("parse response: %w", err))
	}
	if result.Error != nil {
		return nil, generationError(c.Name(), req.Model,
			&ProviderError{Provider: c.Name(), Message: result.Error.Message})
	}

	out := result.toCompletion()
	out.Duration = time.Since(start)
	return out, nil
}

// Stream sends a streaming request. Deltas are forwarded as they arrive;
// the done event carries the text from response.completed.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	resp, err := c.do(ctx, req, true)
	if err != nil {
		return nil, generationError(c.Name(), req.Model, err)
	}

	events := make(chan StreamEvent)
	go c.readStream(ctx, req.Model, resp.Body, events)
	return events, nil
}

func (c *OpenAIClient) do(ctx context.Context, req CompletionRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(c.buildRequestBody(req, stream))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{Provider: c.Name(), Message: apiErrorMessage(body), Code: resp.StatusCode}
	}
	return resp, nil
}

func (c *OpenAIClient) buildRequestBody(req CompletionRequest, stream bool) map[string]any {
	body := map[string]any{
		"model": req.Model,
		"input": req.Input,
		"store": req.Store,
	}
	if req.MaxTokens > 0 {
		body["max_output_tokens"] = req.MaxTokens
	}
	if req.Temperature != nil {
		body["temperature"] = *req.Temperature
	}
	if len(req.Metadata) > 0 {
		body["metadata"] = req.Metadata
	}
	if stream {
		body["stream"] = true
	}
	return body
}

func (c *OpenAIClient) readStream(ctx context.Context, model string, body io.ReadCloser, events chan<- StreamEvent) {
	defer close(events)
	defer body.Close()

	send := func(evt StreamEvent) bool {
		select {
		case events <- evt:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var (
		accumulated strings.Builder
		doneText    string
		final       *CompletionResponse
	)

	scanner := newServerSentEventScanner(body)
	for scanner.Next() {
		data := scanner.Data()
		if data == "[DONE]" {
			break
		}

		var evt openAIStreamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			continue
		}

		switch evt.Type {
		case "response.output_text.delta":
			accumulated.WriteString(evt.Delta)
			if !send(StreamEvent{Type: EventDelta, Content: evt.Delta}) {
				return
			}
		case "response.output_text.done":
			doneText += evt.Text
		case "response.completed":
			if evt.Response != nil {
				final = evt.Response.toCompletion()
			}
		case "response.failed", "response.incomplete":
			msg := evt.Type
			if evt.Response != nil && evt.Response.Error != nil {
				msg = evt.Response.Error.Message
			}
			send(ErrorEvent(c.Name(), model, &ProviderError{Provider: c.Name(), Message: msg}))
			return
		case "error":
			send(ErrorEvent(c.Name(), model, &ProviderError{Provider: c.Name(), Message: evt.Message}))
			return
		}
	}
	if err := scanner.Err(); err != nil {
		send(ErrorEvent(c.Name(), model, fmt.Errorf("read stream: %w", err)))
		return
	}

	if final == nil {
		final = &CompletionResponse{Model: model}
	}
	switch {
	case final.Content != "":
	case doneText != "":
		final.Content = doneText
	default:
		final.Content = accumulated.String()
	}
	send(StreamEvent{Type: EventDone, Response: final})
}

func apiErrorMessage(body []byte) string {
	var wrapped struct {
		Error *openAIError `json:"error"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
		return wrapped.Error.Message
	}
	return strings.TrimSpace(string(body))
}

// API structures

type openAIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type openAIResponse struct {
	ID     string             `json:"id"`
	Model  string             `json:"model"`
	Status string             `json:"status"`
	Output []openAIOutputItem `json:"output"`
	Usage  struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *openAIError `json:"error"`
}

type openAIOutputItem struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

func (r *openAIResponse) toCompletion() *CompletionResponse {
	var text strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == ContentOutputText {
				text.WriteString(part.Text)
			}
		}
	}
	return &CompletionResponse{
		ID:      r.ID,
		Content: text.String(),
		Model:   r.Model,
		Usage: Usage{
			InputTokens:  r.Usage.InputTokens,
			OutputTokens: r.Usage.OutputTokens,
		},
	}
}

type openAIStreamEvent struct {
	Type     string          `json:"type"`
	Delta    string          `json:"delta,omitempty"`
	Text     string          `json:"text,omitempty"`
	Message  string          `json:"message,omitempty"`
	Response *openAIResponse `json:"response,omitempty"`
}
