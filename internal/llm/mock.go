package llm

import "context"

// MockClient is a test double for Client.
type MockClient struct {
	ProviderName string
	CompleteFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	StreamFunc   func(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error)
}

func (m *MockClient) Name() string { return m.ProviderName }

func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, req)
	}
	return &CompletionResponse{Content: "mock response", Model: req.Model}, nil
}

func (m *MockClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	return StreamOf("mock stream response", "mock ", "stream ", "response"), nil
}

// StreamOf returns a closed channel holding the given deltas followed by a
// done event with final as the authoritative text.
func StreamOf(final string, deltas ...string) <-chan StreamEvent {
	ch := make(chan StreamEvent, len(deltas)+1)
	for _, d := range deltas {
		ch <- StreamEvent{Type: EventDelta, Content: d}
	}
	ch <- StreamEvent{Type: EventDone, Response: &CompletionResponse{Content: final}}
	close(ch)
	return ch
}
