package adapter

import (
	"context"
	"fmt"
	"sync"
)

// MockAdapter returns deterministic responses for local runs and tests.
type MockAdapter struct {
	responses       map[string]string
	defaultResponse string
	Usage           Usage

	mu    sync.Mutex
	calls []string
}

// NewMockAdapter creates a mock adapter with a default response.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		responses:       make(map[string]string),
		defaultResponse: "mock response:",
		Usage:           Usage{InputTokens: 1, OutputTokens: 2, TotalTokens: 3},
	}
}

// NewMockAdapterWithResponses creates a mock adapter with predefined responses.
func NewMockAdapterWithResponses(responses map[string]string, defaultResponse string) *MockAdapter {
	a := NewMockAdapter()
	if responses != nil {
		a.responses = responses
	}
	if defaultResponse != "" {
		a.defaultResponse = defaultResponse
	}
	return a
}

// Name returns the adapter identifier.
func (a *MockAdapter) Name() string {
	return "mock"
}

// Models returns the list of supported mock models.
func (a *MockAdapter) Models() []string {
	return []string{"mock-1"}
}

// Generate returns a canned response for known prompts and echoes the
// prompt otherwise.
func (a *MockAdapter) Generate(ctx context.Context, prompt string, opts Options) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AdapterError{Provider: a.Name(), Err: err}
	}

	a.mu.Lock()
	a.calls = append(a.calls, prompt)
	a.mu.Unlock()

	text, ok := a.responses[prompt]
	if !ok {
		text = fmt.Sprintf("%s\n%s", a.defaultResponse, prompt)
	}
	return &Response{
		Text:       text,
		Usage:      a.Usage,
		StopReason: "stop",
		Model:      opts.model("mock-1"),
	}, nil
}

// Calls returns the prompts received so far, in order.
func (a *MockAdapter) Calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	copy(out, a.calls)
	return out
}
