package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Request is a single-shot completion request. Instructions is sent as the
// system message; Prompt, when set, as the following user message.
type Request struct {
	Instructions string  `json:"instructions"`
	Prompt       string  `json:"prompt,omitempty"`
	Temperature  float64 `json:"temperature"`
	// MaxTokens caps the completion length; 0 uses the adapter default.
	MaxTokens int64 `json:"max_tokens,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the final completion.
type Response struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	FinishReason string      `json:"finish_reason"`
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// ErrEmptyRequest is returned for a request without any text.
var ErrEmptyRequest = errors.New("model: empty request")

// Model is the minimal interface required to generate answers.
type Model interface {
	Generate(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// It is safe for concurrent use.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	failures  []error
	calls     []Request
}

var _ Model = (*MockModel)(nil)

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for requests whose instructions
// contain exactly prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// FailNext makes the next len(errs) calls fail with errs in order.
func (m *MockModel) FailNext(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, errs...)
}

// Calls returns every request received so far, failed ones included.
func (m *MockModel) Calls() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Request(nil), m.calls...)
}

// Generate implements Model.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)
	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return nil, err
	}
	input := req.Instructions + req.Prompt
	if input == "" {
		return nil, ErrEmptyRequest
	}
	text, ok := m.responses[input]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", input)
	}
	return &Response{
		ID:           fmt.Sprintf("mock-%d", len(m.calls)),
		Text:         text,
		FinishReason: "stop",
		Usage:        &TokenUsage{PromptTokens: len(input), CompletionTokens: len(text), TotalTokens: len(input) + len(text)},
	}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
