package model

import (
	"context"
	"fmt"
	"sync"
)

// Request captures the normalized input for one completion.
type Request struct {
	// Instructions is the system-level behavior description for the agent.
	Instructions string `json:"instructions,omitempty"`
	// Input is the user-facing prompt, already containing any prior-output
	// context the invoker injected.
	Input string `json:"input"`
}

// Response is the completed text plus provenance.
type Response struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", ...
}

// Model is the minimal interface the invoker needs to drive generation.
type Model interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// ModelFunc adapts a plain completion function to the Model interface.
type ModelFunc func(ctx context.Context, req Request) (Response, error)

// Complete implements Model.
func (f ModelFunc) Complete(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Info implements Model.
func (f ModelFunc) Info() Info { return Info{Name: "func", Provider: "func"} }

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses are keyed by exact input; unmatched inputs receive a generated
// echo response. Safe for concurrent use.
type MockModel struct {
	mu        sync.RWMutex
	info      Info
	responses map[string]string
	err       error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: "mock"},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input.
func (m *MockModel) AddResponse(input, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = response
}

// FailWith makes every subsequent Complete call return err.
func (m *MockModel) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return Response{}, m.err
	}
	text, ok := m.responses[req.Input]
	if !ok {
		text = fmt.Sprintf("Mock response to: %s", req.Input)
	}
	return Response{Text: text, Model: m.info.Name}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
