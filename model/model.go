// Package model defines the normalized contract between the orchestrator and
// text-completion providers, plus the fallible parser that extracts tool-call
// directives from raw completions. Provider adapters live in sub-packages
// (ollama, openai, anthropic) and stay free of orchestration concerns: they
// send one assembled prompt and return one raw completion.
package model

import (
	"context"
	"fmt"
)

// Message is one role-tagged text segment of an assembled prompt.
// Role is "user" or "assistant"; system instructions travel separately in
// Request.Instructions. Tool calls and results are rendered into plain text
// by the orchestrator before they reach an adapter, so adapters never need
// provider-native function calling.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by the orchestrator:
// system instructions (including tool descriptors and the response format
// contract) plus the windowed conversation history, oldest-first.
type Request struct {
	Instructions string    `json:"instructions"`
	Messages     []Message `json:"messages"`
}

// TokenUsage captures token usage statistics for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the raw completion returned by a provider before any tool-call
// parsing. Text carries the model output verbatim.
type Response struct {
	Text  string      `json:"text"`
	Model string      `json:"model"`
	Usage *TokenUsage `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "ollama", "openai", "anthropic", ...
}

// Model is the minimal interface the orchestrator needs to drive generation.
// Complete sends one prompt and blocks for the full completion; errors cover
// transport and provider failures and abort the current turn upstream.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
// Responses can be keyed by the last message of the prompt or scripted as a
// fixed sequence consumed call by call; the script takes precedence.
type MockModel struct {
	info      Info
	responses map[string]string
	script    []string
	failErr   error
	calls     int
	requests  []Request
}

// NewMockModel constructs an empty MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input message.
func (m *MockModel) AddResponse(input, response string) { m.responses[input] = response }

// Script replaces the response sequence; each Complete call consumes one
// entry, the last entry repeats once the script is exhausted.
func (m *MockModel) Script(responses ...string) { m.script = responses }

// FailWith makes every subsequent Complete call return err.
func (m *MockModel) FailWith(err error) { m.failErr = err }

// Calls returns how many completions were requested.
func (m *MockModel) Calls() int { return m.calls }

// Requests returns the raw requests received, in call order.
func (m *MockModel) Requests() []Request { return m.requests }

// Complete implements Model.
func (m *MockModel) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.failErr != nil {
		return nil, m.failErr
	}
	m.requests = append(m.requests, req)
	idx := m.calls
	m.calls++

	if len(m.script) > 0 {
		if idx >= len(m.script) {
			idx = len(m.script) - 1
		}
		return &Response{Text: m.script[idx], Model: m.info.Name}, nil
	}

	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := req.Messages[len(req.Messages)-1].Content
	text := m.responses[last]
	if text == "" {
		text = fmt.Sprintf("Mock response to: %s", last)
	}
	return &Response{Text: text, Model: m.info.Name}, nil
}

// Info implements the Model interface.
func (m *MockModel) Info() Info { return m.info }
