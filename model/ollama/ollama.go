// Package ollama provides an implementation of model.Model speaking the
// chat API of a local Ollama inference engine. It adapts AgentBridge's
// normalized Request/Response structures into the Ollama SDK's message
// format and back. The adapter is strictly non-streaming: one prompt in,
// one complete response out.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hupe1980/agentbridge/model"
	"github.com/ollama/ollama/api"
)

// Options configure the Ollama model adapter.
type Options struct {
	Model       string
	Temperature float64
	// Timeout bounds the whole completion call. Local models can be slow
	// to load on first use; keep this generous.
	Timeout time.Duration
}

// Model wraps the Ollama chat API behind the generic model.Model interface.
type Model struct {
	client *api.Client
	opts   Options
}

// NewModel creates a new Ollama model talking to the given base URL
// (e.g. http://localhost:11434).
func NewModel(baseURL string, optFns ...func(o *Options)) (*Model, error) {
	opts := Options{
		Model:       "gemma3",
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	client := api.NewClient(u, &http.Client{Timeout: opts.Timeout})

	return &Model{client: client, opts: opts}, nil
}

// NewModelFromClient creates a new Ollama model from an existing client.
func NewModelFromClient(client *api.Client, optFns ...func(o *Options)) *Model {
	opts := Options{
		Model:       "gemma3",
		Temperature: 0.7,
		Timeout:     120 * time.Second,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Model{client: client, opts: opts}
}

// Complete implements model.Model. The system instructions are sent as a
// leading system message followed by the windowed history.
func (m *Model) Complete(ctx context.Context, req model.Request) (*model.Response, error) {
	messages := make([]api.Message, 0, len(req.Messages)+1)
	if req.Instructions != "" {
		messages = append(messages, api.Message{Role: "system", Content: req.Instructions})
	}
	for _, msg := range req.Messages {
		messages = append(messages, api.Message{Role: msg.Role, Content: msg.Content})
	}

	stream := false
	chatReq := &api.ChatRequest{
		Model:    m.opts.Model,
		Messages: messages,
		Stream:   &stream,
		Options:  map[string]any{"temperature": m.opts.Temperature},
	}

	var text strings.Builder
	var usage *model.TokenUsage
	err := m.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		text.WriteString(resp.Message.Content)
		if resp.Done {
			usage = &model.TokenUsage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama api error: %w", err)
	}

	return &model.Response{Text: text.String(), Model: m.opts.Model, Usage: usage}, nil
}

// Info implements the model.Model interface.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.opts.Model, Provider: "ollama"}
}
