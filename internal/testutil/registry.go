package testutil

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/hupe1980/agentbridge/core"
)

// FakeRegistry is an httptest-backed stand-in for the tool manager service.
// Tools are registered with a descriptor and a handler function; lookup
// returns all registered descriptors, execution dispatches to the handler.
type FakeRegistry struct {
	mu       sync.Mutex
	tools    []core.ToolDescriptor
	handlers map[string]func(args map[string]any) (any, error)
	server   *httptest.Server

	LookupCalls  int
	ExecuteCalls int
	// LookupStatus forces a non-200 lookup response when set.
	LookupStatus int
}

// NewFakeRegistry starts the fake registry server. Callers must Close it.
func NewFakeRegistry() *FakeRegistry {
	r := &FakeRegistry{handlers: make(map[string]func(args map[string]any) (any, error))}
	mux := http.NewServeMux()
	mux.HandleFunc("/tool_lookup", r.handleLookup)
	mux.HandleFunc("/tool_usage", r.handleExecute)
	r.server = httptest.NewServer(mux)
	return r
}

// URL returns the registry base URL.
func (r *FakeRegistry) URL() string { return r.server.URL }

// Close shuts the underlying server down.
func (r *FakeRegistry) Close() { r.server.Close() }

// Register adds a tool with its execution handler.
func (r *FakeRegistry) Register(desc core.ToolDescriptor, handler func(args map[string]any) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools = append(r.tools, desc)
	r.handlers[desc.Name] = handler
}

func (r *FakeRegistry) handleLookup(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.LookupCalls++
	if r.LookupStatus != 0 {
		w.WriteHeader(r.LookupStatus)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"tools": r.tools})
}

func (r *FakeRegistry) handleExecute(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ExecuteCalls++

	var body struct {
		ToolCall core.ToolCallDirective `json:"tool_call"`
	}
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handler, ok := r.handlers[body.ToolCall.Name]
	if !ok {
		http.Error(w, "tool not found", http.StatusNotFound)
		return
	}

	result, err := handler(body.ToolCall.Arguments)
	resp := map[string]any{"result": result}
	if err != nil {
		resp = map[string]any{"result": nil, "error": err.Error()}
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// ScriptedToolManager is an in-process core.ToolManager for orchestrator
// tests. Lookup returns the configured descriptors; Execute dispatches to
// per-tool outcome functions and records directives in call order.
type ScriptedToolManager struct {
	mu          sync.Mutex
	Descriptors []core.ToolDescriptor
	Outcomes    map[string]func(directive core.ToolCallDirective) core.ToolOutcome
	// LookupErr, when set, is returned by Lookup as-is.
	LookupErr error

	Executed []core.ToolCallDirective
}

// NewScriptedToolManager creates an empty scripted tool manager.
func NewScriptedToolManager() *ScriptedToolManager {
	return &ScriptedToolManager{Outcomes: make(map[string]func(core.ToolCallDirective) core.ToolOutcome)}
}

// Lookup implements core.ToolManager.
func (s *ScriptedToolManager) Lookup(ctx context.Context, query string, topK int) ([]core.ToolDescriptor, error) {
	if s.LookupErr != nil {
		return nil, s.LookupErr
	}
	tools := s.Descriptors
	if topK > 0 && len(tools) > topK {
		tools = tools[:topK]
	}
	return tools, nil
}

// Execute implements core.ToolManager.
func (s *ScriptedToolManager) Execute(ctx context.Context, directive core.ToolCallDirective) (core.ToolOutcome, error) {
	if err := ctx.Err(); err != nil {
		return core.ToolOutcome{}, err
	}
	s.mu.Lock()
	s.Executed = append(s.Executed, directive)
	fn := s.Outcomes[directive.Name]
	s.mu.Unlock()

	if fn == nil {
		return core.ToolOutcome{Err: core.NewToolError(core.FailureToolNotFound, "tool not found: "+directive.Name)}, nil
	}
	return fn(directive), nil
}
