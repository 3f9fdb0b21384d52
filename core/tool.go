package core

import (
	"context"
	"fmt"
)

// ToolDescriptor describes a remotely registered tool: its name, a natural
// language description shown to the model and a JSON-Schema-like parameter
// map. Descriptors are sourced from the tool manager per user request and
// are not persisted beyond the current orchestration pass.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolCallDirective is a parsed instruction, extracted from a model
// completion, to invoke a named tool with the given arguments. Zero or more
// directives may appear per completion.
type ToolCallDirective struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"parameters"`
}

// FailureCode categorizes tool execution failures so the model receives
// actionable detail through the tool_result turn.
type FailureCode string

const (
	// FailureToolNotFound indicates the registry does not know the tool.
	FailureToolNotFound FailureCode = "tool_not_found"
	// FailureInvalidArguments indicates the arguments were rejected.
	FailureInvalidArguments FailureCode = "invalid_arguments"
	// FailureExecution indicates the tool ran (or was dispatched) and failed.
	FailureExecution FailureCode = "execution_error"
)

// ToolError carries the failure reason for an unsuccessful tool execution.
type ToolError struct {
	Code    FailureCode `json:"code"`
	Message string      `json:"message"`
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool error [%s]: %s", e.Code, e.Message)
}

// NewToolError creates a ToolError with the given code and message.
func NewToolError(code FailureCode, message string) *ToolError {
	return &ToolError{Code: code, Message: message}
}

// ToolOutcome is the tagged result of one tool execution: either a success
// payload or a categorized error. A failed execution is data, not a fatal
// condition; the orchestrator records it and lets the model decide how to
// proceed.
type ToolOutcome struct {
	Result any        `json:"result,omitempty"`
	Err    *ToolError `json:"error,omitempty"`
}

// Failed reports whether the execution ended in an error outcome.
func (o ToolOutcome) Failed() bool { return o.Err != nil }

// ToolManager is the outbound contract to the external tool registry and
// execution service.
type ToolManager interface {
	// Lookup forwards a free-text query to the registry's semantic search
	// and returns up to topK descriptors in registry relevance order. An
	// empty result is valid. Transport failures wrap ErrUnavailable.
	Lookup(ctx context.Context, query string, topK int) ([]ToolDescriptor, error)

	// Execute runs a single directive against the registry's execution
	// endpoint. Tool-level failures (unknown tool, bad arguments,
	// execution error) are reported inside the outcome; the error return
	// is reserved for context cancellation.
	Execute(ctx context.Context, directive ToolCallDirective) (ToolOutcome, error)
}
