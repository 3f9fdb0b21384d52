package core

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author category of a Turn.
type Role string

const (
	// RoleUser marks a turn carrying raw user input.
	RoleUser Role = "user"
	// RoleAssistant marks a turn carrying the assistant's reply text.
	RoleAssistant Role = "assistant"
	// RoleToolCall marks a turn recording a tool invocation request
	// extracted from a model completion.
	RoleToolCall Role = "tool_call"
	// RoleToolResult marks a turn recording the outcome of the
	// immediately preceding tool call.
	RoleToolResult Role = "tool_result"
)

// Turn is one atomic contribution to a conversation. After creation it must
// be treated as immutable; the conversation history is append-only and
// reflects strict chronological causality.
//
// Content holds the textual payload for user/assistant turns. ToolName plus
// Arguments describe a tool_call turn; ToolName plus Result/Error describe a
// tool_result turn. A failed tool execution is represented as data (Error
// set) rather than as an orchestration failure.
type Turn struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content,omitempty"`
	ToolName  string         `json:"tool_name,omitempty"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    any            `json:"result,omitempty"`
	Error     string         `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewTurn creates a bare turn with the given role. Prefer the role-specific
// constructors for common cases.
func NewTurn(role Role) Turn {
	return Turn{ID: NewID(), Role: role, Timestamp: time.Now().UTC()}
}

// NewUserTurn creates a turn carrying user input text.
func NewUserTurn(content string) Turn {
	t := NewTurn(RoleUser)
	t.Content = content
	return t
}

// NewAssistantTurn creates a turn carrying the assistant's reply text.
func NewAssistantTurn(content string) Turn {
	t := NewTurn(RoleAssistant)
	t.Content = content
	return t
}

// NewToolCallTurn records a directive the model emitted: the named tool is
// to be invoked with the given arguments.
func NewToolCallTurn(directive ToolCallDirective) Turn {
	t := NewTurn(RoleToolCall)
	t.ToolName = directive.Name
	t.Arguments = directive.Arguments
	return t
}

// NewToolResultTurn records the outcome of a previously recorded tool call.
// Failed outcomes carry their error message in the turn so the model sees
// what went wrong on the next generation round.
func NewToolResultTurn(toolName string, outcome ToolOutcome) Turn {
	t := NewTurn(RoleToolResult)
	t.ToolName = toolName
	t.Result = outcome.Result
	if outcome.Err != nil {
		t.Error = outcome.Err.Error()
	}
	return t
}

// IsToolTurn reports whether the turn is part of a tool_call/tool_result pair.
func (t Turn) IsToolTurn() bool {
	return t.Role == RoleToolCall || t.Role == RoleToolResult
}

// NewID generates a new unique identifier for turns and conversations.
func NewID() string { return uuid.NewString() }

// WindowTurns returns the trailing window of at most max turns, oldest-first,
// for prompt assembly. The boundary never splits a tool_call/tool_result
// pair: if the cut would land on a tool_result whose call falls outside the
// window, the window is extended backward to include the matching call.
// A max <= 0 returns the full sequence.
func WindowTurns(turns []Turn, max int) []Turn {
	if max <= 0 || len(turns) <= max {
		return turns
	}
	start := len(turns) - max
	for start > 0 && turns[start].Role == RoleToolResult {
		start--
	}
	return turns[start:]
}
