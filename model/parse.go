package model

import (
	"regexp"
	"strings"

	"github.com/hupe1980/agentbridge/core"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Completion is the parsed form of a raw model response: free text plus zero
// or more tool-call directives. Models are instructed to answer with a JSON
// envelope:
//
//	{"response": "<text>", "tool_call": {"name": "...", "parameters": {...}} | null}
//
// A "tool_calls" array form is accepted for multi-call completions. The
// parse is fallible by design: output that merely looks like a tool call but
// cannot be decoded degrades to plain text with Malformed set, never to a
// dropped completion.
type Completion struct {
	Text       string
	Directives []core.ToolCallDirective
	// Malformed marks tool-call-looking output that failed to decode and
	// was kept as plain text. Logged by callers, not fatal.
	Malformed bool
}

// envelope mirrors the JSON response contract the model is instructed to use.
type envelope struct {
	Response  string                   `json:"response"`
	ToolCall  *core.ToolCallDirective  `json:"tool_call"`
	ToolCalls []core.ToolCallDirective `json:"tool_calls"`

	hasResponse bool
}

func (e envelope) directives() []core.ToolCallDirective {
	if len(e.ToolCalls) > 0 {
		return e.ToolCalls
	}
	if e.ToolCall != nil && e.ToolCall.Name != "" {
		return []core.ToolCallDirective{*e.ToolCall}
	}
	return nil
}

var (
	fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	// Matches top-level JSON objects with two levels of nesting, enough
	// for the envelope's tool_call object and its parameter map.
	jsonObjectRe = regexp.MustCompile(`\{(?:[^{}]|(?:\{(?:[^{}]|(?:\{[^{}]*\}))*\}))*\}`)
)

// ParseCompletion extracts free text and tool-call directives from a raw
// completion. It tries, in order: the whole output as a JSON envelope, the
// first fenced code block, each embedded JSON object carrying a tool call,
// and finally the outermost brace slice with single-quote normalization.
// Anything that defeats all stages is returned as plain text.
func ParseCompletion(raw string) Completion {
	text := strings.TrimSpace(raw)

	// Whole output is the JSON envelope.
	if env, ok := decodeEnvelope(text); ok {
		return Completion{Text: strings.TrimSpace(env.Response), Directives: env.directives()}
	}

	// Envelope wrapped in a markdown code fence.
	if m := fencedBlockRe.FindStringSubmatch(text); m != nil {
		if env, ok := decodeEnvelope(m[1]); ok {
			return Completion{Text: strings.TrimSpace(env.Response), Directives: env.directives()}
		}
	}

	// Envelope embedded somewhere in surrounding prose. Only accepted when
	// it carries a directive; plain prose containing braces stays text.
	for _, candidate := range jsonObjectRe.FindAllString(text, -1) {
		env, ok := decodeEnvelope(candidate)
		if !ok || len(env.directives()) == 0 {
			continue
		}
		return Completion{Text: embeddedText(env, text, candidate), Directives: env.directives()}
	}

	// Last resort: outermost braces, tolerating single-quoted pseudo-JSON.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidate := strings.ReplaceAll(text[start:end+1], "'", `"`)
		if env, ok := decodeEnvelope(candidate); ok && len(env.directives()) > 0 {
			if !env.hasResponse {
				env.Response = text[:start] + text[end+1:]
			}
			return Completion{Text: strings.TrimSpace(env.Response), Directives: env.directives()}
		}
	}

	return Completion{
		Text:      text,
		Malformed: strings.Contains(text, "tool_call") && strings.Contains(text, "{"),
	}
}

// embeddedText resolves the reply text when the envelope was found inside
// surrounding prose: the envelope's own response wins, otherwise the
// envelope is stripped from the prose.
func embeddedText(env envelope, text, candidate string) string {
	if env.hasResponse {
		return strings.TrimSpace(env.Response)
	}
	return strings.TrimSpace(strings.Replace(text, candidate, "", 1))
}

// decodeEnvelope reports whether raw is a JSON object in the agreed envelope
// shape. The object must carry at least one of the contract keys; arbitrary
// JSON objects are not completions.
func decodeEnvelope(raw string) (envelope, bool) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "{") {
		return envelope{}, false
	}

	var keys map[string]jsoniter.RawMessage
	if err := json.UnmarshalFromString(raw, &keys); err != nil {
		return envelope{}, false
	}
	_, hasResponse := keys["response"]
	_, hasCall := keys["tool_call"]
	_, hasCalls := keys["tool_calls"]
	if !hasResponse && !hasCall && !hasCalls {
		return envelope{}, false
	}

	var env envelope
	if err := json.UnmarshalFromString(raw, &env); err != nil {
		return envelope{}, false
	}
	env.hasResponse = hasResponse
	return env, true
}
