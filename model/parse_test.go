package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompletion_DirectEnvelope(t *testing.T) {
	c := ParseCompletion(`{"response": "I'll check that for you", "tool_call": {"name": "uppercase", "parameters": {"text": "hello world", "mode": "upper"}}}`)

	assert.Equal(t, "I'll check that for you", c.Text)
	require.Len(t, c.Directives, 1)
	assert.Equal(t, "uppercase", c.Directives[0].Name)
	assert.Equal(t, "hello world", c.Directives[0].Arguments["text"])
	assert.False(t, c.Malformed)
}

func TestParseCompletion_NullToolCall(t *testing.T) {
	c := ParseCompletion(`{"response": "just chatting", "tool_call": null}`)

	assert.Equal(t, "just chatting", c.Text)
	assert.Empty(t, c.Directives)
	assert.False(t, c.Malformed)
}

func TestParseCompletion_ToolCallsArray(t *testing.T) {
	c := ParseCompletion(`{"response": "running both", "tool_calls": [{"name": "uppercase", "parameters": {"text": "a"}}, {"name": "reverse", "parameters": {"text": "b"}}]}`)

	require.Len(t, c.Directives, 2)
	assert.Equal(t, "uppercase", c.Directives[0].Name)
	assert.Equal(t, "reverse", c.Directives[1].Name)
}

func TestParseCompletion_FencedBlock(t *testing.T) {
	raw := "Here you go:\n```json\n{\"response\": \"done\", \"tool_call\": {\"name\": \"uppercase\", \"parameters\": {\"text\": \"hi\"}}}\n```"
	c := ParseCompletion(raw)

	assert.Equal(t, "done", c.Text)
	require.Len(t, c.Directives, 1)
	assert.Equal(t, "uppercase", c.Directives[0].Name)
}

func TestParseCompletion_EmbeddedObject(t *testing.T) {
	raw := `Let me run that. {"tool_call": {"name": "uppercase", "parameters": {"text": "hi"}}} One moment.`
	c := ParseCompletion(raw)

	require.Len(t, c.Directives, 1)
	assert.Equal(t, "uppercase", c.Directives[0].Name)
	// Envelope without a response field: the object is stripped from the prose.
	assert.Contains(t, c.Text, "Let me run that.")
	assert.NotContains(t, c.Text, "tool_call")
}

func TestParseCompletion_SingleQuoteFallback(t *testing.T) {
	raw := `{'response': 'checking', 'tool_call': {'name': 'uppercase', 'parameters': {'text': 'hi'}}}`
	c := ParseCompletion(raw)

	require.Len(t, c.Directives, 1)
	assert.Equal(t, "uppercase", c.Directives[0].Name)
	assert.Equal(t, "checking", c.Text)
}

func TestParseCompletion_PlainText(t *testing.T) {
	c := ParseCompletion("The answer is 42.")

	assert.Equal(t, "The answer is 42.", c.Text)
	assert.Empty(t, c.Directives)
	assert.False(t, c.Malformed)
}

func TestParseCompletion_MalformedToolCall(t *testing.T) {
	raw := `{"response": "oops", "tool_call": {"name": "uppercase", "parameters": {broken`
	c := ParseCompletion(raw)

	// Unparseable tool-call-looking output degrades to plain text, flagged
	// so callers can log it, and the model's output is never lost.
	assert.Empty(t, c.Directives)
	assert.Equal(t, raw, c.Text)
	assert.True(t, c.Malformed)
}

func TestParseCompletion_ProseWithBracesStaysText(t *testing.T) {
	raw := `In Go, a struct literal looks like Point{X: 1, Y: 2}.`
	c := ParseCompletion(raw)

	assert.Empty(t, c.Directives)
	assert.Equal(t, raw, c.Text)
	assert.False(t, c.Malformed)
}

func TestParseCompletion_DirectiveWithoutName(t *testing.T) {
	c := ParseCompletion(`{"response": "hm", "tool_call": {"parameters": {"text": "hi"}}}`)

	assert.Empty(t, c.Directives, "nameless directives are not executable")
	assert.Equal(t, "hm", c.Text)
}
