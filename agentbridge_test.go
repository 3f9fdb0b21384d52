package agentbridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/internal/testutil"
	"github.com/hupe1980/agentbridge/model"
)

func TestAgentBridge_RoundTrip(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.Script(
		`{"response": "Hi! How can I help?", "tool_call": null}`,
		`{"response": "Still here.", "tool_call": null}`,
	)

	bridge := New(llm, testutil.NewScriptedToolManager())

	result, err := bridge.Process(context.Background(), "", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Hi! How can I help?", result.Response)
	require.NotEmpty(t, result.ConversationID)

	second, err := bridge.Process(context.Background(), result.ConversationID, "are you there?")
	require.NoError(t, err)
	assert.Equal(t, result.ConversationID, second.ConversationID)

	conv, err := bridge.GetConversation(result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 4, conv.Len())

	require.NoError(t, bridge.DeleteConversation(result.ConversationID))
	_, err = bridge.GetConversation(result.ConversationID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAgentBridge_OptionOverrides(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	llm.Script(`{"response": "", "tool_call": {"name": "missing", "parameters": {}}}`)

	bridge := New(llm, testutil.NewScriptedToolManager(), func(o *Options) {
		o.MaxToolRounds = 1
		o.Instructions = "You are a terse assistant."
	})

	result, err := bridge.Process(context.Background(), "", "do something")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Rounds)

	reqs := llm.Requests()
	require.NotEmpty(t, reqs)
	assert.Contains(t, reqs[0].Instructions, "You are a terse assistant.")
}
