package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbridge/conversation"
	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/internal/testutil"
	"github.com/hupe1980/agentbridge/model"
)

func upperEnvelope(text string) string {
	return fmt.Sprintf(`{"response": "", "tool_call": {"name": "to_upper", "parameters": {"text": %q}}}`, text)
}

func plainEnvelope(text string) string {
	return fmt.Sprintf(`{"response": %q, "tool_call": null}`, text)
}

func newUpperManager() *testutil.ScriptedToolManager {
	tm := testutil.NewScriptedToolManager()
	tm.Descriptors = []core.ToolDescriptor{{
		Name:        "to_upper",
		Description: "Uppercases the given text.",
		Parameters:  map[string]any{"text": map[string]any{"type": "string"}},
	}}
	tm.Outcomes["to_upper"] = func(d core.ToolCallDirective) core.ToolOutcome {
		text, _ := d.Arguments["text"].(string)
		return core.ToolOutcome{Result: strings.ToUpper(text)}
	}
	return tm
}

func TestProcess_PlainReply(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("Hello there!"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	result, err := orch.Process(context.Background(), "", "hi")
	require.NoError(t, err)

	assert.Equal(t, "Hello there!", result.Response)
	assert.Equal(t, 0, result.Rounds)
	assert.Equal(t, 1, llm.Calls())

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)

	turns := conv.GetTurns()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "hi", turns[0].Content)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hello there!", turns[1].Content)
}

func TestProcess_SingleToolRound(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(
		upperEnvelope("hello world"),
		plainEnvelope("The result is HELLO WORLD."),
	)

	orch := New(store, tm, llm)

	result, err := orch.Process(context.Background(), "", "uppercase hello world")
	require.NoError(t, err)

	assert.Equal(t, "The result is HELLO WORLD.", result.Response)
	assert.Equal(t, 1, result.Rounds)
	require.Len(t, tm.Executed, 1)
	assert.Equal(t, "to_upper", tm.Executed[0].Name)

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)

	// user + tool_call + tool_result + assistant
	turns := conv.GetTurns()
	require.Len(t, turns, 4)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleToolCall, turns[1].Role)
	assert.Equal(t, "to_upper", turns[1].ToolName)
	assert.Equal(t, core.RoleToolResult, turns[2].Role)
	assert.Equal(t, "HELLO WORLD", turns[2].Result)
	assert.Empty(t, turns[2].Error)
	assert.Equal(t, core.RoleAssistant, turns[3].Role)
}

func TestProcess_TurnCountFormula(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(
		upperEnvelope("one"),
		upperEnvelope("two"),
		upperEnvelope("three"),
		plainEnvelope("done"),
	)

	orch := New(store, tm, llm)

	result, err := orch.Process(context.Background(), "", "uppercase a few things")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Rounds)

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)
	// 1 user + 1 assistant + 2 per executed call.
	assert.Equal(t, 1+1+2*3, conv.Len())
}

func TestProcess_RoundCeiling(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(upperEnvelope("again")) // last entry repeats forever

	orch := New(store, tm, llm, func(o *Options) {
		o.MaxToolRounds = 2
	})

	result, err := orch.Process(context.Background(), "", "loop")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Rounds)
	assert.Len(t, tm.Executed, 2)
	// The model never produced free text, so the fallback reply is used
	// and the exchange still commits.
	assert.NotEmpty(t, result.Response)

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, 1+1+2*2, conv.Len())
}

func TestProcess_ToolFailureContinuesLoop(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	tm.Outcomes["broken"] = func(core.ToolCallDirective) core.ToolOutcome {
		return core.ToolOutcome{Err: core.NewToolError(core.FailureExecution, "backend exploded")}
	}
	llm := model.NewMockModel("mock", "mock")
	llm.Script(
		`{"response": "", "tool_call": {"name": "broken", "parameters": {}}}`,
		plainEnvelope("I could not use the tool, sorry."),
	)

	orch := New(store, tm, llm)

	result, err := orch.Process(context.Background(), "", "try the broken tool")
	require.NoError(t, err)

	assert.Equal(t, "I could not use the tool, sorry.", result.Response)
	assert.Equal(t, 1, result.Rounds)

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)
	turns := conv.GetTurns()
	require.Len(t, turns, 4)
	assert.Equal(t, core.RoleToolResult, turns[2].Role)
	assert.Contains(t, turns[2].Error, "backend exploded")
}

func TestProcess_MultipleDirectivesOneRound(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(
		`{"response": "", "tool_calls": [
			{"name": "to_upper", "parameters": {"text": "a"}},
			{"name": "to_upper", "parameters": {"text": "b"}}
		]}`,
		plainEnvelope("A and B."),
	)

	orch := New(store, tm, llm, func(o *Options) {
		o.ParallelToolCalls = true
	})

	result, err := orch.Process(context.Background(), "", "uppercase a and b")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Rounds)

	conv, err := store.Get(result.ConversationID)
	require.NoError(t, err)
	turns := conv.GetTurns()
	require.Len(t, turns, 6)

	// Pairs stay in the model's emission order regardless of execution
	// interleaving.
	assert.Equal(t, "a", turns[1].Arguments["text"])
	assert.Equal(t, "A", turns[2].Result)
	assert.Equal(t, "b", turns[3].Arguments["text"])
	assert.Equal(t, "B", turns[4].Result)
}

func TestProcess_EmptyInput(t *testing.T) {
	store := conversation.NewInMemoryStore()
	orch := New(store, testutil.NewScriptedToolManager(), model.NewMockModel("mock", "mock"))

	for _, input := range []string{"", "   ", "\n\t"} {
		_, err := orch.Process(context.Background(), "", input)
		assert.ErrorIs(t, err, core.ErrEmptyInput)
	}
}

func TestProcess_LookupFailureLeavesStoreUntouched(t *testing.T) {
	store := conversation.NewInMemoryStore()
	conv, err := store.Create("conv-1")
	require.NoError(t, err)

	tm := testutil.NewScriptedToolManager()
	tm.LookupErr = fmt.Errorf("%w: registry down", core.ErrUnavailable)

	orch := New(store, tm, model.NewMockModel("mock", "mock"))

	_, err = orch.Process(context.Background(), conv.ID, "hi")
	require.ErrorIs(t, err, core.ErrUnavailable)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestProcess_CompletionFailureLeavesStoreUntouched(t *testing.T) {
	store := conversation.NewInMemoryStore()
	conv, err := store.Create("conv-1")
	require.NoError(t, err)

	llm := model.NewMockModel("mock", "mock")
	llm.FailWith(errors.New("connection refused"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	_, err = orch.Process(context.Background(), conv.ID, "hi")
	require.ErrorIs(t, err, core.ErrUnavailable)

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestProcess_UnknownIDCreatesConversation(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("hello"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	result, err := orch.Process(context.Background(), "brand-new-id", "hi")
	require.NoError(t, err)
	assert.Equal(t, "brand-new-id", result.ConversationID)

	conv, err := store.Get("brand-new-id")
	require.NoError(t, err)
	assert.Equal(t, 2, conv.Len())
}

func TestProcess_HistoryAccumulatesAcrossCalls(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("first"), plainEnvelope("second"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	first, err := orch.Process(context.Background(), "", "one")
	require.NoError(t, err)

	second, err := orch.Process(context.Background(), first.ConversationID, "two")
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv, err := store.Get(first.ConversationID)
	require.NoError(t, err)

	turns := conv.GetTurns()
	require.Len(t, turns, 4)
	assert.Equal(t, "one", turns[0].Content)
	assert.Equal(t, "first", turns[1].Content)
	assert.Equal(t, "two", turns[2].Content)
	assert.Equal(t, "second", turns[3].Content)

	// The second prompt includes the first exchange.
	reqs := llm.Requests()
	require.Len(t, reqs, 2)
	assert.Len(t, reqs[1].Messages, 3)
}

func TestProcess_MalformedCompletionBecomesReply(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	raw := `Let me call {"tool_call": {"name": "to_upper", "parameters": {`
	llm.Script(raw)

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	result, err := orch.Process(context.Background(), "", "hi")
	require.NoError(t, err)

	assert.Equal(t, raw, result.Response)
	assert.Equal(t, 0, result.Rounds)
}

func TestProcess_SameConversationSerializes(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("ok"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	conv, err := store.Create("shared")
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orch.Process(context.Background(), conv.ID, fmt.Sprintf("msg %d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := store.Get(conv.ID)
	require.NoError(t, err)
	// Every exchange committed exactly its own user+assistant pair.
	assert.Equal(t, 2*n, got.Len())
}

func TestProcess_ContextCanceled(t *testing.T) {
	store := conversation.NewInMemoryStore()
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("never"))

	orch := New(store, testutil.NewScriptedToolManager(), llm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.Process(ctx, "", "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_LookupQueryAndTopK(t *testing.T) {
	store := conversation.NewInMemoryStore()
	tm := newUpperManager()
	tm.Descriptors = append(tm.Descriptors,
		core.ToolDescriptor{Name: "b"},
		core.ToolDescriptor{Name: "c"},
		core.ToolDescriptor{Name: "d"},
	)
	llm := model.NewMockModel("mock", "mock")
	llm.Script(plainEnvelope("ok"))

	orch := New(store, tm, llm, func(o *Options) {
		o.LookupTopK = 2
	})

	_, err := orch.Process(context.Background(), "", "hi")
	require.NoError(t, err)

	reqs := llm.Requests()
	require.Len(t, reqs, 1)
	assert.Contains(t, reqs[0].Instructions, "to_upper")
	assert.NotContains(t, reqs[0].Instructions, `"d"`)
}
