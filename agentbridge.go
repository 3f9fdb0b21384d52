// Package agentbridge provides a high-level façade over the orchestrator and
// its service abstractions (conversation store, tool manager, model &
// logging) enabling rapid construction of tool-using conversational agents.
// Most applications interact with this package by:
//  1. Creating an AgentBridge via New() with a model and a tool manager
//     (optionally overriding the default in-memory conversation store)
//  2. Calling Process() with user input, keeping the returned conversation
//     identifier for follow-up turns
//
// The façade delegates the generate/execute loop to orchestrator.Orchestrator
// while keeping setup and usage ergonomics concise. All defaults are safe for
// local development and testing; production deployments typically supply a
// durable conversation store and a structured logger.
package agentbridge

import (
	"context"

	"github.com/hupe1980/agentbridge/conversation"
	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/logging"
	"github.com/hupe1980/agentbridge/model"
	"github.com/hupe1980/agentbridge/orchestrator"
)

// Options configures the AgentBridge instance.
type Options struct {
	// Instructions is the base system prompt.
	Instructions string

	// MaxToolRounds caps generate/execute round trips per Process call.
	// Once reached, the last free text the model produced becomes the reply.
	MaxToolRounds int

	// ContextWindow is the maximum number of history turns sent to the
	// model per completion.
	ContextWindow int

	// LookupTopK bounds the number of tool descriptors retrieved per turn.
	LookupTopK int

	// ParallelToolCalls executes a completion's directives concurrently.
	ParallelToolCalls bool

	// ConversationStore (defaults to an in-memory implementation if not provided)
	ConversationStore core.ConversationStore

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// AgentBridge is the high-level façade aggregating the orchestrator and its services.
type AgentBridge struct {
	opts  Options
	store core.ConversationStore
	orch  *orchestrator.Orchestrator
}

// New creates a new AgentBridge instance with optional overrides. An unset
// conversation store is initialized with an in-memory implementation.
func New(llm model.Model, tools core.ToolManager, optFns ...func(o *Options)) *AgentBridge {
	opts := Options{
		Instructions:      orchestrator.DefaultInstructions,
		MaxToolRounds:     5,
		ContextWindow:     20,
		LookupTopK:        3,
		ConversationStore: conversation.NewInMemoryStore(),
		Logger:            logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	orch := orchestrator.New(opts.ConversationStore, tools, llm, func(o *orchestrator.Options) {
		o.Instructions = opts.Instructions
		o.MaxToolRounds = opts.MaxToolRounds
		o.ContextWindow = opts.ContextWindow
		o.LookupTopK = opts.LookupTopK
		o.ParallelToolCalls = opts.ParallelToolCalls
		o.Logger = opts.Logger
	})

	return &AgentBridge{opts: opts, store: opts.ConversationStore, orch: orch}
}

// Process runs one full exchange and returns the reply together with the
// conversation identifier. An empty conversationID starts a new conversation.
func (b *AgentBridge) Process(ctx context.Context, conversationID, userInput string) (*core.ProcessResult, error) {
	return b.orch.Process(ctx, conversationID, userInput)
}

// GetConversation returns a snapshot of the conversation with the given
// identifier, or core.ErrNotFound if it does not exist.
func (b *AgentBridge) GetConversation(id string) (*core.Conversation, error) {
	return b.store.Get(id)
}

// DeleteConversation removes the conversation with the given identifier, or
// returns core.ErrNotFound if it does not exist.
func (b *AgentBridge) DeleteConversation(id string) error {
	return b.store.Delete(id)
}
