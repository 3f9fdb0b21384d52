package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/logging"
	"github.com/hupe1980/agentbridge/model"
)

// fallbackReply is used when the round ceiling is reached before the model
// ever produced free text.
const fallbackReply = "I wasn't able to finish answering with the tools available. Please try rephrasing your request."

// Options configure an Orchestrator instance.
type Options struct {
	// Instructions is the base system prompt; tool descriptors and the
	// response format contract are appended per request.
	Instructions string
	// MaxToolRounds caps generate/execute round trips per process call.
	MaxToolRounds int
	// ContextWindow is the maximum number of turns included in a prompt.
	// The window never splits a tool_call/tool_result pair.
	ContextWindow int
	// LookupTopK bounds the number of tool descriptors requested per turn.
	LookupTopK int
	// ParallelToolCalls executes independent directives of one completion
	// concurrently. Committed order is unaffected: tool_call/tool_result
	// turns are always appended in the model's emission order.
	ParallelToolCalls bool
	Logger            logging.Logger
}

// Orchestrator drives the turn loop between the conversation store, the
// tool manager and the model. Public methods are safe for concurrent use;
// calls on the same conversation identifier serialize.
type Orchestrator struct {
	store  core.ConversationStore
	tools  core.ToolManager
	llm    model.Model
	opts   Options
	logger logging.Logger
	locks  *keyedMutex
}

// New constructs an Orchestrator with optional overrides.
func New(store core.ConversationStore, tools core.ToolManager, llm model.Model, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Instructions:  DefaultInstructions,
		MaxToolRounds: 5,
		ContextWindow: 20,
		LookupTopK:    3,
		Logger:        logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Orchestrator{
		store:  store,
		tools:  tools,
		llm:    llm,
		opts:   opts,
		logger: opts.Logger,
		locks:  newKeyedMutex(),
	}
}

// Process runs one full exchange: the user input is answered with a reply,
// executing tools as the model requests them. An empty conversationID
// creates a new conversation; its identifier is reported in the result.
//
// Turns produced during the exchange become visible in the store only after
// the exchange succeeds, as one atomic append. Lookup or completion
// failures abort with an error wrapping core.ErrUnavailable and leave the
// conversation unmodified; individual tool failures are recorded as
// tool_result data and do not abort.
func (o *Orchestrator) Process(ctx context.Context, conversationID, userInput string) (*core.ProcessResult, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, core.ErrEmptyInput
	}

	// START: resolve the conversation. Unknown supplied identifiers are
	// created rather than rejected; only get/delete are strict.
	conv, err := o.store.Create(conversationID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	unlock := o.locks.Lock(conv.ID)
	defer unlock()

	// Re-read under the lock so a concurrently committed exchange is part
	// of this turn's history.
	conv, err = o.store.Get(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve conversation: %w", err)
	}

	logger := o.logger
	logger.Info("processing input", "conversation_id", conv.ID, "input_len", len(userInput))

	// LOOKUP: seed tool descriptors for this exchange. An empty result is
	// fine; a failed lookup aborts so the model never generates with a
	// silently wrong picture of tool availability.
	descriptors, err := o.tools.Lookup(ctx, userInput, o.opts.LookupTopK)
	if err != nil {
		return nil, fmt.Errorf("tool lookup: %w", err)
	}

	history := conv.GetTurns()
	pending := []core.Turn{core.NewUserTurn(userInput)}
	limiter := core.NewRoundLimiter(o.opts.MaxToolRounds)

	var reply, lastText string
	rounds := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// GENERATE
		req := o.buildRequest(descriptors, append(history, pending...))
		start := time.Now()
		resp, err := o.llm.Complete(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("%w: completion: %v", core.ErrUnavailable, err)
		}
		logger.Debug("completion received",
			"conversation_id", conv.ID,
			"model", o.llm.Info().Name,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		completion := model.ParseCompletion(resp.Text)
		if completion.Malformed {
			logger.Warn("malformed tool-call syntax in completion, treating as plain text", "conversation_id", conv.ID)
		}
		if completion.Text != "" {
			lastText = completion.Text
		}

		if len(completion.Directives) == 0 {
			reply = completion.Text
			break
		}

		if err := limiter.Increment(); err != nil {
			logger.Warn("tool round ceiling reached", "conversation_id", conv.ID, "rounds", rounds)
			reply = lastText
			break
		}

		// EXECUTE
		turns, err := o.executeDirectives(ctx, completion.Directives)
		if err != nil {
			return nil, err
		}
		pending = append(pending, turns...)
		rounds++
	}

	if reply == "" {
		reply = fallbackReply
	}

	// FINALIZE: commit the whole exchange atomically.
	pending = append(pending, core.NewAssistantTurn(reply))
	if err := o.store.Append(conv.ID, pending); err != nil {
		return nil, fmt.Errorf("commit exchange: %w", err)
	}

	logger.Info("exchange committed", "conversation_id", conv.ID, "turns", len(pending), "rounds", rounds)

	return &core.ProcessResult{ConversationID: conv.ID, Response: reply, Rounds: rounds}, nil
}

// executeDirectives runs one completion's directives and returns the
// resulting tool_call/tool_result turn pairs in emission order. Execution
// may be parallelized; ordering of the returned turns is a correctness
// invariant, ordering of the underlying network calls is not.
func (o *Orchestrator) executeDirectives(ctx context.Context, directives []core.ToolCallDirective) ([]core.Turn, error) {
	outcomes := make([]core.ToolOutcome, len(directives))
	errs := make([]error, len(directives))

	if o.opts.ParallelToolCalls && len(directives) > 1 {
		var wg sync.WaitGroup
		for i := range directives {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				outcomes[idx], errs[idx] = o.executeOne(ctx, directives[idx])
			}(i)
		}
		wg.Wait()
	} else {
		for i := range directives {
			outcomes[i], errs[i] = o.executeOne(ctx, directives[i])
		}
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	turns := make([]core.Turn, 0, 2*len(directives))
	for i, d := range directives {
		turns = append(turns, core.NewToolCallTurn(d), core.NewToolResultTurn(d.Name, outcomes[i]))
	}
	return turns, nil
}

func (o *Orchestrator) executeOne(ctx context.Context, directive core.ToolCallDirective) (core.ToolOutcome, error) {
	start := time.Now()
	outcome, err := o.tools.Execute(ctx, directive)
	if err != nil {
		return core.ToolOutcome{}, fmt.Errorf("tool execution canceled: %w", err)
	}

	if outcome.Failed() {
		o.logger.Warn("tool execution failed",
			"tool", directive.Name,
			"code", string(outcome.Err.Code),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	} else {
		o.logger.Info("tool executed",
			"tool", directive.Name,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}

	return outcome, nil
}
