package toolmanager

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hupe1980/agentbridge/core"
	"github.com/hupe1980/agentbridge/logging"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	lookupPath  = "/tool_lookup"
	executePath = "/tool_usage"
)

// Options configure the tool manager client.
type Options struct {
	// Timeout bounds each registry call. A timeout is treated like any
	// other transport failure.
	Timeout time.Duration
	// HTTPClient overrides the default client (tests, custom transports).
	// Its own timeout wins if set.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client talks to the tool registry's lookup and execution endpoints.
// It implements core.ToolManager.
type Client struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger
}

// New creates a tool manager client for the given base URL
// (e.g. http://localhost:8000).
func New(baseURL string, optFns ...func(o *Options)) *Client {
	opts := Options{
		Timeout: 60 * time.Second,
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  opts.Logger,
	}
}

// lookupRequest / lookupResponse mirror the registry's lookup wire contract.
type lookupRequest struct {
	Prompt string `json:"prompt"`
	TopK   int    `json:"top_k"`
}

type lookupResponse struct {
	Tools []core.ToolDescriptor `json:"tools"`
}

// Lookup forwards a free-text query to the registry's semantic search and
// returns up to topK descriptors in registry relevance order. An empty
// result is valid (no tools relevant). Transport or service failures wrap
// core.ErrUnavailable so the orchestrator aborts the turn instead of
// generating with a silently wrong picture of tool availability.
func (c *Client) Lookup(ctx context.Context, query string, topK int) ([]core.ToolDescriptor, error) {
	body, status, err := c.post(ctx, lookupPath, lookupRequest{Prompt: query, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("%w: tool lookup: %v", core.ErrUnavailable, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: tool lookup returned status %d", core.ErrUnavailable, status)
	}

	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: tool lookup returned invalid payload: %v", core.ErrUnavailable, err)
	}

	tools := resp.Tools
	if topK > 0 && len(tools) > topK {
		tools = tools[:topK]
	}

	c.logger.Debug("tool lookup completed", "query_len", len(query), "tools", len(tools))

	return tools, nil
}

// executeRequest / executeResponse mirror the registry's execution wire contract.
type executeRequest struct {
	ToolCall core.ToolCallDirective `json:"tool_call"`
}

type executeResponse struct {
	Result any    `json:"result"`
	Error  string `json:"error"`
}

// Execute runs one directive against the registry's execution endpoint.
// Every tool-level failure is reported inside the outcome with a reason the
// model can act on; only context cancellation is returned as an error.
func (c *Client) Execute(ctx context.Context, directive core.ToolCallDirective) (core.ToolOutcome, error) {
	start := time.Now()

	body, status, err := c.post(ctx, executePath, executeRequest{ToolCall: directive})
	if err != nil {
		if ctx.Err() != nil {
			return core.ToolOutcome{}, ctx.Err()
		}
		c.logger.Error("tool execution transport failure", "tool", directive.Name, "error", err.Error())
		return failure(core.FailureExecution, fmt.Sprintf("tool manager unreachable: %v", err)), nil
	}

	if status != http.StatusOK {
		return failure(failureCodeForStatus(status), fmt.Sprintf("tool manager returned status %d: %s", status, strings.TrimSpace(string(body)))), nil
	}

	var resp executeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failure(core.FailureExecution, fmt.Sprintf("invalid execution payload: %v", err)), nil
	}

	outcome := core.ToolOutcome{Result: resp.Result}
	if resp.Error != "" {
		outcome = failure(core.FailureExecution, resp.Error)
	}

	c.logger.Info("tool execution completed",
		"tool", directive.Name,
		"duration_ms", time.Since(start).Milliseconds(),
		"success", !outcome.Failed(),
	)

	return outcome, nil
}

// failureCodeForStatus maps registry HTTP statuses onto failure reasons so
// the model receives actionable detail.
func failureCodeForStatus(status int) core.FailureCode {
	switch status {
	case http.StatusNotFound:
		return core.FailureToolNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return core.FailureInvalidArguments
	default:
		return core.FailureExecution
	}
}

func failure(code core.FailureCode, message string) core.ToolOutcome {
	return core.ToolOutcome{Err: core.NewToolError(code, message)}
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, int, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}
