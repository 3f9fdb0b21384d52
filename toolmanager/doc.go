// Package toolmanager implements the outbound HTTP client for the external
// tool registry / execution service. It covers the two calls the
// orchestrator needs: semantic lookup of relevant tool descriptors for a
// user query, and execution of a single tool-call directive.
//
// The client is stateless and safe for concurrent use. Lookup failures
// surface as core.ErrUnavailable and abort the turn; execution failures are
// folded into a core.ToolOutcome so the model sees them as data.
package toolmanager
