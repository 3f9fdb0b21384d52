// Package core provides the foundational domain types, interfaces and
// contracts used by AgentBridge. It defines the core abstractions for:
//
//   - Turns (immutable contributions to a conversation: user, assistant,
//     tool call, tool result)
//   - Conversations (append-only, chronologically ordered turn sequences)
//   - Tool descriptors, call directives and execution outcomes
//   - Pluggable stores for conversation history and the tool-manager client
//     contract used by the orchestrator
//
// The package intentionally keeps implementation concerns (storage backends,
// HTTP clients, the orchestration loop itself) out of scope, exposing small
// interfaces to enable custom backends and extensions.
package core
