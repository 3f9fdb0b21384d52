// Package conversation houses concrete implementations of the
// core.ConversationStore. The interface itself (and the Conversation struct)
// live in the core package to centralize domain contracts. Keeping only
// implementations here prevents higher level packages (orchestrator, facade)
// from depending on concrete storage.
//
// Add additional backends (Redis, Postgres, ...) in sub-packages without
// changing any calling code – only the wiring layer needs to decide which
// implementation to instantiate.
package conversation
