package core

import "errors"

var (
	// ErrNotFound is returned when a conversation for the given identifier
	// does not exist in the underlying store.
	ErrNotFound = errors.New("conversation not found")

	// ErrUnavailable is returned when the tool-manager lookup endpoint or
	// the model service is unreachable, errors or times out. The current
	// turn aborts and the conversation is left unmodified.
	ErrUnavailable = errors.New("service unavailable")

	// ErrEmptyInput is returned when process is called with empty user text.
	ErrEmptyInput = errors.New("empty user input")
)
