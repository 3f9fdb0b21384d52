package core

// ProcessResult is returned to the caller after a successful process call.
// Its Response text is also recorded as the exchange's assistant turn; the
// result itself is not persisted as a separate entity.
type ProcessResult struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	// Rounds is the number of generate/execute round trips consumed.
	// Zero means the model answered without requesting any tool.
	Rounds int `json:"rounds"`
}
