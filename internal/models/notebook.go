package models

// NotebookData is the persisted form of an agent's scratchpad
type NotebookData struct {
	Content     string `json:"content"`
	WeekUpdated int    `json:"week_updated"`
}

// NotebookStats summarizes a scratchpad without returning its content
type NotebookStats struct {
	Model           string `json:"model"`
	TokenCount      int    `json:"token_count"`
	TokensRemaining int    `json:"tokens_remaining"`
	LastWeekUpdated int    `json:"last_week_updated"`
	HasContent      bool   `json:"has_content"`
}

// WriteResult reports the outcome of a scratchpad write. A rejected write
// carries Success=false and leaves the stored content untouched.
type WriteResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	TokenCount      int    `json:"token_count"`
	TokensRemaining int    `json:"tokens_remaining"`
	MaxTokens       int    `json:"max_tokens,omitempty"`
}
