package logging

// LogEntry represents a structured log record with fields particularly
// relevant to document automation runs.
type LogEntry struct {
	// Standard fields
	Time     int64    `json:"time"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	File     string   `json:"file,omitempty"`
	Line     int      `json:"line,omitempty"`
	Function string   `json:"function,omitempty"`

	// Run-specific fields
	Document  string     `json:"document,omitempty"` // Vault document being processed
	Provider  string     `json:"provider,omitempty"` // Backend provider in use
	Model     string     `json:"model,omitempty"`    // Model being used
	TokenInfo *TokenInfo `json:"token_info,omitempty"`
	Latency   int64      `json:"latency_ms,omitempty"` // Operation duration in milliseconds

	// General structured data
	Fields map[string]interface{} `json:"fields,omitempty"`
}

// TokenInfo tracks token usage for cost and performance monitoring.
type TokenInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}
