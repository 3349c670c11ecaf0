package domain

// ChatMessage is the provider-agnostic chat message shape used by the
// narrative generator and LLM integrations.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a single completion request. Zero Temperature or MaxTokens
// leaves the provider default in place.
type ChatRequest struct {
	Model       string
	Messages    []ChatMessage
	Temperature float64
	MaxTokens   int
}
