package agent

import "time"

// TokenUsage tracks token consumption for a single model call
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// TokenCounter accumulates usage across the model calls of one run
type TokenCounter struct {
	usage TokenUsage
}

// NewTokenCounter creates an empty counter
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{}
}

// Add records a usage sample. A nil sample means the provider did not
// report usage and is a no-op.
func (c *TokenCounter) Add(usage *TokenUsage) {
	if usage == nil {
		return
	}
	c.usage.PromptTokens += usage.PromptTokens
	c.usage.CompletionTokens += usage.CompletionTokens
	c.usage.TotalTokens += usage.TotalTokens
}

// Usage returns the cumulative usage since creation
func (c *TokenCounter) Usage() TokenUsage {
	return c.usage
}

// TokensPerSecond derives throughput from elapsed wall time.
// Returns 0 when no time has passed or no tokens were recorded.
func (c *TokenCounter) TokensPerSecond(elapsed time.Duration) float64 {
	if elapsed <= 0 || c.usage.TotalTokens == 0 {
		return 0
	}
	return float64(c.usage.TotalTokens) / elapsed.Seconds()
}

// EstimateTokens estimates token count using the ~4 chars/token heuristic.
// Good enough for threshold comparison, not billing-accurate.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}
