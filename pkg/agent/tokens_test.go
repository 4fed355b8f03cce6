package agent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenCounterAccumulates(t *testing.T) {
	tc := NewTokenCounter()

	tc.Add(&TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15})
	tc.Add(&TokenUsage{PromptTokens: 20, CompletionTokens: 8, TotalTokens: 28})
	tc.Add(nil)

	usage := tc.Usage()
	assert.Equal(t, 30, usage.PromptTokens)
	assert.Equal(t, 13, usage.CompletionTokens)
	assert.Equal(t, 43, usage.TotalTokens)
}

func TestTokensPerSecond(t *testing.T) {
	tc := NewTokenCounter()
	tc.Add(&TokenUsage{PromptTokens: 50, CompletionTokens: 50, TotalTokens: 100})

	assert.InDelta(t, 50.0, tc.TokensPerSecond(2*time.Second), 0.001)
}

func TestTokensPerSecondZeroElapsed(t *testing.T) {
	tc := NewTokenCounter()
	tc.Add(&TokenUsage{TotalTokens: 100})

	assert.Zero(t, tc.TokensPerSecond(0))
	assert.Zero(t, tc.TokensPerSecond(-time.Second))
}

func TestTokensPerSecondNoTokens(t *testing.T) {
	tc := NewTokenCounter()
	assert.Zero(t, tc.TokensPerSecond(time.Second))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abc"))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
}
