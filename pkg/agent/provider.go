package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// Request contains the parameters for one model invocation. The loop sends
// a single rebuilt prompt per iteration rather than an accumulated message
// history; the scratchpad carries the history.
type Request struct {
	Model        string
	SystemPrompt string
	Prompt       string
	Tools        []toolexecutor.ToolDefinition
	Temperature  float64
	MaxTokens    int
}

// ResponseKind tags the model-response variant
type ResponseKind int

const (
	// ResponseFinal carries plain text and no tool calls
	ResponseFinal ResponseKind = iota
	// ResponseToolCalls carries requested tool calls, optionally with
	// accompanying thinking text
	ResponseToolCalls
)

// Response is the tagged result of one model invocation
type Response struct {
	Kind      ResponseKind
	Text      string
	ToolCalls []toolexecutor.Call
	Usage     *TokenUsage
}

// Provider is the model-invocation contract. Implementations must wrap
// size/context-limit rejections in OverflowError so the loop can
// distinguish them without inspecting provider-specific error text.
type Provider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Name() string
}

// OverflowError marks a provider rejection caused by the request exceeding
// the model's context limit. Classification happens at the provider
// boundary; the loop only checks the type.
type OverflowError struct {
	Provider string
	Err      error
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s rejected request as too large: %v", e.Provider, e.Err)
}

func (e *OverflowError) Unwrap() error {
	return e.Err
}

// IsContextOverflow reports whether err is a context-overflow rejection
func IsContextOverflow(err error) bool {
	var oe *OverflowError
	return errors.As(err, &oe)
}

// NewProvider creates a provider by name
func NewProvider(name, apiKey string) (Provider, error) {
	switch name {
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}
