package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// scriptedProvider replays a fixed sequence of responses. Once the script
// is exhausted the last step repeats.
type scriptedProvider struct {
	steps []func(Request) (*Response, error)
	calls int
}

func (p *scriptedProvider) Complete(_ context.Context, req Request) (*Response, error) {
	step := p.steps[len(p.steps)-1]
	if p.calls < len(p.steps) {
		step = p.steps[p.calls]
	}
	p.calls++
	return step(req)
}

func (p *scriptedProvider) Name() string { return "scripted" }

func finalStep(text string) func(Request) (*Response, error) {
	return func(Request) (*Response, error) {
		return &Response{Kind: ResponseFinal, Text: text, Usage: &TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}}, nil
	}
}

func toolStep(thinking string, calls ...toolexecutor.Call) func(Request) (*Response, error) {
	return func(Request) (*Response, error) {
		return &Response{Kind: ResponseToolCalls, Text: thinking, ToolCalls: calls}, nil
	}
}

func overflowStep() func(Request) (*Response, error) {
	return func(Request) (*Response, error) {
		return nil, &OverflowError{Provider: "scripted", Err: errors.New("prompt is too long")}
	}
}

func echoCalls(n int) []toolexecutor.Call {
	calls := make([]toolexecutor.Call, n)
	for i := range calls {
		calls[i] = toolexecutor.Call{ID: fmt.Sprintf("call_%d", i), Name: "echo"}
	}
	return calls
}

func testRegistry(t *testing.T) *toolexecutor.Registry {
	t.Helper()
	registry := toolexecutor.NewRegistry()
	require.NoError(t, registry.Register(toolexecutor.ToolDefinition{
		Name:        "echo",
		Description: "Returns a fixed payload",
		Handler: func(context.Context, map[string]interface{}) (string, error) {
			return "echo output with some padding to give the estimate something to count", nil
		},
	}))
	require.NoError(t, registry.Register(toolexecutor.ToolDefinition{
		Name:        "boom",
		Description: "Always fails",
		Handler: func(context.Context, map[string]interface{}) (string, error) {
			return "", errors.New("handler exploded")
		},
	}))
	require.NoError(t, registry.Register(toolexecutor.ToolDefinition{
		Name:             "guarded",
		Description:      "Requires approval before running",
		RequiresApproval: true,
		Handler: func(context.Context, map[string]interface{}) (string, error) {
			return "guarded output", nil
		},
	}))
	return registry
}

func newTestAgent(t *testing.T, cfg Config, provider Provider, opts toolexecutor.Options) *Agent {
	t.Helper()
	executor := toolexecutor.New(testRegistry(t), opts)
	a, err := New(cfg, provider, executor, zerolog.Nop())
	require.NoError(t, err)
	return a
}

func drain(t *testing.T, events <-chan Event) []Event {
	t.Helper()
	var all []Event
	for ev := range events {
		all = append(all, ev)
	}
	return all
}

// terminal asserts the sequence ends in exactly one done event and returns it
func terminal(t *testing.T, events []Event) *Result {
	t.Helper()
	require.NotEmpty(t, events)
	done := 0
	for _, ev := range events {
		if ev.Type == EventDone {
			done++
		}
	}
	require.Equal(t, 1, done, "expected exactly one done event")
	last := events[len(events)-1]
	require.Equal(t, EventDone, last.Type, "done must be the last event")
	require.NotNil(t, last.Done)
	return last.Done
}

func countEvents(events []Event, typ EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestNewRequiresCollaborators(t *testing.T) {
	executor := toolexecutor.New(toolexecutor.NewRegistry(), toolexecutor.Options{})

	_, err := New(Config{}, nil, executor, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Config{}, &scriptedProvider{steps: []func(Request) (*Response, error){finalStep("x")}}, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestRunImmediateFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){finalStep("the answer is 42")}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "what is the answer?", nil))

	result := terminal(t, events)
	assert.Equal(t, "the answer is 42", result.Answer)
	assert.Equal(t, 1, result.Iterations)
	assert.Equal(t, 15, result.Usage.TotalTokens)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, 1, provider.calls)
}

func TestRunToolCallsThenAnswer(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("let me check", echoCalls(1)...),
		finalStep("done checking"),
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "check something", nil))

	result := terminal(t, events)
	assert.Equal(t, "done checking", result.Answer)
	assert.Equal(t, 2, result.Iterations)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "echo", result.ToolCalls[0].Tool)
	assert.Empty(t, result.ToolCalls[0].Error)

	assert.Equal(t, 1, countEvents(events, EventThinking))
	assert.Equal(t, 1, countEvents(events, EventToolProgress))
}

func TestRunIterationBudget(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("", echoCalls(1)...),
	}}
	cfg := DefaultConfig()
	cfg.MaxIterations = 3
	a := newTestAgent(t, cfg, provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "loop forever", nil))

	result := terminal(t, events)
	assert.Contains(t, result.Answer, "Maximum iterations (3)")
	assert.Equal(t, 3, result.Iterations)
	assert.Equal(t, 3, provider.calls)
}

func TestRunOverflowPruneAndRetry(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("", echoCalls(5)...),
		overflowStep(),
		toolStep("", echoCalls(5)...),
		overflowStep(),
		finalStep("recovered"),
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "big question", nil))

	result := terminal(t, events)
	assert.Equal(t, "recovered", result.Answer)
	assert.Equal(t, 2, countEvents(events, EventContextCleared))
	assert.Equal(t, 5, provider.calls)
	// The flat reporting list keeps every call despite pruning
	assert.Len(t, result.ToolCalls, 10)
}

func TestRunOverflowWithEmptyScratchpad(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){overflowStep()}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "q", nil))

	result := terminal(t, events)
	assert.Contains(t, result.Answer, "Sorry, something went wrong")
	assert.Equal(t, 0, countEvents(events, EventContextCleared))
	assert.Equal(t, 1, provider.calls)
}

func TestRunOverflowStopsWhenPruningYieldsNothing(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("", echoCalls(5)...),
		overflowStep(),
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "q", nil))

	// First overflow prunes down to the keep count; the second retry finds
	// nothing left to discard and the run fails instead of spinning.
	result := terminal(t, events)
	assert.Contains(t, result.Answer, "Sorry, something went wrong")
	assert.Equal(t, 1, countEvents(events, EventContextCleared))
	assert.Equal(t, 3, provider.calls)
}

func TestRunDenialTerminates(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("", toolexecutor.Call{ID: "c1", Name: "guarded"}),
		finalStep("should never be reached"),
	}}
	deny := func(context.Context, string, map[string]interface{}) toolexecutor.Decision {
		return toolexecutor.Deny
	}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{Approval: deny})

	events := drain(t, a.Run(context.Background(), "do the guarded thing", nil))

	result := terminal(t, events)
	assert.Empty(t, result.Answer)
	assert.Empty(t, result.ToolCalls)
	assert.Equal(t, 1, countEvents(events, EventToolDenied))
	assert.Equal(t, 1, provider.calls, "no further model call after a denial")
}

func TestRunToolFailureDoesNotAbort(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("",
			toolexecutor.Call{ID: "c1", Name: "echo"},
			toolexecutor.Call{ID: "c2", Name: "boom"},
			toolexecutor.Call{ID: "c3", Name: "echo"},
		),
		finalStep("finished despite the failure"),
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "mixed batch", nil))

	result := terminal(t, events)
	assert.Equal(t, "finished despite the failure", result.Answer)
	require.Len(t, result.ToolCalls, 3)

	failures := 0
	for _, rec := range result.ToolCalls {
		if rec.Error != "" {
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 3, countEvents(events, EventToolProgress))
}

func TestRunEmptyFinalResponseRetries(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		finalStep("   "),
		finalStep("substantive answer"),
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "q", nil))

	result := terminal(t, events)
	assert.Equal(t, "substantive answer", result.Answer)
	assert.Equal(t, 2, provider.calls)
}

func TestRunProactiveThresholdPrune(t *testing.T) {
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		toolStep("", echoCalls(3)...),
		finalStep("ok"),
	}}
	cfg := DefaultConfig()
	cfg.ContextTokenThreshold = 1
	cfg.ThresholdKeepToolUses = 1
	a := newTestAgent(t, cfg, provider, toolexecutor.Options{})

	events := drain(t, a.Run(context.Background(), "q", nil))

	result := terminal(t, events)
	assert.Equal(t, "ok", result.Answer)

	require.Equal(t, 1, countEvents(events, EventContextCleared))
	for _, ev := range events {
		if ev.Type == EventContextCleared {
			assert.Equal(t, 2, ev.Cleared)
			assert.Equal(t, 1, ev.Kept)
		}
	}
}

func TestRunToolCatalogReachesProvider(t *testing.T) {
	var seen []string
	provider := &scriptedProvider{steps: []func(Request) (*Response, error){
		func(req Request) (*Response, error) {
			for _, def := range req.Tools {
				seen = append(seen, def.Name)
			}
			return &Response{Kind: ResponseFinal, Text: "ok"}, nil
		},
	}}
	a := newTestAgent(t, DefaultConfig(), provider, toolexecutor.Options{})

	drain(t, a.Run(context.Background(), "q", nil))

	assert.Equal(t, []string{"boom", "echo", "guarded"}, seen)
}
