package agent

import (
	"time"

	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// EventType tags the variants of an agent event
type EventType string

const (
	// EventThinking carries thinking text that accompanied tool calls
	EventThinking EventType = "thinking"
	// EventToolProgress carries one tool call's lifecycle event
	EventToolProgress EventType = "tool_progress"
	// EventToolDenied signals an approval denial; the run terminates
	EventToolDenied EventType = "tool_denied"
	// EventContextCleared signals that old tool payloads were pruned
	EventContextCleared EventType = "context_cleared"
	// EventDone is the terminal event; exactly one per run, always last
	EventDone EventType = "done"
)

// Event is one element of a run's event sequence. The sequence is strictly
// ordered and ends in exactly one done event (optionally preceded by
// tool_denied).
type Event struct {
	Type     EventType              `json:"type"`
	Message  string                 `json:"message,omitempty"`
	Progress *toolexecutor.Progress `json:"progress,omitempty"`
	Cleared  int                    `json:"cleared,omitempty"`
	Kept     int                    `json:"kept,omitempty"`
	Done     *Result                `json:"done,omitempty"`
}

// Result summarizes a finished run. Answer always contains human-readable
// text (or is empty after a denial), never a raw internal error.
type Result struct {
	Answer          string           `json:"answer"`
	ToolCalls       []ToolCallRecord `json:"tool_calls,omitempty"`
	Iterations      int              `json:"iterations"`
	TotalTime       time.Duration    `json:"total_time"`
	Usage           TokenUsage       `json:"usage"`
	TokensPerSecond float64          `json:"tokens_per_second"`
}

// Config holds the loop's injected constants. Zero values are replaced by
// defaults in New so runs stay independently testable.
type Config struct {
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int

	// MaxIterations bounds model calls per run
	MaxIterations int
	// MaxOverflowRetries bounds prune-and-retry after provider overflow
	MaxOverflowRetries int
	// OverflowKeepToolUses is the keep-count for overflow-triggered prunes
	OverflowKeepToolUses int
	// ContextTokenThreshold triggers a proactive prune before the next
	// model call when the estimated prompt size exceeds it
	ContextTokenThreshold int
	// ThresholdKeepToolUses is the keep-count for proactive prunes
	ThresholdKeepToolUses int
	// HistoryWindow bounds prior turns mixed into the initial prompt
	HistoryWindow int
}

// Default loop constants.
const (
	DefaultModel                 = "claude-sonnet-4-5"
	DefaultMaxIterations         = 10
	DefaultMaxOverflowRetries    = 2
	DefaultOverflowKeepToolUses  = 3
	DefaultContextTokenThreshold = 50000
	DefaultThresholdKeepToolUses = 5
	DefaultHistoryWindow         = 10
	DefaultMaxTokens             = 4096
)

// DefaultConfig returns the default loop configuration
func DefaultConfig() Config {
	return Config{
		Model:                 DefaultModel,
		MaxTokens:             DefaultMaxTokens,
		MaxIterations:         DefaultMaxIterations,
		MaxOverflowRetries:    DefaultMaxOverflowRetries,
		OverflowKeepToolUses:  DefaultOverflowKeepToolUses,
		ContextTokenThreshold: DefaultContextTokenThreshold,
		ThresholdKeepToolUses: DefaultThresholdKeepToolUses,
		HistoryWindow:         DefaultHistoryWindow,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.MaxIterations <= 0 {
		c.MaxIterations = d.MaxIterations
	}
	if c.MaxOverflowRetries <= 0 {
		c.MaxOverflowRetries = d.MaxOverflowRetries
	}
	if c.OverflowKeepToolUses <= 0 {
		c.OverflowKeepToolUses = d.OverflowKeepToolUses
	}
	if c.ContextTokenThreshold <= 0 {
		c.ContextTokenThreshold = d.ContextTokenThreshold
	}
	if c.ThresholdKeepToolUses <= 0 {
		c.ThresholdKeepToolUses = d.ThresholdKeepToolUses
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
}
