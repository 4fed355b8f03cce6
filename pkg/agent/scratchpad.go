package agent

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ToolCallRecord is the flat reporting view of one tool invocation.
// Records survive pruning; only prompt payloads are discarded.
type ToolCallRecord struct {
	Tool      string                 `json:"tool"`
	Args      map[string]interface{} `json:"args"`
	Result    string                 `json:"result,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

type entryKind int

const (
	entryThinking entryKind = iota
	entryToolUse
)

type scratchpadEntry struct {
	kind   entryKind
	text   string // thinking note
	record ToolCallRecord
	pruned bool // full payload dropped from the prompt projection
}

// Scratchpad is the run-scoped log of thinking notes and tool-use records.
// Entries are appended in chronological order. Pruning drops old tool
// payloads from the prompt projection while the compact summary and the
// reporting records keep every call ever made.
type Scratchpad struct {
	entries []scratchpadEntry
}

// NewScratchpad creates an empty scratchpad
func NewScratchpad() *Scratchpad {
	return &Scratchpad{}
}

// AddThinking appends a thinking note. Whitespace-only text is skipped.
func (s *Scratchpad) AddThinking(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	s.entries = append(s.entries, scratchpadEntry{kind: entryThinking, text: text})
}

// AddToolResult appends a tool-use record. Exactly one of result or errMsg
// should be set; an error outcome is recorded verbatim so the model can see
// what went wrong.
func (s *Scratchpad) AddToolResult(tool string, args map[string]interface{}, result string, errMsg string) {
	s.entries = append(s.entries, scratchpadEntry{
		kind: entryToolUse,
		record: ToolCallRecord{
			Tool:      tool,
			Args:      args,
			Result:    result,
			Error:     errMsg,
			Timestamp: time.Now(),
		},
	})
}

// ToolResults renders the full payloads of all retained tool-use records,
// in chronological order, formatted for prompt injection.
func (s *Scratchpad) ToolResults() string {
	var b strings.Builder
	for _, e := range s.entries {
		if e.kind != entryToolUse || e.pruned {
			continue
		}
		b.WriteString(formatToolRecord(e.record))
	}
	return b.String()
}

// ToolUsageSummary renders a compact chronological listing of every tool
// call ever made (name and arguments only), regardless of pruning. The
// model keeps awareness of what it already tried after detail is dropped.
func (s *Scratchpad) ToolUsageSummary() string {
	var b strings.Builder
	i := 0
	for _, e := range s.entries {
		if e.kind != entryToolUse {
			continue
		}
		i++
		fmt.Fprintf(&b, "%d. %s(%s)\n", i, e.record.Tool, formatArgs(e.record.Args))
	}
	return b.String()
}

// ClearOldestToolResults retains the full payload of only the most recent
// keep tool-use records; older payloads are discarded from the prompt
// projection. Thinking notes and the compact summary are untouched.
// Returns the number of payloads discarded; calling it again with the same
// keep count is a no-op.
func (s *Scratchpad) ClearOldestToolResults(keep int) int {
	if keep < 0 {
		keep = 0
	}
	retained := s.RetainedToolResults()
	toClear := retained - keep
	if toClear <= 0 {
		return 0
	}
	cleared := 0
	for i := range s.entries {
		if cleared == toClear {
			break
		}
		e := &s.entries[i]
		if e.kind == entryToolUse && !e.pruned {
			e.pruned = true
			cleared++
		}
	}
	return cleared
}

// RetainedToolResults returns the number of tool-use records whose full
// payload is still part of the prompt projection.
func (s *Scratchpad) RetainedToolResults() int {
	n := 0
	for _, e := range s.entries {
		if e.kind == entryToolUse && !e.pruned {
			n++
		}
	}
	return n
}

// ToolCallRecords returns the complete, never-pruned list of tool calls
// for final reporting.
func (s *Scratchpad) ToolCallRecords() []ToolCallRecord {
	records := make([]ToolCallRecord, 0, len(s.entries))
	for _, e := range s.entries {
		if e.kind == entryToolUse {
			records = append(records, e.record)
		}
	}
	return records
}

// ThinkingNotes returns all thinking notes in chronological order
func (s *Scratchpad) ThinkingNotes() []string {
	notes := []string{}
	for _, e := range s.entries {
		if e.kind == entryThinking {
			notes = append(notes, e.text)
		}
	}
	return notes
}

func formatToolRecord(r ToolCallRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Tool: %s\n", r.Tool)
	fmt.Fprintf(&b, "Arguments: %s\n", formatArgs(r.Args))
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n\n", r.Error)
	} else {
		fmt.Fprintf(&b, "Result:\n%s\n\n", r.Result)
	}
	return b.String()
}

func formatArgs(args map[string]interface{}) string {
	if len(args) == 0 {
		return ""
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	// Stable ordering keeps prompts and logs deterministic
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, args[k]))
	}
	return strings.Join(parts, ", ")
}
