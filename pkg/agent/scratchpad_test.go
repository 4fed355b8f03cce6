package agent

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addRecords(sp *Scratchpad, n int) {
	for i := 0; i < n; i++ {
		sp.AddToolResult("lookup", map[string]interface{}{"n": i}, "payload", "")
	}
}

func TestScratchpadAddThinking(t *testing.T) {
	sp := NewScratchpad()

	sp.AddThinking("considering the options")
	sp.AddThinking("   ")
	sp.AddThinking("")

	assert.Equal(t, []string{"considering the options"}, sp.ThinkingNotes())
}

func TestScratchpadToolResultsChronological(t *testing.T) {
	sp := NewScratchpad()
	sp.AddToolResult("first", nil, "alpha", "")
	sp.AddToolResult("second", nil, "", "boom")
	sp.AddToolResult("third", nil, "gamma", "")

	out := sp.ToolResults()
	require.Contains(t, out, "alpha")
	require.Contains(t, out, "boom")
	require.Contains(t, out, "gamma")
	assert.Less(t, strings.Index(out, "alpha"), strings.Index(out, "boom"))
	assert.Less(t, strings.Index(out, "boom"), strings.Index(out, "gamma"))
}

func TestScratchpadClearOldestToolResults(t *testing.T) {
	sp := NewScratchpad()
	sp.AddThinking("a note")
	addRecords(sp, 5)

	cleared := sp.ClearOldestToolResults(2)
	assert.Equal(t, 3, cleared)
	assert.Equal(t, 2, sp.RetainedToolResults())

	// Thinking notes are untouched
	assert.Len(t, sp.ThinkingNotes(), 1)

	// The compact summary still lists every call
	summary := sp.ToolUsageSummary()
	for _, want := range []string{"1. ", "2. ", "3. ", "4. ", "5. "} {
		assert.Contains(t, summary, want)
	}

	// Reporting records are never pruned
	assert.Len(t, sp.ToolCallRecords(), 5)
}

func TestScratchpadClearIsIdempotent(t *testing.T) {
	sp := NewScratchpad()
	addRecords(sp, 4)

	assert.Equal(t, 1, sp.ClearOldestToolResults(3))
	assert.Equal(t, 0, sp.ClearOldestToolResults(3))
}

func TestScratchpadClearWithFewerThanKeep(t *testing.T) {
	sp := NewScratchpad()
	addRecords(sp, 2)

	assert.Equal(t, 0, sp.ClearOldestToolResults(5))
	assert.Equal(t, 2, sp.RetainedToolResults())
}

func TestScratchpadClearKeepsMostRecent(t *testing.T) {
	sp := NewScratchpad()
	sp.AddToolResult("old", nil, "old-payload", "")
	sp.AddToolResult("new", nil, "new-payload", "")

	sp.ClearOldestToolResults(1)

	out := sp.ToolResults()
	assert.NotContains(t, out, "old-payload")
	assert.Contains(t, out, "new-payload")
}
