package agent

import (
	"fmt"
	"strings"
)

// Turn is one prior conversation exchange used to seed the initial prompt
type Turn struct {
	Role    string
	Content string
}

// BuildInitialPrompt augments the raw query with a bounded window of recent
// prior turns. With no history the query passes through unmodified.
func BuildInitialPrompt(turns []Turn, query string, window int) string {
	if len(turns) == 0 {
		return query
	}
	if window > 0 && len(turns) > window {
		turns = turns[len(turns)-window:]
	}

	var b strings.Builder
	b.WriteString("Recent conversation:\n")
	for _, t := range turns {
		fmt.Fprintf(&b, "%s: %s\n", t.Role, t.Content)
	}
	b.WriteString("\nCurrent request: ")
	b.WriteString(query)
	return b.String()
}

// BuildIterationPrompt produces the prompt for a loop pass from the
// original query and the scratchpad's two projections. The compact usage
// listing always covers every call ever made, so the model does not repeat
// calls whose payloads were pruned.
func BuildIterationPrompt(query, toolResults, toolUsage string) string {
	var b strings.Builder
	b.WriteString("Original request: ")
	b.WriteString(query)
	b.WriteString("\n")

	if toolUsage != "" {
		b.WriteString("\nTools used so far:\n")
		b.WriteString(toolUsage)
	}

	if toolResults != "" {
		b.WriteString("\nTool results:\n")
		b.WriteString(toolResults)
	}

	b.WriteString("\nContinue working on the request. Use tools if you need more information; otherwise give the final answer.")
	return b.String()
}
