// Package agent implements the iterative reasoning loop: repeated model
// calls with optional tool execution until a final answer, an exhausted
// iteration budget, or an approval denial.
//
// Invariants:
// - A run owns its RunContext exclusively; scratchpad and token counter
//   are mutated only between suspension points, never concurrently.
// - Every run's event sequence ends in exactly one done event.
// - Context overflow is the only condition retried automatically, bounded
//   by a fixed retry ceiling and effective pruning.
// - Pruning drops tool payloads only; thinking notes and the compact
//   tool-usage summary are never removed.
//
// Usage:
//
//	a, _ := agent.New(agent.DefaultConfig(), provider, executor, logger)
//	for ev := range a.Run(ctx, "what moved the market today?", nil) {
//		if ev.Type == agent.EventDone {
//			fmt.Println(ev.Done.Answer)
//		}
//	}
package agent
