package agent

import "time"

// RunContext bundles the per-invocation state of one loop run. It is owned
// by exactly one run and never shared; the loop and the tool executor it
// invokes mutate it strictly sequentially.
type RunContext struct {
	Query      string
	Iteration  int
	StartTime  time.Time
	Scratchpad *Scratchpad
	Tokens     *TokenCounter
}

// NewRunContext creates the state bundle for a fresh run
func NewRunContext(query string) *RunContext {
	return &RunContext{
		Query:      query,
		StartTime:  time.Now(),
		Scratchpad: NewScratchpad(),
		Tokens:     NewTokenCounter(),
	}
}

// Elapsed returns wall time since the run started
func (rc *RunContext) Elapsed() time.Duration {
	return time.Since(rc.StartTime)
}
