package toolexecutor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/smoreland/sleuth/internal/metrics"
)

// ErrDenied signals that the user refused a tool call. It terminates the
// whole batch and, upstream, the run. It is not a per-call error.
var ErrDenied = errors.New("tool execution denied")

// Call is one tool invocation requested by the model in a single turn
type Call struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// Progress is the lifecycle event emitted once per call after its outcome
// has been recorded.
type Progress struct {
	CallID   string                 `json:"call_id"`
	Tool     string                 `json:"tool"`
	Args     map[string]interface{} `json:"args"`
	Output   string                 `json:"output,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Duration time.Duration          `json:"duration"`
}

// Recorder receives every outcome, success or failure, before the executor
// yields control back to the loop.
type Recorder interface {
	AddToolResult(tool string, args map[string]interface{}, result string, errMsg string)
}

// Options configures an Executor
type Options struct {
	// Approval is consulted for tools that require it. Nil auto-denies.
	Approval ApprovalFunc
	// Session holds tools pre-approved for the rest of the session
	Session *SessionApprovals
	// Timeout bounds each individual tool invocation
	Timeout time.Duration
	// OutputLimit caps the recorded payload size per call
	OutputLimit int
}

const (
	// DefaultTimeout bounds a single tool invocation
	DefaultTimeout = 30 * time.Second
	// DefaultOutputLimit caps a recorded tool payload
	DefaultOutputLimit = 10 * 1024
)

// Executor runs the tool batches requested by model turns
type Executor struct {
	registry    *Registry
	approval    ApprovalFunc
	session     *SessionApprovals
	timeout     time.Duration
	outputLimit int
}

// New creates an Executor over a registry
func New(registry *Registry, opts Options) *Executor {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	limit := opts.OutputLimit
	if limit <= 0 {
		limit = DefaultOutputLimit
	}
	session := opts.Session
	if session == nil {
		session = NewSessionApprovals()
	}
	return &Executor{
		registry:    registry,
		approval:    opts.Approval,
		session:     session,
		timeout:     timeout,
		outputLimit: limit,
	}
}

// Registry returns the registry this executor runs against
func (e *Executor) Registry() *Registry {
	return e.registry
}

type pendingCall struct {
	call     Call
	def      *ToolDefinition
	output   string
	errMsg   string
	duration time.Duration
	resolved bool // outcome decided without dispatch
}

// ExecuteBatch executes one model turn's tool calls. Approval is resolved
// sequentially in call order before anything runs; a denial returns
// ErrDenied with nothing dispatched or recorded. Gated calls then run
// concurrently, and outcomes are recorded into rec and emitted in call
// order in a single pass. Individual failures (unknown tool, invalid
// arguments, handler error, timeout, cancellation) are recorded outcomes
// and never abort sibling calls.
func (e *Executor) ExecuteBatch(ctx context.Context, calls []Call, rec Recorder, emit func(Progress)) error {
	if len(calls) == 0 {
		return nil
	}

	pending := make([]pendingCall, len(calls))

	// Gate phase: approval prompts are interactive and must happen one at
	// a time, in the order the model issued the calls.
	for i, call := range calls {
		pending[i].call = call

		def := e.registry.Get(call.Name)
		if def == nil {
			pending[i].errMsg = fmt.Sprintf("tool not found: %s", call.Name)
			pending[i].resolved = true
			continue
		}

		if def.RequiresApproval && !e.session.IsApproved(call.Name) {
			decision := Deny
			if e.approval != nil {
				decision = e.approval(ctx, call.Name, call.Args)
			}
			switch decision {
			case ApproveSession:
				e.session.Grant(call.Name)
			case Approve:
			default:
				log.Warn().Str("tool", call.Name).Msg("Tool call denied")
				return ErrDenied
			}
		}

		pending[i].def = def
	}

	// Dispatch phase: independent calls run concurrently, the batch joins
	// before control returns to the loop.
	var wg sync.WaitGroup
	for i := range pending {
		if pending[i].resolved {
			continue
		}
		wg.Add(1)
		go func(p *pendingCall) {
			defer wg.Done()
			e.invoke(ctx, p)
		}(&pending[i])
	}
	wg.Wait()

	// Apply phase: a single sequential pass records and emits in call
	// order, so shared state is never touched concurrently.
	for i := range pending {
		p := &pending[i]
		rec.AddToolResult(p.call.Name, p.call.Args, p.output, p.errMsg)
		metrics.RecordToolExecution(p.call.Name, p.duration, p.errMsg == "")
		if emit != nil {
			emit(Progress{
				CallID:   p.call.ID,
				Tool:     p.call.Name,
				Args:     p.call.Args,
				Output:   p.output,
				Error:    p.errMsg,
				Duration: p.duration,
			})
		}
	}

	return nil
}

// invoke runs one gated call and fills in its outcome
func (e *Executor) invoke(ctx context.Context, p *pendingCall) {
	start := time.Now()
	defer func() {
		p.duration = time.Since(start)
	}()

	if err := ctx.Err(); err != nil {
		p.errMsg = fmt.Sprintf("cancelled: %v", err)
		return
	}

	if err := e.registry.ValidateArgs(p.call.Name, p.call.Args); err != nil {
		p.errMsg = fmt.Sprintf("invalid arguments: %v", err)
		return
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resultCh := make(chan string, 1)
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("tool panicked: %v", r)
			}
		}()
		out, err := p.def.Handler(timeoutCtx, p.call.Args)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- out
		}
	}()

	select {
	case out := <-resultCh:
		p.output = e.truncate(out)
		log.Debug().Str("tool", p.call.Name).Dur("duration", time.Since(start)).Msg("Tool execution completed")

	case err := <-errCh:
		p.errMsg = err.Error()
		log.Error().Str("tool", p.call.Name).Err(err).Msg("Tool execution failed")

	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			p.errMsg = fmt.Sprintf("cancelled: %v", ctx.Err())
		} else {
			p.errMsg = fmt.Sprintf("tool execution timeout after %v", e.timeout)
		}
		log.Warn().Str("tool", p.call.Name).Msg("Tool execution aborted")
	}
}

// truncate caps a payload so adversarial tool outputs cannot blow up the
// scratchpad or the next prompt.
func (e *Executor) truncate(out string) string {
	if len(out) <= e.outputLimit {
		return out
	}
	log.Warn().Int("original", len(out)).Int("limit", e.outputLimit).Msg("Tool output truncated")
	return out[:e.outputLimit] + "\n... [output truncated]"
}
