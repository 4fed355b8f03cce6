package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/smoreland/sleuth/internal/metrics"
	"github.com/smoreland/sleuth/internal/tracing"
	"github.com/smoreland/sleuth/pkg/toolexecutor"
)

// Agent drives the iterative reasoning loop: call the model, execute any
// requested tools, record results, rebuild the prompt, repeat. A run
// terminates with a final answer, an exhausted iteration budget, an
// approval denial, or a surfaced error.
type Agent struct {
	provider Provider
	executor *toolexecutor.Executor
	cfg      Config
	logger   zerolog.Logger
}

// New creates an Agent. Zero-valued config fields fall back to defaults.
func New(cfg Config, provider Provider, executor *toolexecutor.Executor, logger zerolog.Logger) (*Agent, error) {
	metrics.EnsureRegistered()

	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if executor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	cfg.applyDefaults()

	return &Agent{
		provider: provider,
		executor: executor,
		cfg:      cfg,
		logger:   logger,
	}, nil
}

// Run starts one run for query and returns its event channel. The channel
// is closed after the terminal done event. Cancelling ctx stops the
// producer at its next suspension point, so abandoning the channel early
// does not leak the run.
func (a *Agent) Run(ctx context.Context, query string, history []Turn) <-chan Event {
	events := make(chan Event, 16)
	go a.run(ctx, query, history, events)
	return events
}

func (a *Agent) run(ctx context.Context, query string, history []Turn, events chan<- Event) {
	defer close(events)

	ctx = tracing.NewRunContext(ctx)
	ctx, span := tracing.StartSpan(
		ctx,
		"sleuth.agent",
		"agent.run",
		attribute.String("model", a.cfg.Model),
		attribute.String("provider", a.provider.Name()),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, a.logger)

	run := NewRunContext(query)
	success := false
	defer func() {
		metrics.RecordRun(a.provider.Name(), run.Elapsed(), run.Iteration, success)
	}()

	// emit reports false when the consumer abandoned the run
	emit := func(ev Event) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	finish := func(answer string) {
		elapsed := run.Elapsed()
		emit(Event{Type: EventDone, Done: &Result{
			Answer:          answer,
			ToolCalls:       run.Scratchpad.ToolCallRecords(),
			Iterations:      run.Iteration,
			TotalTime:       elapsed,
			Usage:           run.Tokens.Usage(),
			TokensPerSecond: run.Tokens.TokensPerSecond(elapsed),
		}})
	}

	prompt := BuildInitialPrompt(history, query, a.cfg.HistoryWindow)
	overflowRetries := 0

	for {
		if run.Iteration >= a.cfg.MaxIterations {
			logger.Warn().Int("max_iterations", a.cfg.MaxIterations).Msg("Iteration budget exhausted")
			finish(fmt.Sprintf("Maximum iterations (%d) reached without a final answer.", a.cfg.MaxIterations))
			return
		}
		run.Iteration++

		var resp *Response
		for {
			var err error
			resp, err = a.provider.Complete(ctx, a.request(prompt))
			if err == nil {
				metrics.RecordModelCall(a.provider.Name(), true)
				if resp.Usage != nil {
					metrics.AddTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
				}
				run.Tokens.Add(resp.Usage)
				overflowRetries = 0
				break
			}
			metrics.RecordModelCall(a.provider.Name(), false)

			if IsContextOverflow(err) && overflowRetries < a.cfg.MaxOverflowRetries {
				cleared := run.Scratchpad.ClearOldestToolResults(a.cfg.OverflowKeepToolUses)
				if cleared > 0 {
					overflowRetries++
					metrics.RecordOverflowRetry()
					metrics.RecordContextPrune("overflow")
					kept := run.Scratchpad.RetainedToolResults()
					logger.Warn().
						Int("cleared", cleared).
						Int("kept", kept).
						Int("retry", overflowRetries).
						Msg("Context overflow, pruned scratchpad and retrying")
					if !emit(Event{Type: EventContextCleared, Cleared: cleared, Kept: kept}) {
						return
					}
					prompt = a.rebuildPrompt(run)
					continue
				}
				// Nothing left to prune; retrying would loop forever
			}

			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error().Err(err).Int("iteration", run.Iteration).Msg("Model call failed")
			finish(fmt.Sprintf("Sorry, something went wrong while answering: %v", err))
			return
		}

		if resp.Kind == ResponseFinal {
			if strings.TrimSpace(resp.Text) != "" {
				success = true
				logger.Info().
					Int("iterations", run.Iteration).
					Int("total_tokens", run.Tokens.Usage().TotalTokens).
					Msg("Run completed")
				finish(resp.Text)
				return
			}
			// Neither text nor tool calls; loop again, bounded by the
			// iteration budget
			prompt = a.rebuildPrompt(run)
			continue
		}

		if strings.TrimSpace(resp.Text) != "" {
			run.Scratchpad.AddThinking(resp.Text)
			if !emit(Event{Type: EventThinking, Message: resp.Text}) {
				return
			}
		}

		abandoned := false
		batchCtx, batchSpan := tracing.StartSpan(ctx, "sleuth.agent", "agent.tool_batch",
			attribute.Int("calls", len(resp.ToolCalls)))
		err := a.executor.ExecuteBatch(batchCtx, resp.ToolCalls, run.Scratchpad, func(p toolexecutor.Progress) {
			if !emit(Event{Type: EventToolProgress, Progress: &p}) {
				abandoned = true
			}
		})
		batchSpan.End()
		if errors.Is(err, toolexecutor.ErrDenied) {
			metrics.RecordToolDenial()
			logger.Info().Msg("Run terminated by approval denial")
			emit(Event{Type: EventToolDenied})
			finish("")
			return
		}
		if abandoned {
			return
		}

		estimate := EstimateTokens(a.cfg.SystemPrompt + query + run.Scratchpad.ToolResults())
		if estimate > a.cfg.ContextTokenThreshold {
			cleared := run.Scratchpad.ClearOldestToolResults(a.cfg.ThresholdKeepToolUses)
			if cleared > 0 {
				metrics.RecordContextPrune("threshold")
				kept := run.Scratchpad.RetainedToolResults()
				logger.Info().
					Int("estimated_tokens", estimate).
					Int("cleared", cleared).
					Int("kept", kept).
					Msg("Context threshold exceeded, pruned scratchpad")
				if !emit(Event{Type: EventContextCleared, Cleared: cleared, Kept: kept}) {
					return
				}
			}
		}

		prompt = a.rebuildPrompt(run)
	}
}

func (a *Agent) request(prompt string) Request {
	return Request{
		Model:        a.cfg.Model,
		SystemPrompt: a.cfg.SystemPrompt,
		Prompt:       prompt,
		Tools:        a.executor.Registry().Definitions(),
		Temperature:  a.cfg.Temperature,
		MaxTokens:    a.cfg.MaxTokens,
	}
}

func (a *Agent) rebuildPrompt(run *RunContext) string {
	return BuildIterationPrompt(run.Query, run.Scratchpad.ToolResults(), run.Scratchpad.ToolUsageSummary())
}
