package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	runTotal      *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runIterations prometheus.Histogram

	modelCallTotal  *prometheus.CounterVec
	tokensTotal     *prometheus.CounterVec
	contextPrunes   *prometheus.CounterVec
	overflowRetries prometheus.Counter

	toolExecutionTotal    *prometheus.CounterVec
	toolExecutionDuration *prometheus.HistogramVec
	toolDenialsTotal      prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			runTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "agent_run_total",
					Help: "Total agent runs by provider and status.",
				},
				[]string{"provider", "status"},
			),
			runDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "agent_run_duration_seconds",
					Help:    "Agent run duration in seconds by provider.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"provider"},
			),
			runIterations: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "agent_run_iterations",
					Help:    "Model-call iterations per run.",
					Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
				},
			),
			modelCallTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_call_total",
					Help: "Total model calls by provider and status.",
				},
				[]string{"provider", "status"},
			),
			tokensTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "model_tokens_total",
					Help: "Total tokens consumed by direction.",
				},
				[]string{"direction"},
			),
			contextPrunes: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "context_prunes_total",
					Help: "Total scratchpad prunes by trigger (overflow or threshold).",
				},
				[]string{"trigger"},
			),
			overflowRetries: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "context_overflow_retries_total",
					Help: "Total model-call retries after provider overflow rejections.",
				},
			),
			toolExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "tool_execution_total",
					Help: "Total tool executions by tool and status.",
				},
				[]string{"tool", "status"},
			),
			toolExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "tool_execution_duration_seconds",
					Help:    "Tool execution duration in seconds by tool.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"tool"},
			),
			toolDenialsTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "tool_denials_total",
					Help: "Total runs terminated by an approval denial.",
				},
			),
		}

		prometheus.MustRegister(
			m.runTotal,
			m.runDuration,
			m.runIterations,
			m.modelCallTotal,
			m.tokensTotal,
			m.contextPrunes,
			m.overflowRetries,
			m.toolExecutionTotal,
			m.toolExecutionDuration,
			m.toolDenialsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

// Handler exposes the default prometheus scrape endpoint.
func Handler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

// RecordRun records the outcome and duration of one agent run.
func RecordRun(provider string, duration time.Duration, iterations int, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.runTotal.WithLabelValues(provider, status).Inc()
	m.runDuration.WithLabelValues(provider).Observe(duration.Seconds())
	m.runIterations.Observe(float64(iterations))
}

// RecordModelCall records one model invocation.
func RecordModelCall(provider string, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.modelCallTotal.WithLabelValues(provider, status).Inc()
}

// AddTokens accumulates reported token usage.
func AddTokens(prompt, completion int) {
	m := getMetrics()
	m.tokensTotal.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensTotal.WithLabelValues("completion").Add(float64(completion))
}

// RecordContextPrune records a scratchpad prune and its trigger.
func RecordContextPrune(trigger string) {
	getMetrics().contextPrunes.WithLabelValues(trigger).Inc()
}

// RecordOverflowRetry records a retry after a provider overflow rejection.
func RecordOverflowRetry() {
	getMetrics().overflowRetries.Inc()
}

// RecordToolExecution records one tool invocation outcome.
func RecordToolExecution(tool string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.toolExecutionTotal.WithLabelValues(tool, status).Inc()
	m.toolExecutionDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordToolDenial records a run terminated by approval denial.
func RecordToolDenial() {
	getMetrics().toolDenialsTotal.Inc()
}
