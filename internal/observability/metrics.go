package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects application metrics for the agent backend.
//
// Tracks agent run outcomes, turn counts, wire events on the stream,
// LLM request performance, and session store operation latencies.
type Metrics struct {
	// RunCounter counts agent runs by mode and outcome.
	// Labels: mode (fresh|resume), outcome (completed|suspended|budget_exhausted|error)
	RunCounter *prometheus.CounterVec

	// RunTurns observes the number of generation turns consumed per run.
	// Labels: agent_key
	RunTurns *prometheus.HistogramVec

	// WireEventCounter counts wire events emitted to clients.
	// Labels: type
	WireEventCounter *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider, model
	LLMRequestDuration *prometheus.HistogramVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts server-side tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// StoreOpDuration measures session store operation latency in seconds.
	// Labels: operation (get_items|add_items|pop_item|clear_session), backend
	StoreOpDuration *prometheus.HistogramVec

	// StoreOpErrors counts degraded session store operations.
	// Labels: operation, backend
	StoreOpErrors *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all metrics on the given registerer.
// Pass prometheus.DefaultRegisterer in production; a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := func(c prometheus.Collector) {
		reg.MustRegister(c)
	}

	m := &Metrics{
		RunCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_agent_runs_total",
				Help: "Total number of agent runs by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		RunTurns: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_agent_run_turns",
				Help:    "Generation turns consumed per agent run",
				Buckets: []float64{1, 2, 3, 4, 5},
			},
			[]string{"agent_key"},
		),
		WireEventCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_wire_events_total",
				Help: "Total number of wire events emitted by type",
			},
			[]string{"type"},
		),
		LLMRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),
		LLMTokensUsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),
		ToolExecutionCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_tool_executions_total",
				Help: "Total number of server-side tool executions by name and status",
			},
			[]string{"tool_name", "status"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_store_op_duration_seconds",
				Help:    "Duration of session store operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation", "backend"},
		),
		StoreOpErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_store_op_errors_total",
				Help: "Total number of session store operations that degraded to a no-op",
			},
			[]string{"operation", "backend"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "parley_http_request_duration_seconds",
				Help:    "Duration of HTTP API requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),
	}

	factory(m.RunCounter)
	factory(m.RunTurns)
	factory(m.WireEventCounter)
	factory(m.LLMRequestDuration)
	factory(m.LLMTokensUsed)
	factory(m.ToolExecutionCounter)
	factory(m.StoreOpDuration)
	factory(m.StoreOpErrors)
	factory(m.HTTPRequestDuration)

	return m
}
