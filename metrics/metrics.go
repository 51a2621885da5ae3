// Package metrics exposes Prometheus counters for tool and model traffic.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "soil_agent"

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics groups the counters recorded by the agent and its tools.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	toolCalls       *prometheus.CounterVec
	weatherRequests *prometheus.CounterVec
	modelRequests   *prometheus.CounterVec
}

// New creates the counters and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool invocations made by the agent loop.",
		}, []string{"tool", "outcome"}),
		weatherRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_requests_total",
			Help:      "Outbound requests to the weather provider.",
		}, []string{"outcome"}),
		modelRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_requests_total",
			Help:      "Requests sent to the language model backend.",
		}, []string{"provider", "outcome"}),
	}
	reg.MustRegister(m.toolCalls, m.weatherRequests, m.modelRequests)
	return m
}

// ToolCall records one tool invocation.
func (m *Metrics) ToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

// WeatherRequest records one request to the weather provider.
func (m *Metrics) WeatherRequest(outcome string) {
	if m == nil {
		return
	}
	m.weatherRequests.WithLabelValues(outcome).Inc()
}

// ModelRequest records one request to the model backend.
func (m *Metrics) ModelRequest(provider, outcome string) {
	if m == nil {
		return
	}
	m.modelRequests.WithLabelValues(provider, outcome).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
