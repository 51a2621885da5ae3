package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersIncrement(t *testing.T) {
	t.Parallel()

	m := New(prometheus.NewRegistry())
	m.ToolCall("get_soil_npk", OutcomeOK)
	m.ToolCall("get_soil_npk", OutcomeOK)
	m.WeatherRequest(OutcomeError)
	m.ModelRequest("gemini", OutcomeOK)

	if got := testutil.ToFloat64(m.toolCalls.WithLabelValues("get_soil_npk", OutcomeOK)); got != 2 {
		t.Fatalf("tool calls = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.weatherRequests.WithLabelValues(OutcomeError)); got != 1 {
		t.Fatalf("weather requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.modelRequests.WithLabelValues("gemini", OutcomeOK)); got != 1 {
		t.Fatalf("model requests = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ToolCall("x", OutcomeOK)
	m.WeatherRequest(OutcomeOK)
	m.ModelRequest("ollama", OutcomeError)
}

func TestHandlerExposesCounters(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := New(reg)
	m.WeatherRequest(OutcomeOK)

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `soil_agent_weather_requests_total{outcome="ok"} 1`) {
		t.Fatalf("metric missing from output:\n%s", rec.Body.String())
	}
}
