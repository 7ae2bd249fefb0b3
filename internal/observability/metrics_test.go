// v0
// internal/observability/metrics_test.go
package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"nrgchamp/cracfuzzy/internal/circuitbreaker"
	"nrgchamp/cracfuzzy/internal/simulation"
)

func TestObserverCounters(t *testing.T) {
	m := NewMetrics()

	m.OnStep(simulation.StepEvent{Record: simulation.Record{Step: 0, Temperature: 22.5, Output: 40}})
	if got := testutil.ToFloat64(m.running); got != 1 {
		t.Fatalf("running = %v, want 1", got)
	}
	m.OnStep(simulation.StepEvent{Record: simulation.Record{Step: 1, Temperature: 22.1, Output: 35, Fallback: true}})
	m.OnAlert(simulation.AlertEvent{Kind: simulation.AlertCritical})
	m.OnAlert(simulation.AlertEvent{Kind: simulation.AlertCritical})
	m.OnComplete(simulation.CompletionEvent{State: simulation.StateCompleted})
	m.OnComplete(simulation.CompletionEvent{State: simulation.StateCancelled, Err: errors.New("generator")})

	if got := testutil.ToFloat64(m.stepsTotal); got != 2 {
		t.Fatalf("steps = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.fallbacksTotal); got != 1 {
		t.Fatalf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.lastTemperature); got != 22.1 {
		t.Fatalf("temperature = %v, want 22.1", got)
	}
	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues(simulation.AlertCritical)); got != 2 {
		t.Fatalf("critical alerts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("completed")); got != 1 {
		t.Fatalf("completed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.runsTotal.WithLabelValues("failed")); got != 1 {
		t.Fatalf("failed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.running); got != 0 {
		t.Fatalf("running = %v, want 0", got)
	}
}

func TestCircuitBreakerGauge(t *testing.T) {
	m := NewMetrics()
	cases := []struct {
		state circuitbreaker.State
		want  float64
	}{
		{circuitbreaker.Open, 2},
		{circuitbreaker.HalfOpen, 1},
		{circuitbreaker.Closed, 0},
	}
	for _, tc := range cases {
		m.SetCircuitBreakerState("kafka", tc.state)
		if got := testutil.ToFloat64(m.cbState.WithLabelValues("kafka")); got != tc.want {
			t.Fatalf("%s: gauge = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := NewMetrics()
	m.Inference(time.Millisecond, false)
	m.EventDropped("mqtt")

	wrapped := m.WrapHandler("/metrics", m.Handler())
	rec := httptest.NewRecorder()
	wrapped.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"crac_inference_duration_seconds_count 1", `crac_events_dropped_total{sink="mqtt"} 1`} {
		if !strings.Contains(string(body), name) {
			t.Fatalf("metrics output missing %q", name)
		}
	}
	if got := testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("/metrics", "200")); got != 1 {
		t.Fatalf("http requests = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.OnStep(simulation.StepEvent{})
	m.OnAlert(simulation.AlertEvent{})
	m.OnComplete(simulation.CompletionEvent{})
	m.Inference(time.Millisecond, true)
	m.EventDropped("x")
	m.PublishFailed("x")
	m.SetCircuitBreakerState("x", circuitbreaker.Open)
	if m.Registry() != nil {
		t.Fatalf("nil metrics must have no registry")
	}
}
