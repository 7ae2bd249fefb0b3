// v0
// internal/observability/metrics.go
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nrgchamp/cracfuzzy/internal/circuitbreaker"
	"nrgchamp/cracfuzzy/internal/simulation"
)

// Metrics groups the process collectors. It also observes simulations, so
// it can be passed to simulation.Options.Observers directly. All methods are
// safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	runsTotal         *prometheus.CounterVec
	stepsTotal        prometheus.Counter
	alertsTotal       *prometheus.CounterVec
	fallbacksTotal    prometheus.Counter
	running           prometheus.Gauge
	lastTemperature   prometheus.Gauge
	lastOutput        prometheus.Gauge
	inferDuration     prometheus.Histogram
	droppedTotal      *prometheus.CounterVec
	publishErrors     *prometheus.CounterVec
	cbState           *prometheus.GaugeVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crac_simulations_total",
			Help: "Finished simulations by final state.",
		}, []string{"state"}),
		stepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crac_simulation_steps_total",
			Help: "Simulated steps across all runs.",
		}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crac_alerts_total",
			Help: "Alerts raised by kind.",
		}, []string{"kind"}),
		fallbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crac_inference_fallbacks_total",
			Help: "Steps or point inferences that returned the fallback output.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crac_simulation_running",
			Help: "1 while a simulation is active.",
		}),
		lastTemperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crac_room_temperature_celsius",
			Help: "Room temperature after the latest simulated step.",
		}),
		lastOutput: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crac_control_output_percent",
			Help: "Cooling power chosen at the latest simulated step.",
		}),
		inferDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "crac_inference_duration_seconds",
			Help:    "Histogram of point inference durations.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
		}),
		droppedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crac_events_dropped_total",
			Help: "Events dropped because a sink queue was full.",
		}, []string{"sink"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crac_publish_errors_total",
			Help: "Events a sink failed to publish.",
		}, []string{"sink"}),
		cbState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cb_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"target"}),
	}

	m.registry.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.runsTotal,
		m.stepsTotal,
		m.alertsTotal,
		m.fallbacksTotal,
		m.running,
		m.lastTemperature,
		m.lastOutput,
		m.inferDuration,
		m.droppedTotal,
		m.publishErrors,
		m.cbState,
	)
	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		duration := time.Since(start).Seconds()
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(duration)
		}
	})
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) OnStep(e simulation.StepEvent) {
	if m == nil {
		return
	}
	if e.Record.Step == 0 {
		m.running.Set(1)
	}
	m.stepsTotal.Inc()
	m.lastTemperature.Set(e.Record.Temperature)
	m.lastOutput.Set(e.Record.Output)
	if e.Record.Fallback {
		m.fallbacksTotal.Inc()
	}
}

func (m *Metrics) OnAlert(e simulation.AlertEvent) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(e.Kind).Inc()
}

func (m *Metrics) OnComplete(e simulation.CompletionEvent) {
	if m == nil {
		return
	}
	m.running.Set(0)
	state := e.State.String()
	if e.Err != nil {
		state = "failed"
	}
	m.runsTotal.WithLabelValues(state).Inc()
}

// Inference records one point inference.
func (m *Metrics) Inference(d time.Duration, fallback bool) {
	if m == nil {
		return
	}
	m.inferDuration.Observe(d.Seconds())
	if fallback {
		m.fallbacksTotal.Inc()
	}
}

func (m *Metrics) EventDropped(sink string) {
	if m == nil {
		return
	}
	m.droppedTotal.WithLabelValues(sink).Inc()
}

func (m *Metrics) PublishFailed(sink string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(sink).Inc()
}

func (m *Metrics) SetCircuitBreakerState(target string, state circuitbreaker.State) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case circuitbreaker.HalfOpen:
		v = 1
	case circuitbreaker.Open:
		v = 2
	}
	m.cbState.WithLabelValues(target).Set(v)
}
