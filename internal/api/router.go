// v0
// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/logging"
	"nrgchamp/cracfuzzy/internal/observability"
	"nrgchamp/cracfuzzy/internal/report"
	"nrgchamp/cracfuzzy/internal/ruleset"
	"nrgchamp/cracfuzzy/internal/simulation"
)

// Backend is the service surface the handlers drive.
type Backend interface {
	command.Controller
	Status() Status
	LastRun() *simulation.Result
	Definition() *ruleset.Definition
}

// SinkStatus describes one event sink.
type SinkStatus struct {
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
	Published uint64 `json:"published"`
	Dropped   uint64 `json:"dropped"`
	Failed    uint64 `json:"failed"`
	Breaker   string `json:"breaker,omitempty"`
}

// Status is served by GET /v1/status.
type Status struct {
	Running    bool         `json:"running"`
	RunID      string       `json:"runId,omitempty"`
	Controller string       `json:"controller"`
	Last       *RunSummary  `json:"last,omitempty"`
	Sinks      []SinkStatus `json:"sinks"`
}

type Deps struct {
	Logger  *slog.Logger
	Health  *HealthState
	Backend Backend
	Metrics *observability.Metrics
	Chart   report.ChartOptions
	// AllowedOrigins for CORS; empty allows any origin.
	AllowedOrigins []string
}

// NewRouter wires the HTTP routes and wraps them with recovery, CORS and
// access logging.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	h := &handler{log: d.Logger, backend: d.Backend, chart: d.Chart}

	r := mux.NewRouter()
	route := func(path string, fn http.HandlerFunc, methods ...string) {
		r.Handle(path, d.Metrics.WrapHandler(path, fn)).Methods(methods...)
	}
	route("/health", healthLive, http.MethodGet)
	route("/health/ready", healthReady(d.Health), http.MethodGet)
	route("/v1/status", h.getStatus, http.MethodGet)
	route("/v1/controller", h.getController, http.MethodGet)
	route("/v1/simulations", h.postSimulation, http.MethodPost)
	route("/v1/simulations/current", h.deleteSimulation, http.MethodDelete)
	route("/v1/simulations/last", h.getLast, http.MethodGet)
	route("/v1/simulations/last/chart.png", h.getLastChart, http.MethodGet)
	route("/v1/simulations/last/records.csv", h.getLastCSV, http.MethodGet)
	route("/v1/inference", h.postInference, http.MethodPost)
	r.Handle("/metrics", d.Metrics.Handler()).Methods(http.MethodGet)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{d.Logger}),
		handlers.PrintRecoveryStack(false),
	)
	return WrapWithLogging(d.Logger, recovery(cors(r)))
}

func healthLive(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func healthReady(health *HealthState) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if !health.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("NOT_READY"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}
