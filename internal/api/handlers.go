// v0
// internal/api/handlers.go
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/disturbance"
	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/report"
	"nrgchamp/cracfuzzy/internal/simulation"
)

const maxBody = 1 << 20

// RunSummary is a finished run without its step history.
type RunSummary struct {
	RunID     string       `json:"runId"`
	State     string       `json:"state"`
	Setpoint  float64      `json:"setpoint"`
	Steps     int          `json:"steps"`
	Fallbacks int          `json:"fallbacks"`
	Alerts    int          `json:"alerts"`
	Metrics   *kpi.Metrics `json:"metrics"`
	Error     string       `json:"error,omitempty"`
}

func Summarize(res *simulation.Result) *RunSummary {
	if res == nil {
		return nil
	}
	s := &RunSummary{
		RunID:     res.RunID,
		State:     res.State.String(),
		Setpoint:  res.Setpoint,
		Steps:     len(res.Records),
		Fallbacks: res.Fallbacks,
		Alerts:    res.Alerts,
		Metrics:   res.Metrics,
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

type handler struct {
	log     *slog.Logger
	backend Backend
	chart   report.ChartOptions
}

func (h *handler) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Status())
}

func (h *handler) getController(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Definition())
}

func (h *handler) postSimulation(w http.ResponseWriter, r *http.Request) {
	var req command.SimulateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	runID, err := h.backend.StartSimulation(r.Context(), req)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error("simulation_start_failed", "err", err)
		}
		writeError(w, status, err.Error())
		return
	}
	w.Header().Set("Location", "/v1/simulations/last")
	writeJSON(w, http.StatusAccepted, map[string]string{"runId": runID})
}

func (h *handler) deleteSimulation(w http.ResponseWriter, _ *http.Request) {
	if !h.backend.CancelSimulation() {
		writeError(w, http.StatusNotFound, simulation.ErrNotRunning.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"cancelled": true})
}

func (h *handler) getLast(w http.ResponseWriter, r *http.Request) {
	res := h.backend.LastRun()
	if res == nil {
		writeError(w, http.StatusNotFound, "no finished simulation")
		return
	}
	if r.URL.Query().Get("records") == "true" {
		writeJSON(w, http.StatusOK, struct {
			*RunSummary
			Records []simulation.Record `json:"records"`
		}{Summarize(res), res.Records})
		return
	}
	writeJSON(w, http.StatusOK, Summarize(res))
}

func (h *handler) getLastChart(w http.ResponseWriter, _ *http.Request) {
	res := h.backend.LastRun()
	if res == nil || len(res.Records) == 0 {
		writeError(w, http.StatusNotFound, "no finished simulation")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := report.WriteChart(w, res, h.chart); err != nil {
		h.log.Error("chart_render_failed", "runId", res.RunID, "err", err)
	}
}

func (h *handler) getLastCSV(w http.ResponseWriter, _ *http.Request) {
	res := h.backend.LastRun()
	if res == nil {
		writeError(w, http.StatusNotFound, "no finished simulation")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	if err := report.WriteCSV(w, res); err != nil {
		h.log.Error("csv_write_failed", "runId", res.RunID, "err", err)
	}
}

func (h *handler) postInference(w http.ResponseWriter, r *http.Request) {
	var req command.InferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.backend.Infer(req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, simulation.ErrAlreadyRunning):
		return http.StatusConflict
	case errors.Is(err, simulation.ErrSetpointRange),
		errors.Is(err, simulation.ErrHorizonRange),
		errors.Is(err, simulation.ErrInitialTempRange),
		errors.Is(err, disturbance.ErrUnknownProfile),
		errors.Is(err, fuzzy.ErrMissingInput),
		errors.Is(err, fuzzy.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decodeBody accepts an empty body as the zero request.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
