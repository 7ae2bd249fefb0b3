// v0
// internal/api/api_test.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/observability"
	"nrgchamp/cracfuzzy/internal/ruleset"
	"nrgchamp/cracfuzzy/internal/simulation"
)

type stubBackend struct {
	startErr  error
	started   *command.SimulateRequest
	cancelled bool
	running   bool
	last      *simulation.Result
	inferErr  error
	panicOn   bool
}

func (b *stubBackend) StartSimulation(_ context.Context, req command.SimulateRequest) (string, error) {
	if b.panicOn {
		panic("boom")
	}
	if b.startErr != nil {
		return "", b.startErr
	}
	b.started = &req
	return "run-1", nil
}

func (b *stubBackend) CancelSimulation() bool {
	b.cancelled = b.running
	return b.running
}

func (b *stubBackend) Infer(req command.InferRequest) (command.InferResponse, error) {
	if b.inferErr != nil {
		return command.InferResponse{}, b.inferErr
	}
	return command.InferResponse{Inputs: req.Values(), Output: 25}, nil
}

func (b *stubBackend) Status() Status {
	return Status{Running: b.running, Controller: "reference", Last: Summarize(b.last), Sinks: []SinkStatus{}}
}

func (b *stubBackend) LastRun() *simulation.Result { return b.last }

func (b *stubBackend) Definition() *ruleset.Definition {
	return ruleset.FromConfig("reference", fuzzy.Reference())
}

func finishedRun() *simulation.Result {
	res := &simulation.Result{RunID: "run-0", State: simulation.StateCompleted, Setpoint: 22, Metrics: &kpi.Metrics{Steps: 3, RMSE: 0.2}}
	for k := 0; k < 3; k++ {
		res.Records = append(res.Records, simulation.Record{Step: k, Temperature: 22 + float64(k)/10, Output: 30})
	}
	return res
}

func newTestServer(t *testing.T, b *stubBackend) (*httptest.Server, *HealthState) {
	t.Helper()
	health := NewHealthState()
	srv := httptest.NewServer(NewRouter(Deps{Backend: b, Health: health, Metrics: observability.NewMetrics()}))
	t.Cleanup(srv.Close)
	return srv, health
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv, health := newTestServer(t, &stubBackend{})
	if resp := do(t, http.MethodGet, srv.URL+"/health", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("live = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodGet, srv.URL+"/health/ready", ""); resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("ready before SetReady = %d", resp.StatusCode)
	}
	health.SetReady(true)
	if resp := do(t, http.MethodGet, srv.URL+"/health/ready", ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("ready = %d", resp.StatusCode)
	}
}

func TestPostSimulation(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		body   string
		status int
	}{
		{"accepted", nil, `{"setpoint":22,"horizon":60}`, http.StatusAccepted},
		{"empty body", nil, ``, http.StatusAccepted},
		{"running", simulation.ErrAlreadyRunning, `{}`, http.StatusConflict},
		{"range", fmt.Errorf("%w: 40", simulation.ErrSetpointRange), `{"setpoint":40}`, http.StatusBadRequest},
		{"unknown field", nil, `{"temperature":1}`, http.StatusBadRequest},
		{"internal", fmt.Errorf("disk on fire"), `{}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := &stubBackend{startErr: tc.err}
			srv, _ := newTestServer(t, b)
			resp := do(t, http.MethodPost, srv.URL+"/v1/simulations", tc.body)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if tc.status == http.StatusAccepted {
				var body map[string]string
				if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body["runId"] != "run-1" {
					t.Fatalf("body = %v err = %v", body, err)
				}
			}
		})
	}
}

func TestPostSimulationForwardsRequest(t *testing.T) {
	b := &stubBackend{}
	srv, _ := newTestServer(t, b)
	do(t, http.MethodPost, srv.URL+"/v1/simulations", `{"setpoint":23,"profile":"daily"}`)
	if b.started == nil || b.started.Setpoint == nil || *b.started.Setpoint != 23 || b.started.Profile != "daily" {
		t.Fatalf("request = %+v", b.started)
	}
}

func TestDeleteSimulation(t *testing.T) {
	b := &stubBackend{}
	srv, _ := newTestServer(t, b)
	if resp := do(t, http.MethodDelete, srv.URL+"/v1/simulations/current", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("idle cancel = %d", resp.StatusCode)
	}
	b.running = true
	if resp := do(t, http.MethodDelete, srv.URL+"/v1/simulations/current", ""); resp.StatusCode != http.StatusAccepted {
		t.Fatalf("cancel = %d", resp.StatusCode)
	}
	if !b.cancelled {
		t.Fatalf("cancel not forwarded")
	}
}

func TestLastRun(t *testing.T) {
	b := &stubBackend{}
	srv, _ := newTestServer(t, b)
	for _, path := range []string{"/v1/simulations/last", "/v1/simulations/last/chart.png", "/v1/simulations/last/records.csv"} {
		if resp := do(t, http.MethodGet, srv.URL+path, ""); resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s without a run = %d", path, resp.StatusCode)
		}
	}

	b.last = finishedRun()
	resp := do(t, http.MethodGet, srv.URL+"/v1/simulations/last?records=true", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("last = %d", resp.StatusCode)
	}
	var body struct {
		RunID   string              `json:"runId"`
		State   string              `json:"state"`
		Steps   int                 `json:"steps"`
		Metrics *kpi.Metrics        `json:"metrics"`
		Records []simulation.Record `json:"records"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RunID != "run-0" || body.State != "completed" || body.Steps != 3 || len(body.Records) != 3 || body.Metrics.RMSE != 0.2 {
		t.Fatalf("body = %+v", body)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/simulations/last/chart.png", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("chart = %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if _, err := png.DecodeConfig(resp.Body); err != nil {
		t.Fatalf("chart is not a png: %v", err)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/simulations/last/records.csv", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("csv = %d", resp.StatusCode)
	}
}

func TestInference(t *testing.T) {
	b := &stubBackend{}
	srv, _ := newTestServer(t, b)
	resp := do(t, http.MethodPost, srv.URL+"/v1/inference", `{"error":0,"delta_error":0}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("infer = %d", resp.StatusCode)
	}
	var out command.InferResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Output != 25 {
		t.Fatalf("out = %+v err = %v", out, err)
	}

	b.inferErr = fmt.Errorf("%w: error", fuzzy.ErrMissingInput)
	if resp := do(t, http.MethodPost, srv.URL+"/v1/inference", `{}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing input = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/v1/inference", `{"error":`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed = %d", resp.StatusCode)
	}
}

func TestStatusControllerAndMetrics(t *testing.T) {
	b := &stubBackend{running: true, last: finishedRun()}
	srv, _ := newTestServer(t, b)

	resp := do(t, http.MethodGet, srv.URL+"/v1/status", "")
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !st.Running || st.Last == nil || st.Last.RunID != "run-0" {
		t.Fatalf("status = %+v", st)
	}

	resp = do(t, http.MethodGet, srv.URL+"/v1/controller", "")
	var def ruleset.Definition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		t.Fatalf("decode controller: %v", err)
	}
	if len(def.Inputs) != 2 || len(def.Rules) != 25 {
		t.Fatalf("controller = %d inputs, %d rules", len(def.Inputs), len(def.Rules))
	}

	resp = do(t, http.MethodGet, srv.URL+"/metrics", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}

func TestRoutingErrorsAndRecovery(t *testing.T) {
	b := &stubBackend{panicOn: true}
	srv, _ := newTestServer(t, b)
	if resp := do(t, http.MethodGet, srv.URL+"/nope", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPut, srv.URL+"/v1/simulations", ""); resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method = %d", resp.StatusCode)
	}
	if resp := do(t, http.MethodPost, srv.URL+"/v1/simulations", "{}"); resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("panic = %d", resp.StatusCode)
	}
}
