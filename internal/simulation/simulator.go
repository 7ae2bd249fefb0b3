// v0
// internal/simulation/simulator.go
package simulation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/plant"
)

// Bindings name the engine inputs fed by the loop. Error and DeltaError
// are required; External and Load are fed only when the controller declares
// inputs with those names.
type Bindings struct {
	Error      string
	DeltaError string
	External   string
	Load       string
}

func DefaultBindings() Bindings {
	return Bindings{
		Error:      fuzzy.VarError,
		DeltaError: fuzzy.VarDeltaError,
		External:   fuzzy.VarExternalTemp,
		Load:       fuzzy.VarThermalLoad,
	}
}

// Options configure a Simulator. Zero values select the defaults.
type Options struct {
	Engine    *fuzzy.Engine
	Plant     plant.Coefficients
	Bindings  Bindings
	Alerts    AlertPolicy
	KPI       kpi.Options // Setpoint is overridden by each run
	Limits    Limits
	Observers []Observer
	Logger    *slog.Logger
}

// Simulator couples the engine to the plant. It runs at most one
// simulation at a time.
type Simulator struct {
	engine    *fuzzy.Engine
	plant     plant.Coefficients
	errVar    *fuzzy.Variable
	deltaVar  *fuzzy.Variable
	extVar    *fuzzy.Variable
	loadVar   *fuzzy.Variable
	alerts    AlertPolicy
	kpi       kpi.Options
	limits    Limits
	observers []Observer
	log       *slog.Logger

	guard Guard
	mu    sync.Mutex
	state State
	last  *Result
}

// New validates opts and binds the loop signals to engine inputs.
func New(opts Options) (*Simulator, error) {
	if opts.Engine == nil {
		return nil, fmt.Errorf("%w: engine is nil", ErrMissingBinding)
	}
	s := &Simulator{
		engine:    opts.Engine,
		plant:     opts.Plant,
		alerts:    opts.Alerts,
		kpi:       opts.KPI,
		limits:    opts.Limits,
		observers: opts.Observers,
		log:       opts.Logger,
	}
	if s.plant == (plant.Coefficients{}) {
		s.plant = plant.Reference()
	}
	if err := s.plant.Validate(); err != nil {
		return nil, err
	}
	if s.alerts == (AlertPolicy{}) {
		s.alerts = DefaultAlertPolicy()
	}
	if err := s.alerts.Validate(); err != nil {
		return nil, err
	}
	if s.kpi.StepDuration == 0 {
		s.kpi = kpi.DefaultOptions(0)
	}
	if s.limits == (Limits{}) {
		s.limits = DefaultLimits()
	}
	if s.log == nil {
		s.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := opts.Bindings
	if b == (Bindings{}) {
		b = DefaultBindings()
	}
	var ok bool
	if s.errVar, ok = opts.Engine.Input(b.Error); !ok {
		return nil, fmt.Errorf("%w: error input %q", ErrMissingBinding, b.Error)
	}
	if s.deltaVar, ok = opts.Engine.Input(b.DeltaError); !ok {
		return nil, fmt.Errorf("%w: delta-error input %q", ErrMissingBinding, b.DeltaError)
	}
	s.extVar, _ = opts.Engine.Input(b.External)
	s.loadVar, _ = opts.Engine.Input(b.Load)
	for _, v := range opts.Engine.Inputs() {
		if v != s.errVar && v != s.deltaVar && v != s.extVar && v != s.loadVar {
			return nil, fmt.Errorf("%w: no loop signal feeds input %q", ErrMissingBinding, v.Name())
		}
	}
	return s, nil
}

// Run executes a simulation on the calling goroutine. Validation errors and
// ErrAlreadyRunning return a nil result. A generator failure returns the
// cancelled result with its partial history together with the error.
func (s *Simulator) Run(ctx context.Context, p Params) (*Result, error) {
	h, p, err := s.begin(p)
	if err != nil {
		return nil, err
	}
	res := s.run(ctx, h, p)
	return res, res.Err
}

// Start executes a simulation in the background. The returned channel
// yields the result once and is then closed.
func (s *Simulator) Start(ctx context.Context, p Params) (string, <-chan *Result, error) {
	h, p, err := s.begin(p)
	if err != nil {
		return "", nil, err
	}
	done := make(chan *Result, 1)
	go func() {
		defer close(done)
		done <- s.run(ctx, h, p)
	}()
	return h.ID(), done, nil
}

// Cancel asks the active run to stop before its next step.
func (s *Simulator) Cancel() bool {
	ok := s.guard.Cancel()
	if ok {
		s.log.Info("simulation_cancel_requested", "runId", s.guard.ActiveID())
	}
	return ok
}

func (s *Simulator) IsRunning() bool { return s.guard.IsRunning() }

// CurrentRunID returns the active run id, or "".
func (s *Simulator) CurrentRunID() string { return s.guard.ActiveID() }

func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Last returns the most recent finished run, or nil.
func (s *Simulator) Last() *Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Simulator) Engine() *fuzzy.Engine { return s.engine }

func (s *Simulator) Limits() Limits { return s.limits }

func (s *Simulator) begin(p Params) (*Handle, Params, error) {
	p, err := p.Validate(s.limits)
	if err != nil {
		return nil, p, err
	}
	h, err := s.guard.TryStart(uuid.NewString())
	if err != nil {
		s.log.Warn("simulation_rejected", "err", err, "runId", s.guard.ActiveID())
		return nil, p, err
	}
	s.setState(StateRunning)
	s.log.Info("simulation_started", "runId", h.ID(), "setpoint", p.Setpoint, "initialTemp", p.InitialTemp, "horizon", p.Horizon)
	return h, p, nil
}

func (s *Simulator) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Simulator) run(ctx context.Context, h *Handle, p Params) *Result {
	res := &Result{RunID: h.ID(), State: StateCompleted, Setpoint: p.Setpoint}
	records := make([]Record, 0, p.Horizon)
	alerts := alertState{policy: s.alerts}
	temp := p.InitialTemp
	prevErr := 0.0

	for k := 0; k < p.Horizon; k++ {
		if h.Cancelled() || ctx.Err() != nil {
			res.State = StateCancelled
			break
		}
		d, err := p.Generator.Sample(k)
		if err != nil {
			res.State = StateCancelled
			res.Err = fmt.Errorf("%w at step %d: %w", ErrGenerator, k, err)
			break
		}

		e := temp - p.Setpoint
		de := e - prevErr
		in := map[string]float64{
			s.errVar.Name():   s.errVar.Clamp(e),
			s.deltaVar.Name(): s.deltaVar.Clamp(de),
		}
		if s.extVar != nil {
			in[s.extVar.Name()] = s.extVar.Clamp(d.ExternalTemp)
		}
		if s.loadVar != nil {
			in[s.loadVar.Name()] = s.loadVar.Clamp(d.ThermalLoad)
		}
		out, err := s.engine.Infer(in)
		if err != nil {
			res.State = StateCancelled
			res.Err = fmt.Errorf("step %d: %w", k, err)
			break
		}

		rec := Record{
			Step:         k,
			StartTemp:    temp,
			ExternalTemp: d.ExternalTemp,
			ThermalLoad:  d.ThermalLoad,
			Error:        e,
			DeltaError:   de,
			Output:       out.Output,
			Temperature:  s.plant.Next(temp, out.Output, d.ThermalLoad, d.ExternalTemp),
			Fallback:     out.Fallback,
		}
		records = append(records, rec)
		if rec.Fallback {
			res.Fallbacks++
		}

		s.emitStep(StepEvent{RunID: res.RunID, Record: rec})
		for _, a := range alerts.check(records) {
			a.RunID = res.RunID
			res.Alerts++
			s.emitAlert(a)
		}

		prevErr = e
		temp = rec.Temperature

		if p.Pace > 0 && k+1 < p.Horizon {
			t := time.NewTimer(p.Pace)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
			case <-h.Done():
				t.Stop()
			}
		}
	}

	res.Records = records
	res.Metrics = s.metrics(records, p.Setpoint)

	s.mu.Lock()
	s.last = res
	s.state = StateIdle
	s.mu.Unlock()
	h.Release()

	if res.Err != nil {
		s.log.Error("simulation_failed", "runId", res.RunID, "steps", len(records), "err", res.Err)
	} else {
		s.log.Info("simulation_finished", "runId", res.RunID, "state", res.State, "steps", len(records), "fallbacks", res.Fallbacks, "alerts", res.Alerts)
	}
	s.emitComplete(CompletionEvent{RunID: res.RunID, State: res.State, Steps: len(records), Metrics: res.Metrics, Err: res.Err})
	return res
}

func (s *Simulator) metrics(records []Record, setpoint float64) *kpi.Metrics {
	samples := make([]kpi.Sample, len(records))
	for i, r := range records {
		samples[i] = kpi.Sample{Temperature: r.Temperature, Output: r.Output, Error: r.Error}
	}
	opts := s.kpi
	opts.Setpoint = setpoint
	return kpi.Compute(samples, opts)
}

func (s *Simulator) emitStep(e StepEvent) {
	for _, o := range s.observers {
		o.OnStep(e)
	}
}

func (s *Simulator) emitAlert(e AlertEvent) {
	for _, o := range s.observers {
		o.OnAlert(e)
	}
}

func (s *Simulator) emitComplete(e CompletionEvent) {
	for _, o := range s.observers {
		o.OnComplete(e)
	}
}
