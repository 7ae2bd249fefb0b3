// v0
// internal/simulation/events.go
package simulation

import (
	"fmt"

	"nrgchamp/cracfuzzy/internal/kpi"
)

// State of the loop.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Record is one step of history.
type Record struct {
	Step         int     `json:"step"`
	StartTemp    float64 `json:"start_temperature"`
	ExternalTemp float64 `json:"external_temperature"`
	ThermalLoad  float64 `json:"thermal_load"`
	Error        float64 `json:"error"`
	DeltaError   float64 `json:"delta_error"`
	Output       float64 `json:"control_output"`
	Temperature  float64 `json:"temperature"`
	Fallback     bool    `json:"fallback"`
}

// Result of a finished run.
type Result struct {
	RunID     string       `json:"run_id"`
	State     State        `json:"state"`
	Setpoint  float64      `json:"setpoint"`
	Records   []Record     `json:"records"`
	Metrics   *kpi.Metrics `json:"metrics"`
	Fallbacks int          `json:"fallbacks"`
	Alerts    int          `json:"alerts"`
	Err       error        `json:"-"`
}

// StepEvent is emitted after every completed step.
type StepEvent struct {
	RunID  string
	Record Record
}

// Alert kinds and severities.
const (
	AlertCritical   = "CRITICAL"
	AlertEfficiency = "EFFICIENCY"
	AlertStability  = "STABILITY"

	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
)

// AlertEvent is emitted when a step breaches the alert policy.
type AlertEvent struct {
	RunID       string
	Step        int
	Temperature float64
	Kind        string
	Severity    string
	Message     string
}

// CompletionEvent closes every run that was started, including cancelled
// and failed ones.
type CompletionEvent struct {
	RunID   string
	State   State
	Steps   int
	Metrics *kpi.Metrics
	Err     error
}

// Observer receives events synchronously on the loop goroutine right after
// the step that produced them. Implementations must not block; transports
// wrap themselves in a buffered dispatcher.
type Observer interface {
	OnStep(StepEvent)
	OnAlert(AlertEvent)
	OnComplete(CompletionEvent)
}

// ObserverFuncs adapts optional callbacks to Observer.
type ObserverFuncs struct {
	Step     func(StepEvent)
	Alert    func(AlertEvent)
	Complete func(CompletionEvent)
}

func (o ObserverFuncs) OnStep(e StepEvent) {
	if o.Step != nil {
		o.Step(e)
	}
}

func (o ObserverFuncs) OnAlert(e AlertEvent) {
	if o.Alert != nil {
		o.Alert(e)
	}
}

func (o ObserverFuncs) OnComplete(e CompletionEvent) {
	if o.Complete != nil {
		o.Complete(e)
	}
}
