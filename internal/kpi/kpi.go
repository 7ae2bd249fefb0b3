// v0
// internal/kpi/kpi.go
package kpi

// Sample is one simulation step as seen by the metrics collector.
type Sample struct {
	Temperature float64 // resulting room temperature, °C
	Output      float64 // control output, %
	Error       float64 // controller error at the start of the step, °C
}

// Band is an inclusive temperature interval.
type Band struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (b Band) Contains(v float64) bool { return v >= b.Low && v <= b.High }

// Options configures Compute.
type Options struct {
	Setpoint     float64
	Comfort      Band
	Safety       Band
	StepDuration float64 // energy weight per step; one minute in the reference run
}

// DefaultOptions returns the data-hall defaults: comfort 20–24 °C, safety
// 18–26 °C, unit step.
func DefaultOptions(setpoint float64) Options {
	return Options{
		Setpoint:     setpoint,
		Comfort:      Band{Low: 20, High: 24},
		Safety:       Band{Low: 18, High: 26},
		StepDuration: 1,
	}
}

// Stats is a min/max/mean triple.
type Stats struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
}

// Percentiles of the absolute deviation from the setpoint (°C).
type Percentiles struct {
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

// Metrics is the immutable summary of a run.
type Metrics struct {
	Steps       int         `json:"steps"`
	RMSE        float64     `json:"rmse"`
	ComfortPct  float64     `json:"comfortPct"` // % of steps inside the comfort band
	Energy      float64     `json:"energy"`     // Σ output × step duration
	Violations  int         `json:"violations"` // steps outside the safety band
	Temperature Stats       `json:"temperature"`
	Output      Stats       `json:"output"`
	Error       Stats       `json:"error"`
	Deviation   Percentiles `json:"deviation"`
	// Unrecorded counts steps missing from Deviation (non-finite temperature).
	Unrecorded int `json:"unrecorded,omitempty"`
}
