// v0
// internal/simulation/alerts.go
package simulation

import (
	"fmt"

	"nrgchamp/cracfuzzy/internal/kpi"
)

// AlertPolicy decides which steps raise alerts.
//
//   - CRITICAL: resulting temperature outside Safety.
//   - EFFICIENCY (HIGH): output above EfficiencyOutput in at least
//     EfficiencyCount of the last EfficiencyWindow steps, current included.
//   - STABILITY (MEDIUM): population variance of the last StabilityWindow
//     temperatures above StabilityVariance.
//
// A zero window disables the corresponding check.
type AlertPolicy struct {
	Safety kpi.Band

	EfficiencyOutput float64
	EfficiencyWindow int
	EfficiencyCount  int

	StabilityWindow   int
	StabilityVariance float64
}

func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		Safety:            kpi.Band{Low: 18, High: 26},
		EfficiencyOutput:  95,
		EfficiencyWindow:  10,
		EfficiencyCount:   8,
		StabilityWindow:   10,
		StabilityVariance: 2.0,
	}
}

func (p AlertPolicy) Validate() error {
	if p.Safety.Low >= p.Safety.High {
		return fmt.Errorf("%w: safety band [%g, %g]", ErrInvalidAlertPolicy, p.Safety.Low, p.Safety.High)
	}
	if p.EfficiencyWindow < 0 || p.EfficiencyCount > p.EfficiencyWindow {
		return fmt.Errorf("%w: efficiency %d of %d", ErrInvalidAlertPolicy, p.EfficiencyCount, p.EfficiencyWindow)
	}
	if p.StabilityWindow < 0 || p.StabilityWindow == 1 {
		return fmt.Errorf("%w: stability window %d", ErrInvalidAlertPolicy, p.StabilityWindow)
	}
	return nil
}

// alertState is per-run; it only looks at the tail of the history.
type alertState struct {
	policy AlertPolicy
}

func (a alertState) check(history []Record) []AlertEvent {
	if len(history) == 0 {
		return nil
	}
	cur := history[len(history)-1]
	var out []AlertEvent
	p := a.policy

	if !p.Safety.Contains(cur.Temperature) {
		out = append(out, AlertEvent{
			Step:        cur.Step,
			Temperature: cur.Temperature,
			Kind:        AlertCritical,
			Severity:    SeverityCritical,
			Message:     fmt.Sprintf("critical temperature %.1f°C outside [%g, %g]", cur.Temperature, p.Safety.Low, p.Safety.High),
		})
	}

	if p.EfficiencyWindow > 0 && cur.Output > p.EfficiencyOutput {
		n := 0
		for _, r := range tail(history, p.EfficiencyWindow) {
			if r.Output > p.EfficiencyOutput {
				n++
			}
		}
		if n >= p.EfficiencyCount {
			out = append(out, AlertEvent{
				Step:        cur.Step,
				Temperature: cur.Temperature,
				Kind:        AlertEfficiency,
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("cooling above %g%% in %d of the last %d steps", p.EfficiencyOutput, n, p.EfficiencyWindow),
			})
		}
	}

	if p.StabilityWindow > 0 && len(history) >= p.StabilityWindow {
		if v := variance(tail(history, p.StabilityWindow)); v > p.StabilityVariance {
			out = append(out, AlertEvent{
				Step:        cur.Step,
				Temperature: cur.Temperature,
				Kind:        AlertStability,
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("temperature oscillating (variance %.2f)", v),
			})
		}
	}
	return out
}

func tail(h []Record, n int) []Record {
	if len(h) <= n {
		return h
	}
	return h[len(h)-n:]
}

func variance(rs []Record) float64 {
	var sum float64
	for _, r := range rs {
		sum += r.Temperature
	}
	mean := sum / float64(len(rs))
	var sq float64
	for _, r := range rs {
		d := r.Temperature - mean
		sq += d * d
	}
	return sq / float64(len(rs))
}
