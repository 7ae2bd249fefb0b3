// v0
// internal/simulation/params.go
package simulation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"nrgchamp/cracfuzzy/internal/disturbance"
)

var (
	ErrAlreadyRunning     = errors.New("simulation already running")
	ErrNotRunning         = errors.New("no simulation running")
	ErrSetpointRange      = errors.New("setpoint out of range")
	ErrHorizonRange       = errors.New("horizon out of range")
	ErrInitialTempRange   = errors.New("initial temperature out of range")
	ErrNoGenerator        = errors.New("no disturbance generator")
	ErrGenerator          = errors.New("disturbance generator failed")
	ErrMissingBinding     = errors.New("controller input binding missing")
	ErrInvalidAlertPolicy = errors.New("invalid alert policy")
)

// DefaultHorizon is one day at one step per minute.
const DefaultHorizon = 1440

// Limits bound the parameters a caller may request. Values outside are
// rejected, never clamped.
type Limits struct {
	SetpointMin float64
	SetpointMax float64
	InitialMin  float64
	InitialMax  float64
	HorizonMax  int
}

func DefaultLimits() Limits {
	return Limits{
		SetpointMin: 15,
		SetpointMax: 30,
		InitialMin:  -10,
		InitialMax:  50,
		HorizonMax:  7 * DefaultHorizon,
	}
}

// Params describe one run.
type Params struct {
	Setpoint    float64
	InitialTemp float64
	Horizon     int
	// Pace is an optional delay between steps for live dashboards. The loop
	// stays logically periodic; Pace does not make it real-time.
	Pace      time.Duration
	Generator disturbance.Generator
}

// Validate checks p against l. A zero Horizon is replaced by DefaultHorizon
// in the returned copy.
func (p Params) Validate(l Limits) (Params, error) {
	if math.IsNaN(p.Setpoint) || p.Setpoint < l.SetpointMin || p.Setpoint > l.SetpointMax {
		return p, fmt.Errorf("%w: %g not in [%g, %g]", ErrSetpointRange, p.Setpoint, l.SetpointMin, l.SetpointMax)
	}
	if math.IsNaN(p.InitialTemp) || p.InitialTemp < l.InitialMin || p.InitialTemp > l.InitialMax {
		return p, fmt.Errorf("%w: %g not in [%g, %g]", ErrInitialTempRange, p.InitialTemp, l.InitialMin, l.InitialMax)
	}
	if p.Horizon == 0 {
		p.Horizon = DefaultHorizon
	}
	if p.Horizon < 1 || p.Horizon > l.HorizonMax {
		return p, fmt.Errorf("%w: %d not in [1, %d]", ErrHorizonRange, p.Horizon, l.HorizonMax)
	}
	if p.Pace < 0 {
		p.Pace = 0
	}
	if p.Generator == nil {
		return p, ErrNoGenerator
	}
	return p, nil
}
