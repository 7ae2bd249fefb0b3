// v0
// internal/plant/plant.go
package plant

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCoefficients = errors.New("invalid plant coefficients")

// Coefficients of the discrete room model
//
//	T[k+1] = Retention*T[k] - Cooling*P[k] + Load*Q[k] + Ambient*Text[k] + Offset
//
// with T and Text in °C, P the cooling effort (%) and Q the IT load (%).
type Coefficients struct {
	Retention float64 `json:"retention"`
	Cooling   float64 `json:"cooling"`
	Load      float64 `json:"load"`
	Ambient   float64 `json:"ambient"`
	Offset    float64 `json:"offset"`
}

// Reference returns the calibrated data-hall model.
func Reference() Coefficients {
	return Coefficients{Retention: 0.9, Cooling: 0.08, Load: 0.05, Ambient: 0.02, Offset: 3.5}
}

// Validate rejects non-finite values and an unstable retention factor.
func (c Coefficients) Validate() error {
	for name, v := range map[string]float64{
		"retention": c.Retention, "cooling": c.Cooling, "load": c.Load,
		"ambient": c.Ambient, "offset": c.Offset,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%g", ErrInvalidCoefficients, name, v)
		}
	}
	if c.Retention < 0 || c.Retention >= 1 {
		return fmt.Errorf("%w: retention %g must be in [0,1)", ErrInvalidCoefficients, c.Retention)
	}
	return nil
}

// Next advances the room temperature by one step.
func (c Coefficients) Next(temp, output, load, external float64) float64 {
	return c.Retention*temp - c.Cooling*output + c.Load*load + c.Ambient*external + c.Offset
}

// FixedPoint is the temperature the room settles at under constant inputs.
// Validate guarantees Retention < 1.
func (c Coefficients) FixedPoint(output, load, external float64) float64 {
	return (-c.Cooling*output + c.Load*load + c.Ambient*external + c.Offset) / (1 - c.Retention)
}
