// v0
// internal/disturbance/simplex.go
package disturbance

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Simplex drifts both disturbances around their bases with smooth
// fractal noise, which looks closer to sensor data than white noise.
type Simplex struct {
	BaseExternal      float64
	BaseLoad          float64
	ExternalAmplitude float64
	LoadAmplitude     float64
	Frequency         float64 // cycles per step for the first octave
	Octaves           int
	Persistence       float64

	ext  opensimplex.Noise
	load opensimplex.Noise
}

// NewSimplex builds a profile with four octaves and a base period of about
// six hours.
func NewSimplex(baseExternal, baseLoad float64, seed int64) *Simplex {
	return &Simplex{
		BaseExternal:      baseExternal,
		BaseLoad:          baseLoad,
		ExternalAmplitude: 4,
		LoadAmplitude:     20,
		Frequency:         1.0 / 360,
		Octaves:           4,
		Persistence:       0.5,
		ext:               opensimplex.NewNormalized(seed),
		load:              opensimplex.NewNormalized(seed + 1),
	}
}

func (s *Simplex) Sample(step int) (Sample, error) {
	if step < 0 {
		return Sample{}, fmt.Errorf("%w: %d", ErrNegativeStep, step)
	}
	t := float64(step)
	// normalized noise is in [0,1]; centre it on the base
	e := octaveNoise(s.ext, t, s.Octaves, s.Frequency, s.Persistence)*2 - 1
	l := octaveNoise(s.load, t, s.Octaves, s.Frequency, s.Persistence)*2 - 1
	return Sample{
		ExternalTemp: s.BaseExternal + e*s.ExternalAmplitude,
		ThermalLoad:  clamp(s.BaseLoad+l*s.LoadAmplitude, 0, 100),
	}, nil
}

func octaveNoise(noise opensimplex.Noise, t float64, octaves int, frequency, persistence float64) float64 {
	if octaves < 1 {
		octaves = 1
	}
	total, amplitude, maxVal := 0.0, 1.0, 0.0
	for i := 0; i < octaves; i++ {
		total += noise.Eval2(t*frequency, float64(i)) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}
	return total / maxVal
}
