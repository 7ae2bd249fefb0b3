// v0
// internal/disturbance/disturbance.go
package disturbance

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
)

var (
	ErrUnknownProfile = errors.New("unknown disturbance profile")
	ErrNegativeStep   = errors.New("negative step")
)

// Sample is the environment seen by the controller at one step.
type Sample struct {
	ExternalTemp float64 `json:"external_temperature"`
	ThermalLoad  float64 `json:"thermal_load"`
}

// Generator yields the disturbance for a step. Implementations must be
// deterministic in step so that runs can be replayed.
type Generator interface {
	Sample(step int) (Sample, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(step int) (Sample, error)

func (f GeneratorFunc) Sample(step int) (Sample, error) { return f(step) }

// Constant returns the same sample at every step.
func Constant(external, load float64) Generator {
	s := Sample{ExternalTemp: external, ThermalLoad: load}
	return GeneratorFunc(func(step int) (Sample, error) {
		if step < 0 {
			return Sample{}, fmt.Errorf("%w: %d", ErrNegativeStep, step)
		}
		return s, nil
	})
}

// Split takes the external temperature from one generator and the thermal
// load from another.
func Split(external, load Generator) Generator {
	return GeneratorFunc(func(step int) (Sample, error) {
		e, err := external.Sample(step)
		if err != nil {
			return Sample{}, fmt.Errorf("external temperature: %w", err)
		}
		l, err := load.Sample(step)
		if err != nil {
			return Sample{}, fmt.Errorf("thermal load: %w", err)
		}
		return Sample{ExternalTemp: e.ExternalTemp, ThermalLoad: l.ThermalLoad}, nil
	})
}

// Daily is the reference day: a sinusoidal outdoor temperature peaking in
// the afternoon and a Gaussian load bump around midday, one step per minute.
type Daily struct {
	BaseExternal float64
	BaseLoad     float64

	ExternalAmplitude float64 // °C
	Period            float64 // steps
	Phase             float64 // steps

	LoadAmplitude float64 // %
	LoadCentre    float64 // step
	LoadWidth     float64 // steps

	ExternalNoise float64 // std dev, 0 disables
	LoadNoise     float64 // std dev, 0 disables
	Seed          uint64
}

// NewDaily fills in the reference shape around the given bases.
func NewDaily(baseExternal, baseLoad float64, seed uint64) *Daily {
	return &Daily{
		BaseExternal:      baseExternal,
		BaseLoad:          baseLoad,
		ExternalAmplitude: 5,
		Period:            1440,
		Phase:             480,
		LoadAmplitude:     15,
		LoadCentre:        720,
		LoadWidth:         300,
		ExternalNoise:     0.1,
		LoadNoise:         0.5,
		Seed:              seed,
	}
}

func (d *Daily) Sample(step int) (Sample, error) {
	if step < 0 {
		return Sample{}, fmt.Errorf("%w: %d", ErrNegativeStep, step)
	}
	t := float64(step)
	ext := d.BaseExternal
	if d.Period > 0 {
		ext += d.ExternalAmplitude * math.Sin(2*math.Pi*(t-d.Phase)/d.Period)
	}
	load := d.BaseLoad
	if d.LoadWidth > 0 {
		dt := t - d.LoadCentre
		load += d.LoadAmplitude * math.Exp(-(dt*dt)/(d.LoadWidth*d.LoadWidth))
	}
	if d.ExternalNoise > 0 || d.LoadNoise > 0 {
		r := stepRand(d.Seed, step)
		ext += r.NormFloat64() * d.ExternalNoise
		load += r.NormFloat64() * d.LoadNoise
	}
	return Sample{ExternalTemp: ext, ThermalLoad: load}, nil
}

// BusinessHours models IT load by hour of day (one step per minute): busy
// from 09:00 to 17:59, evening until 22:59, night otherwise.
type BusinessHours struct {
	Busy, Evening, Night float64
	// Jitter scales the per-band standard deviation (10, 15 and 5 points);
	// 0 disables it.
	Jitter float64
	Seed   uint64
}

// NewBusinessHours returns the 70/60/40 profile.
func NewBusinessHours(jitter float64, seed uint64) *BusinessHours {
	return &BusinessHours{Busy: 70, Evening: 60, Night: 40, Jitter: jitter, Seed: seed}
}

func (b *BusinessHours) Sample(step int) (Sample, error) {
	if step < 0 {
		return Sample{}, fmt.Errorf("%w: %d", ErrNegativeStep, step)
	}
	hour := (step / 60) % 24
	base, sd := b.Night, 5.0
	switch {
	case hour >= 9 && hour <= 17:
		base, sd = b.Busy, 10
	case hour >= 18 && hour <= 22:
		base, sd = b.Evening, 15
	}
	if b.Jitter > 0 {
		base += stepRand(b.Seed, step).NormFloat64() * sd * b.Jitter
	}
	return Sample{ThermalLoad: clamp(base, 0, 100)}, nil
}

// stepRand derives an independent stream per step so samples do not depend
// on the order in which steps are requested.
func stepRand(seed uint64, step int) *rand.Rand {
	return rand.New(rand.NewPCG(seed, uint64(step)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
