// v0
// internal/kpi/compute.go
package kpi

import (
	"math"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Deviations are recorded in milli-degrees; anything above 1000 °C is
// saturated.
const (
	deviationScale = 1000.0
	deviationMax   = 1_000_000
)

// Compute summarises a run. It returns nil for an empty history.
//
// rmse        = sqrt(Σ (T_i − setpoint)² / n) over resulting temperatures.
// comfortPct  = 100 · |{i | comfort.Low ≤ T_i ≤ comfort.High}| / n.
// energy      = Σ output_i · stepDuration.
// violations  = |{i | T_i ∉ [safety.Low, safety.High]}|.
// deviation   = percentiles of |T_i − setpoint| from an HDR histogram with
// three significant digits. Non-finite temperatures are left out of the
// histogram and counted in Unrecorded.
func Compute(samples []Sample, opts Options) *Metrics {
	n := len(samples)
	if n == 0 {
		return nil
	}
	hist := hdrhistogram.New(1, deviationMax, 3)

	m := &Metrics{Steps: n}
	temp := newStatsAcc()
	out := newStatsAcc()
	errs := newStatsAcc()
	var sq float64
	var comfort int
	for _, s := range samples {
		dev := s.Temperature - opts.Setpoint
		sq += dev * dev
		if opts.Comfort.Contains(s.Temperature) {
			comfort++
		}
		if !opts.Safety.Contains(s.Temperature) {
			m.Violations++
		}
		m.Energy += s.Output * opts.StepDuration
		temp.add(s.Temperature)
		out.add(s.Output)
		errs.add(s.Error)
		if math.IsNaN(dev) || math.IsInf(dev, 0) {
			m.Unrecorded++
			continue
		}
		if err := hist.RecordValue(int64(math.Min(math.Abs(dev)*deviationScale, deviationMax))); err != nil {
			m.Unrecorded++
		}
	}
	m.RMSE = math.Sqrt(sq / float64(n))
	m.ComfortPct = 100 * float64(comfort) / float64(n)
	m.Temperature = temp.stats(n)
	m.Output = out.stats(n)
	m.Error = errs.stats(n)
	m.Deviation = Percentiles{
		P50: float64(hist.ValueAtQuantile(50)) / deviationScale,
		P95: float64(hist.ValueAtQuantile(95)) / deviationScale,
		P99: float64(hist.ValueAtQuantile(99)) / deviationScale,
	}
	return m
}

type statsAcc struct {
	min, max, sum float64
}

func newStatsAcc() *statsAcc {
	return &statsAcc{min: math.Inf(1), max: math.Inf(-1)}
}

func (a *statsAcc) add(v float64) {
	a.min = math.Min(a.min, v)
	a.max = math.Max(a.max, v)
	a.sum += v
}

func (a *statsAcc) stats(n int) Stats {
	return Stats{Min: a.min, Max: a.max, Avg: a.sum / float64(n)}
}
