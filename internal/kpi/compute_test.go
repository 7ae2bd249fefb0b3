// v0
// internal/kpi/compute_test.go
package kpi

import (
	"math"
	"testing"
)

func TestComputeEmpty(t *testing.T) {
	if m := Compute(nil, DefaultOptions(22)); m != nil {
		t.Fatalf("expected nil metrics, got %+v", m)
	}
}

func TestComputeBasic(t *testing.T) {
	samples := []Sample{
		{Temperature: 22, Output: 50, Error: 0},
		{Temperature: 24, Output: 100, Error: 2},
		{Temperature: 20, Output: 0, Error: -2},
		{Temperature: 27, Output: 10, Error: 5},
	}
	m := Compute(samples, DefaultOptions(22))
	if m == nil {
		t.Fatalf("nil metrics")
	}
	// deviations 0, 2, -2, 5 → sqrt(33/4)
	if got, want := m.RMSE, math.Sqrt(33.0/4); math.Abs(got-want) > 1e-12 {
		t.Fatalf("rmse=%g want %g", got, want)
	}
	// comfort band is inclusive: 22, 24, 20 count
	if m.ComfortPct != 75 {
		t.Fatalf("comfort=%g want 75", m.ComfortPct)
	}
	if m.Energy != 160 {
		t.Fatalf("energy=%g want 160", m.Energy)
	}
	if m.Violations != 1 {
		t.Fatalf("violations=%d want 1", m.Violations)
	}
	if m.Temperature != (Stats{Min: 20, Max: 27, Avg: 23.25}) {
		t.Fatalf("temperature stats %+v", m.Temperature)
	}
	if m.Output != (Stats{Min: 0, Max: 100, Avg: 40}) {
		t.Fatalf("output stats %+v", m.Output)
	}
	if m.Error.Min != -2 || m.Error.Max != 5 {
		t.Fatalf("error stats %+v", m.Error)
	}
}

func TestComputeStepDuration(t *testing.T) {
	opts := DefaultOptions(22)
	opts.StepDuration = 1.0 / 60
	m := Compute([]Sample{{Temperature: 22, Output: 60}, {Temperature: 22, Output: 60}}, opts)
	if math.Abs(m.Energy-2) > 1e-12 {
		t.Fatalf("energy=%g want 2", m.Energy)
	}
}

func TestComputeSafetyBoundsInclusive(t *testing.T) {
	m := Compute([]Sample{{Temperature: 18}, {Temperature: 26}, {Temperature: 17.99}, {Temperature: 26.01}}, DefaultOptions(22))
	if m.Violations != 2 {
		t.Fatalf("violations=%d want 2", m.Violations)
	}
}

func TestDeviationPercentiles(t *testing.T) {
	samples := make([]Sample, 0, 100)
	for i := 1; i <= 100; i++ {
		// deviation i/100 °C
		samples = append(samples, Sample{Temperature: 22 + float64(i)/100})
	}
	m := Compute(samples, DefaultOptions(22))
	checks := []struct {
		name      string
		got, want float64
	}{
		{"p50", m.Deviation.P50, 0.50},
		{"p95", m.Deviation.P95, 0.95},
		{"p99", m.Deviation.P99, 0.99},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > 0.01 {
			t.Fatalf("%s=%g want ≈%g", c.name, c.got, c.want)
		}
	}
}

func TestComputeSkipsNonFiniteDeviation(t *testing.T) {
	samples := []Sample{
		{Temperature: 24, Output: 50},
		{Temperature: math.NaN(), Output: 50},
		{Temperature: math.Inf(1), Output: 50},
		{Temperature: 24, Output: 50},
	}
	m := Compute(samples, DefaultOptions(22))
	if m.Unrecorded != 2 {
		t.Fatalf("unrecorded=%d want 2", m.Unrecorded)
	}
	for name, v := range map[string]float64{"p50": m.Deviation.P50, "p99": m.Deviation.P99} {
		if math.Abs(v-2) > 0.01 {
			t.Fatalf("%s=%g want 2 from the finite steps only", name, v)
		}
	}
}
