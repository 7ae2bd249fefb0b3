// v0
// internal/fuzzy/engine_test.go
package fuzzy

import (
	"errors"
	"math"
	"sync"
	"testing"
)

func newReference(t *testing.T) *Engine {
	t.Helper()
	eng, err := NewEngine(Reference())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func TestReferenceCentroids(t *testing.T) {
	eng := newReference(t)
	want := map[string]float64{"VL": 8, "L": 25, "M": 50, "H": 75, "VH": 92}
	for term, w := range want {
		got, err := eng.TermCentroid(term)
		if err != nil {
			t.Fatalf("centroid %s: %v", term, err)
		}
		if math.Abs(got-w) > 1e-9 {
			t.Fatalf("centroid %s: got %g want %g", term, got, w)
		}
	}
	if _, err := eng.TermCentroid("XX"); !errors.Is(err, ErrUnknownTerm) {
		t.Fatalf("unknown term: %v", err)
	}
}

func TestInferAtSetpoint(t *testing.T) {
	eng := newReference(t)
	res, err := eng.Infer(map[string]float64{VarError: 0, VarDeltaError: 0})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if res.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if math.Abs(res.Output-25) > 1e-9 {
		t.Fatalf("output=%g want 25", res.Output)
	}
	if res.TermStrengths["L"] != 1 || res.TermStrengths["VH"] != 0 {
		t.Fatalf("term strengths: %v", res.TermStrengths)
	}
	if len(res.Activations) != 25 {
		t.Fatalf("activations=%d", len(res.Activations))
	}
}

func TestInferHotRoomSaturates(t *testing.T) {
	eng := newReference(t)
	res, err := eng.Infer(map[string]float64{VarError: 12, VarDeltaError: 6})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if math.Abs(res.Output-92) > 1e-9 {
		t.Fatalf("output=%g want 92", res.Output)
	}
}

func TestInferFallback(t *testing.T) {
	eng := newReference(t)
	res, err := eng.Infer(map[string]float64{VarError: 100, VarDeltaError: 100})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if !res.Fallback || res.Output != 50 {
		t.Fatalf("fallback=%v output=%g", res.Fallback, res.Output)
	}

	cfg := Reference()
	fb := 0.0
	cfg.Fallback = &fb
	custom, err := NewEngine(cfg)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, _ = custom.Infer(map[string]float64{VarError: -100, VarDeltaError: 100})
	if !res.Fallback || res.Output != 0 {
		t.Fatalf("custom fallback=%v output=%g", res.Fallback, res.Output)
	}
}

func TestInferInputErrors(t *testing.T) {
	eng := newReference(t)
	if _, err := eng.Infer(map[string]float64{VarError: 1}); !errors.Is(err, ErrMissingInput) {
		t.Fatalf("missing input: %v", err)
	}
	if _, err := eng.Infer(map[string]float64{VarError: math.NaN(), VarDeltaError: 0}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("NaN input: %v", err)
	}
	if _, err := eng.Infer(map[string]float64{VarError: 1, VarDeltaError: 0, "unused": 7}); err != nil {
		t.Fatalf("extra keys must be ignored: %v", err)
	}
}

func TestSingleRuleMatchesTermCentroid(t *testing.T) {
	in, _ := NewVariable("x", 0, 10, Term{"any", MustTrapezoidal(0, 0, 10, 10)})
	out, _ := NewVariable("y", 0, 10, Term{"peak", MustTriangular(2, 3, 7)})
	eng, err := NewEngine(Config{
		Inputs:     []*Variable{in},
		Output:     out,
		Rules:      RuleBase{NewRule(Is("x", "any"), "y", "peak")},
		Resolution: 0.01,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	res, err := eng.Infer(map[string]float64{"x": 4})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	want, _ := eng.TermCentroid("peak")
	if math.Abs(res.Output-want) > 1e-9 {
		t.Fatalf("output=%g centroid=%g", res.Output, want)
	}
	// continuous centroid of triangle(2,3,7) is 4
	if math.Abs(res.Output-4) > 0.01 {
		t.Fatalf("output=%g far from 4", res.Output)
	}
}

func TestCoarserResolutionMovesCentroid(t *testing.T) {
	x := map[string]float64{VarError: 2, VarDeltaError: 0.5}
	out := make(map[float64]float64)
	for _, res := range []float64{1, 10} {
		cfg := Reference()
		cfg.Resolution = res
		eng, err := NewEngine(cfg)
		if err != nil {
			t.Fatalf("resolution %g: %v", res, err)
		}
		r, err := eng.Infer(x)
		if err != nil {
			t.Fatalf("infer at %g: %v", res, err)
		}
		out[res] = r.Output
	}
	// 55.23 on the fine grid, 58.03 on the coarse one
	if math.Abs(out[1]-55.23) > 0.01 || math.Abs(out[10]-58.03) > 0.01 {
		t.Fatalf("outputs fine=%g coarse=%g", out[1], out[10])
	}
}

func TestRuleOrderDoesNotMatter(t *testing.T) {
	cfg := Reference()
	rev := make(RuleBase, len(cfg.Rules))
	for i, r := range cfg.Rules {
		rev[len(rev)-1-i] = r
	}
	a, _ := NewEngine(cfg)
	cfg.Rules = rev
	b, _ := NewEngine(cfg)
	for _, in := range [][2]float64{{-4, 0.5}, {1.7, -1.2}, {5, 2}, {-0.3, 0.1}} {
		x := map[string]float64{VarError: in[0], VarDeltaError: in[1]}
		ra, _ := a.Infer(x)
		rb, _ := b.Infer(x)
		if ra.Output != rb.Output {
			t.Fatalf("%v: %g != %g", in, ra.Output, rb.Output)
		}
	}
}

func TestInferConcurrentDeterministic(t *testing.T) {
	eng := newReference(t)
	x := map[string]float64{VarError: 2.3, VarDeltaError: -0.4}
	first, _ := eng.Infer(x)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := eng.Infer(x)
			if err != nil || r.Output != first.Output {
				t.Errorf("concurrent infer: %v %g != %g", err, r.Output, first.Output)
			}
		}()
	}
	wg.Wait()
}

func TestNewEngineErrors(t *testing.T) {
	base := Reference()
	errVar := base.Inputs[0]
	nan := math.NaN()
	outside := 150.0
	cases := []struct {
		name string
		mut  func(c *Config)
		want error
	}{
		{"nil output", func(c *Config) { c.Output = nil }, ErrUnknownVariable},
		{"no inputs", func(c *Config) { c.Inputs = nil }, ErrUnknownVariable},
		{"duplicate input", func(c *Config) { c.Inputs = []*Variable{errVar, errVar} }, ErrDuplicateVariable},
		{"zero resolution", func(c *Config) { c.Resolution = 0 }, ErrInvalidResolution},
		{"huge resolution", func(c *Config) { c.Resolution = 101 }, ErrInvalidResolution},
		{"NaN resolution", func(c *Config) { c.Resolution = nan }, ErrInvalidResolution},
		{"fallback outside", func(c *Config) { c.Fallback = &outside }, ErrInvalidFallback},
		{"empty rules", func(c *Config) { c.Rules = nil }, ErrEmptyRuleBase},
		{"unknown variable", func(c *Config) {
			c.Rules = RuleBase{NewRule(Is("humidity", "NB"), VarPower, "L")}
		}, ErrUnknownVariable},
		{"unknown input term", func(c *Config) {
			c.Rules = RuleBase{NewRule(Is(VarError, "HUGE"), VarPower, "L")}
		}, ErrUnknownTerm},
		{"unknown output term", func(c *Config) {
			c.Rules = RuleBase{NewRule(Is(VarError, "NB"), VarPower, "MAX")}
		}, ErrUnknownTerm},
		{"wrong consequent variable", func(c *Config) {
			c.Rules = RuleBase{NewRule(Is(VarError, "NB"), VarError, "NB")}
		}, ErrUnknownVariable},
		{"malformed antecedent", func(c *Config) {
			c.Rules = RuleBase{{If: Expr{op: OpAnd}, Then: Consequent{VarPower, "L"}}}
		}, ErrInvalidRule},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Reference()
			tc.mut(&cfg)
			if _, err := NewEngine(cfg); !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}

func TestExtendedReference(t *testing.T) {
	eng, err := NewEngine(ExtendedReference())
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	cold, err := eng.Infer(map[string]float64{VarError: -5, VarDeltaError: 0, VarExternalTemp: 12, VarThermalLoad: 10})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	hot, err := eng.Infer(map[string]float64{VarError: 5, VarDeltaError: 1, VarExternalTemp: 33, VarThermalLoad: 90})
	if err != nil {
		t.Fatalf("infer: %v", err)
	}
	if !(hot.Output > cold.Output) {
		t.Fatalf("hot=%g should exceed cold=%g", hot.Output, cold.Output)
	}
	if len(eng.Inputs()) != 4 {
		t.Fatalf("inputs=%d", len(eng.Inputs()))
	}
}
