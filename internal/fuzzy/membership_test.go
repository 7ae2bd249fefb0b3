// v0
// internal/fuzzy/membership_test.go
package fuzzy

import (
	"errors"
	"math"
	"testing"
)

func TestTriangularEvaluate(t *testing.T) {
	mf := MustTriangular(0, 25, 50)
	cases := []struct {
		x    float64
		want float64
	}{
		{-1, 0}, {0, 0}, {12.5, 0.5}, {25, 1}, {37.5, 0.5}, {50, 0}, {51, 0}, {math.NaN(), 0},
	}
	for _, tc := range cases {
		if got := mf.Evaluate(tc.x); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("evaluate(%g)=%g want %g", tc.x, got, tc.want)
		}
	}
}

func TestTrapezoidPlateau(t *testing.T) {
	mf := MustTrapezoidal(3.5, 6, 12, 12)
	for _, x := range []float64{6, 8, 12} {
		if got := mf.Evaluate(x); got != 1 {
			t.Fatalf("plateau at %g: got %g", x, got)
		}
	}
	if got := mf.Evaluate(4.75); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("ramp: got %g", got)
	}
	if got := mf.Evaluate(12.5); got != 0 {
		t.Fatalf("outside support: got %g", got)
	}
}

func TestDegenerateShoulders(t *testing.T) {
	left := MustTriangular(0, 0, 25)
	if got := left.Evaluate(0); got != 1 {
		t.Fatalf("left shoulder at peak: %g", got)
	}
	right := MustTriangular(75, 100, 100)
	if got := right.Evaluate(100); got != 1 {
		t.Fatalf("right shoulder at peak: %g", got)
	}
	spike := MustTriangular(5, 5, 5)
	if got := spike.Evaluate(5); got != 1 {
		t.Fatalf("spike: %g", got)
	}
	if got := spike.Evaluate(5.0001); got != 0 {
		t.Fatalf("spike off-peak: %g", got)
	}
	for _, x := range []float64{-1, 0, 4.9, 5.1} {
		for _, mf := range []MembershipFunc{left, right, spike} {
			if v := mf.Evaluate(x); math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 1 {
				t.Fatalf("%s at %g: %g", mf, x, v)
			}
		}
	}
}

func TestOpenShoulders(t *testing.T) {
	mf, err := Trapezoidal(math.Inf(-1), math.Inf(-1), 0, 1)
	if err != nil {
		t.Fatalf("open left: %v", err)
	}
	if got := mf.Evaluate(-1e9); got != 1 {
		t.Fatalf("open left far value: %g", got)
	}
	if got := mf.Evaluate(0.5); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("open left ramp: %g", got)
	}
	if _, err := Trapezoidal(math.Inf(-1), 0, 1, 2); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("expected ErrInvalidShape for infinite ramp, got %v", err)
	}
}

func TestShapeValidation(t *testing.T) {
	if _, err := Triangular(2, 1, 3); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("unordered triangle: %v", err)
	}
	if _, err := Trapezoidal(0, 1, math.NaN(), 3); !errors.Is(err, ErrInvalidShape) {
		t.Fatalf("NaN trapezoid: %v", err)
	}
	inf := math.Inf(1)
	bad := []struct {
		name  string
		build func() (MembershipFunc, error)
	}{
		{"trap ramp to +Inf", func() (MembershipFunc, error) { return Trapezoidal(0, inf, inf, inf) }},
		{"trap ramp from -Inf", func() (MembershipFunc, error) { return Trapezoidal(-inf, -inf, -inf, 0) }},
		{"trap +Inf right pair split", func() (MembershipFunc, error) { return Trapezoidal(0, 1, 2, inf) }},
		{"tri left shoulder at -Inf", func() (MembershipFunc, error) { return Triangular(-inf, -inf, 0) }},
		{"tri right shoulder at +Inf", func() (MembershipFunc, error) { return Triangular(0, inf, inf) }},
		{"tri open left ramp", func() (MembershipFunc, error) { return Triangular(-inf, 0, 1) }},
		{"tri open right ramp", func() (MembershipFunc, error) { return Triangular(0, 1, inf) }},
	}
	for _, tc := range bad {
		if _, err := tc.build(); !errors.Is(err, ErrInvalidShape) {
			t.Fatalf("%s: expected ErrInvalidShape, got %v", tc.name, err)
		}
	}
	both, err := Trapezoidal(-inf, -inf, inf, inf)
	if err != nil {
		t.Fatalf("open on both sides: %v", err)
	}
	if both.Evaluate(-1e9) != 1 || both.Evaluate(1e9) != 1 {
		t.Fatalf("open on both sides should be 1 everywhere")
	}
	right, err := Trapezoidal(0, 1, inf, inf)
	if err != nil {
		t.Fatalf("open right: %v", err)
	}
	if right.Evaluate(1e9) != 1 {
		t.Fatalf("open right far value: %g", right.Evaluate(1e9))
	}
	mf := MustTriangular(1, 2, 3)
	if mf.Shape() != ShapeTriangular || len(mf.Params()) != 3 {
		t.Fatalf("params: %s %v", mf.Shape(), mf.Params())
	}
	if lo, hi := mf.Support(); lo != 1 || hi != 3 {
		t.Fatalf("support: [%g,%g]", lo, hi)
	}
}
