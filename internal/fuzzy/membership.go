// v0
// internal/fuzzy/membership.go
package fuzzy

import (
	"fmt"
	"math"
)

// Shape identifies the membership function family.
type Shape int

const (
	ShapeTriangular Shape = iota
	ShapeTrapezoidal
)

func (s Shape) String() string {
	switch s {
	case ShapeTriangular:
		return "triangular"
	case ShapeTrapezoidal:
		return "trapezoidal"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

// MembershipFunc maps a crisp value to a degree in [0,1]. Values are immutable
// once built; use Triangular or Trapezoidal to construct one.
//
// Internally both shapes are stored as four control points a ≤ b ≤ c ≤ d; a
// triangle simply has b == c.
type MembershipFunc struct {
	shape      Shape
	a, b, c, d float64
}

// Triangular builds a triangle rising from a to a peak at b and falling to c.
// a == b (or b == c) yields a one-sided shoulder.
func Triangular(a, b, c float64) (MembershipFunc, error) {
	err := checkPoints(a, b, c)
	if err == nil {
		err = checkEdges(a, b, b, c)
	}
	if err != nil {
		return MembershipFunc{}, fmt.Errorf("triangular(%g, %g, %g): %w", a, b, c, err)
	}
	return MembershipFunc{shape: ShapeTriangular, a: a, b: b, c: b, d: c}, nil
}

// Trapezoidal builds a trapezoid with ramps a→b and c→d and a plateau on [b,c].
// The outer pair may be infinite (a == b == -Inf or c == d == +Inf) to model
// an open saturation term.
func Trapezoidal(a, b, c, d float64) (MembershipFunc, error) {
	err := checkPoints(a, b, c, d)
	if err == nil {
		err = checkEdges(a, b, c, d)
	}
	if err != nil {
		return MembershipFunc{}, fmt.Errorf("trapezoidal(%g, %g, %g, %g): %w", a, b, c, d, err)
	}
	return MembershipFunc{shape: ShapeTrapezoidal, a: a, b: b, c: c, d: d}, nil
}

// MustTriangular is Triangular for package-level tables; it panics on bad input.
func MustTriangular(a, b, c float64) MembershipFunc {
	mf, err := Triangular(a, b, c)
	if err != nil {
		panic(err)
	}
	return mf
}

// MustTrapezoidal is Trapezoidal for package-level tables; it panics on bad input.
func MustTrapezoidal(a, b, c, d float64) MembershipFunc {
	mf, err := Trapezoidal(a, b, c, d)
	if err != nil {
		panic(err)
	}
	return mf
}

func checkPoints(p ...float64) error {
	for i, v := range p {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: parameter %d is NaN", ErrInvalidShape, i)
		}
		if i > 0 && v < p[i-1] {
			return fmt.Errorf("%w: parameters must be non-decreasing", ErrInvalidShape)
		}
	}
	return nil
}

// checkEdges validates the stored points. -Inf is only allowed on the left
// pair and +Inf only on the right pair, each pair collapsed; anything else
// stores a ramp to infinity that never fires.
func checkEdges(a, b, c, d float64) error {
	left := math.IsInf(a, -1) || math.IsInf(b, -1)
	if left && !(math.IsInf(a, -1) && math.IsInf(b, -1)) {
		return fmt.Errorf("%w: infinite left edge must be -Inf on both left points", ErrInvalidShape)
	}
	right := math.IsInf(c, 1) || math.IsInf(d, 1)
	if right && !(math.IsInf(c, 1) && math.IsInf(d, 1)) {
		return fmt.Errorf("%w: infinite right edge must be +Inf on both right points", ErrInvalidShape)
	}
	if math.IsInf(a, 1) || math.IsInf(b, 1) || math.IsInf(c, -1) || math.IsInf(d, -1) {
		return fmt.Errorf("%w: inner point cannot be infinite", ErrInvalidShape)
	}
	return nil
}

// Evaluate returns the degree of membership of x.
func (m MembershipFunc) Evaluate(x float64) float64 {
	switch {
	case math.IsNaN(x):
		return 0
	case x < m.a || x > m.d:
		return 0
	case x >= m.b && x <= m.c:
		return 1
	case x < m.b:
		// here m.a <= x < m.b, so the denominator is positive
		return (x - m.a) / (m.b - m.a)
	default:
		// m.c < x <= m.d
		return (m.d - x) / (m.d - m.c)
	}
}

// Shape reports the function family.
func (m MembershipFunc) Shape() Shape { return m.shape }

// Params returns the control points as they were passed to the constructor.
func (m MembershipFunc) Params() []float64 {
	if m.shape == ShapeTriangular {
		return []float64{m.a, m.b, m.d}
	}
	return []float64{m.a, m.b, m.c, m.d}
}

// Support returns the interval outside of which Evaluate is zero.
func (m MembershipFunc) Support() (lo, hi float64) { return m.a, m.d }

func (m MembershipFunc) String() string {
	return fmt.Sprintf("%s%v", m.shape, m.Params())
}
