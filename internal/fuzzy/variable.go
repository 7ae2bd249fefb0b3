// v0
// internal/fuzzy/variable.go
package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Term is a named fuzzy category of a variable.
type Term struct {
	Name string
	MF   MembershipFunc
}

// Variable is a linguistic variable: a bounded universe and an ordered set of
// uniquely named terms. It is not modified after NewVariable returns, so a
// single instance can be shared by concurrent engines.
//
// Term supports are expected to lie within the universe; that is left to the
// author of the configuration and is not corrected here.
type Variable struct {
	name  string
	lo    float64
	hi    float64
	terms []Term
	index map[string]int
}

// NewVariable validates and builds a variable.
func NewVariable(name string, lo, hi float64, terms ...Term) (*Variable, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: variable name is empty", ErrInvalidUniverse)
	}
	if math.IsNaN(lo) || math.IsNaN(hi) || math.IsInf(lo, 0) || math.IsInf(hi, 0) || lo >= hi {
		return nil, fmt.Errorf("%w: %s [%g, %g]", ErrInvalidUniverse, name, lo, hi)
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: %s has no terms", ErrInvalidUniverse, name)
	}
	v := &Variable{
		name:  name,
		lo:    lo,
		hi:    hi,
		terms: make([]Term, 0, len(terms)),
		index: make(map[string]int, len(terms)),
	}
	for _, t := range terms {
		tn := strings.TrimSpace(t.Name)
		if tn == "" {
			return nil, fmt.Errorf("%w: %s has a term without a name", ErrInvalidShape, name)
		}
		if _, dup := v.index[tn]; dup {
			return nil, fmt.Errorf("%w: %s.%s", ErrDuplicateTerm, name, tn)
		}
		v.index[tn] = len(v.terms)
		v.terms = append(v.terms, Term{Name: tn, MF: t.MF})
	}
	return v, nil
}

func (v *Variable) Name() string { return v.name }

// Bounds returns the universe of discourse.
func (v *Variable) Bounds() (lo, hi float64) { return v.lo, v.hi }

// Midpoint is the centre of the universe.
func (v *Variable) Midpoint() float64 { return v.lo + (v.hi-v.lo)/2 }

// Terms returns a copy of the terms in declaration order.
func (v *Variable) Terms() []Term {
	out := make([]Term, len(v.terms))
	copy(out, v.terms)
	return out
}

// Term looks up a term by name.
func (v *Variable) Term(name string) (MembershipFunc, bool) {
	i, ok := v.index[name]
	if !ok {
		return MembershipFunc{}, false
	}
	return v.terms[i].MF, true
}

// Clamp saturates x to the universe. NaN is returned unchanged.
func (v *Variable) Clamp(x float64) float64 {
	if x < v.lo {
		return v.lo
	}
	if x > v.hi {
		return v.hi
	}
	return x
}

// MembershipDegrees fuzzifies x against every term. No clamping is applied:
// a value outside the universe yields zero for every bounded term.
func (v *Variable) MembershipDegrees(x float64) map[string]float64 {
	out := make(map[string]float64, len(v.terms))
	for _, t := range v.terms {
		out[t.Name] = t.MF.Evaluate(x)
	}
	return out
}
