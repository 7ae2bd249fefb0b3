// v0
// internal/fuzzy/engine.go
package fuzzy

import (
	"fmt"
	"math"
)

// maxGridPoints bounds the sampled output universe.
const maxGridPoints = 1_000_000

// Config describes a Mamdani controller.
type Config struct {
	Inputs []*Variable
	Output *Variable
	Rules  RuleBase

	// Resolution is the sampling step of the output universe used for
	// aggregation and centroid defuzzification. It has no default: a coarser
	// grid moves the centroid, so it must match the granularity the terms
	// were authored for.
	Resolution float64

	// Fallback is returned when no rule activates the output. Nil selects the
	// midpoint of the output universe.
	Fallback *float64
}

// Engine performs Mamdani inference (min implication, max aggregation,
// centroid defuzzification). It is immutable after NewEngine and safe for
// concurrent use.
type Engine struct {
	inputs     []*Variable
	byName     map[string]*Variable
	output     *Variable
	rules      RuleBase
	resolution float64
	fallback   float64

	grid      []float64
	outTerms  []Term
	curves    [][]float64 // outTerms[i] sampled on grid
	ruleTerms []int       // index into outTerms per rule
}

// Activation is the firing strength of one rule for one inference.
type Activation struct {
	Index    int     `json:"index"`
	Rule     string  `json:"rule"`
	Strength float64 `json:"strength"`
	Term     string  `json:"term"`
}

// Result is the output of one inference plus its diagnostics.
type Result struct {
	Output float64 `json:"output"`
	// Fallback is set when the aggregated output set was empty and Output
	// holds the configured fallback value.
	Fallback      bool               `json:"fallback"`
	Degrees       Degrees            `json:"degrees"`
	Activations   []Activation       `json:"activations"`
	TermStrengths map[string]float64 `json:"termStrengths"`
}

// NewEngine validates cfg and precomputes the sampled output universe.
func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Output == nil {
		return nil, fmt.Errorf("%w: output variable is nil", ErrUnknownVariable)
	}
	if len(cfg.Inputs) == 0 {
		return nil, fmt.Errorf("%w: no input variables", ErrUnknownVariable)
	}
	e := &Engine{
		byName: make(map[string]*Variable, len(cfg.Inputs)),
		output: cfg.Output,
	}
	for i, v := range cfg.Inputs {
		if v == nil {
			return nil, fmt.Errorf("%w: input %d is nil", ErrUnknownVariable, i)
		}
		if _, dup := e.byName[v.Name()]; dup || v.Name() == cfg.Output.Name() {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariable, v.Name())
		}
		e.byName[v.Name()] = v
		e.inputs = append(e.inputs, v)
	}

	lo, hi := cfg.Output.Bounds()
	res := cfg.Resolution
	if math.IsNaN(res) || math.IsInf(res, 0) || res <= 0 || res > hi-lo {
		return nil, fmt.Errorf("%w: %g for universe [%g, %g]", ErrInvalidResolution, res, lo, hi)
	}
	n := int(math.Floor((hi-lo)/res+1e-9)) + 1
	if n > maxGridPoints {
		return nil, fmt.Errorf("%w: %d sample points exceed %d", ErrInvalidResolution, n, maxGridPoints)
	}
	e.resolution = res
	e.grid = make([]float64, n)
	for i := range e.grid {
		e.grid[i] = lo + float64(i)*res
	}

	e.fallback = cfg.Output.Midpoint()
	if cfg.Fallback != nil {
		fb := *cfg.Fallback
		if math.IsNaN(fb) || fb < lo || fb > hi {
			return nil, fmt.Errorf("%w: %g outside [%g, %g]", ErrInvalidFallback, fb, lo, hi)
		}
		e.fallback = fb
	}

	e.outTerms = cfg.Output.Terms()
	termIdx := make(map[string]int, len(e.outTerms))
	e.curves = make([][]float64, len(e.outTerms))
	for i, t := range e.outTerms {
		termIdx[t.Name] = i
		curve := make([]float64, n)
		for j, y := range e.grid {
			curve[j] = t.MF.Evaluate(y)
		}
		e.curves[i] = curve
	}

	if len(cfg.Rules) == 0 {
		return nil, ErrEmptyRuleBase
	}
	e.rules = make(RuleBase, len(cfg.Rules))
	copy(e.rules, cfg.Rules)
	e.ruleTerms = make([]int, len(e.rules))
	for i, r := range e.rules {
		if err := e.checkRule(r); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i+1, r, err)
		}
		e.ruleTerms[i] = termIdx[r.Then.Term]
	}
	return e, nil
}

func (e *Engine) checkRule(r Rule) error {
	if !r.If.valid() {
		return fmt.Errorf("%w: malformed antecedent", ErrInvalidRule)
	}
	var err error
	r.If.Walk(func(variable, term string) {
		if err != nil {
			return
		}
		v, ok := e.byName[variable]
		if !ok {
			err = fmt.Errorf("%w: %s", ErrUnknownVariable, variable)
			return
		}
		if _, ok := v.Term(term); !ok {
			err = fmt.Errorf("%w: %s.%s", ErrUnknownTerm, variable, term)
		}
	})
	if err != nil {
		return err
	}
	if r.Then.Variable != e.output.Name() {
		return fmt.Errorf("%w: consequent %s is not the output variable", ErrUnknownVariable, r.Then.Variable)
	}
	if _, ok := e.output.Term(r.Then.Term); !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownTerm, r.Then.Variable, r.Then.Term)
	}
	return nil
}

// Infer runs one inference. inputs must hold a value for every input
// variable; extra keys are ignored. Values are used as given; callers that
// want saturation should Clamp first.
func (e *Engine) Infer(inputs map[string]float64) (Result, error) {
	deg := make(Degrees, len(e.inputs))
	for _, v := range e.inputs {
		x, ok := inputs[v.Name()]
		if !ok {
			return Result{}, fmt.Errorf("%w: %s", ErrMissingInput, v.Name())
		}
		if math.IsNaN(x) {
			return Result{}, fmt.Errorf("%w: %s", ErrInvalidInput, v.Name())
		}
		deg[v.Name()] = v.MembershipDegrees(x)
	}

	acts := make([]Activation, len(e.rules))
	strengths := make([]float64, len(e.outTerms))
	for i, r := range e.rules {
		s := r.If.Degree(deg)
		acts[i] = Activation{Index: i + 1, Rule: r.String(), Strength: s, Term: r.Then.Term}
		// max per consequent term; clipping each term once at its strongest
		// rule equals the max over every rule's clipped set
		if t := e.ruleTerms[i]; s > strengths[t] {
			strengths[t] = s
		}
	}

	termStrengths := make(map[string]float64, len(e.outTerms))
	for i, t := range e.outTerms {
		termStrengths[t.Name] = strengths[i]
	}

	var num, den float64
	for j, y := range e.grid {
		mu := 0.0
		for t, s := range strengths {
			if s <= 0 {
				continue
			}
			if v := min(s, e.curves[t][j]); v > mu {
				mu = v
			}
		}
		num += y * mu
		den += mu
	}

	res := Result{Degrees: deg, Activations: acts, TermStrengths: termStrengths}
	if den == 0 {
		res.Output = e.fallback
		res.Fallback = true
		return res, nil
	}
	res.Output = num / den
	return res, nil
}

// Inputs returns the input variables in declaration order.
func (e *Engine) Inputs() []*Variable {
	out := make([]*Variable, len(e.inputs))
	copy(out, e.inputs)
	return out
}

// Input looks up an input variable by name.
func (e *Engine) Input(name string) (*Variable, bool) {
	v, ok := e.byName[name]
	return v, ok
}

func (e *Engine) Output() *Variable { return e.output }

// Rules returns a copy of the rule base.
func (e *Engine) Rules() RuleBase {
	out := make(RuleBase, len(e.rules))
	copy(out, e.rules)
	return out
}

func (e *Engine) Resolution() float64 { return e.resolution }

func (e *Engine) FallbackValue() float64 { return e.fallback }

// TermCentroid is the centroid of an unclipped output term on the sampled
// universe, i.e. the output of a single fully firing rule for that term.
func (e *Engine) TermCentroid(term string) (float64, error) {
	for i, t := range e.outTerms {
		if t.Name != term {
			continue
		}
		var num, den float64
		for j, y := range e.grid {
			num += y * e.curves[i][j]
			den += e.curves[i][j]
		}
		if den == 0 {
			return e.fallback, nil
		}
		return num / den, nil
	}
	return 0, fmt.Errorf("%w: %s.%s", ErrUnknownTerm, e.output.Name(), term)
}
