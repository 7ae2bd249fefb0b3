// v0
// internal/fuzzy/expr.go
package fuzzy

import "fmt"

// Degrees holds fuzzified inputs: variable name → term name → degree.
type Degrees map[string]map[string]float64

// Op is the node kind of an antecedent expression.
type Op int

const (
	OpTerm Op = iota
	OpAnd
	OpOr
)

// Expr is an antecedent expression tree. Leaves test "variable is term";
// inner nodes combine two sub-expressions with Zadeh AND (min) or OR (max).
// Build expressions with Is, And and Or.
type Expr struct {
	op       Op
	variable string
	term     string
	left     *Expr
	right    *Expr
}

// Is is the leaf "variable is term".
func Is(variable, term string) Expr {
	return Expr{op: OpTerm, variable: variable, term: term}
}

// And joins two or more expressions; extra operands fold to the left.
func And(left, right Expr, more ...Expr) Expr {
	return fold(OpAnd, left, right, more)
}

// Or joins two or more expressions; extra operands fold to the left.
func Or(left, right Expr, more ...Expr) Expr {
	return fold(OpOr, left, right, more)
}

func fold(op Op, left, right Expr, more []Expr) Expr {
	l, r := left, right
	acc := Expr{op: op, left: &l, right: &r}
	for i := range more {
		prev := acc
		next := more[i]
		acc = Expr{op: op, left: &prev, right: &next}
	}
	return acc
}

// Op returns the node kind.
func (e Expr) Op() Op { return e.op }

// Leaf returns the variable and term of a leaf node.
func (e Expr) Leaf() (variable, term string, ok bool) {
	if e.op != OpTerm {
		return "", "", false
	}
	return e.variable, e.term, true
}

// Children returns both operands of an inner node.
func (e Expr) Children() (left, right Expr, ok bool) {
	if e.op == OpTerm || e.left == nil || e.right == nil {
		return Expr{}, Expr{}, false
	}
	return *e.left, *e.right, true
}

// Degree evaluates the expression bottom-up. Both operands of every node are
// evaluated. A leaf that is missing from d evaluates to 0; engines validate
// leaves against their variables at construction so this does not happen
// during inference.
func (e Expr) Degree(d Degrees) float64 {
	switch e.op {
	case OpTerm:
		return d[e.variable][e.term]
	case OpAnd:
		l := e.left.Degree(d)
		r := e.right.Degree(d)
		return min(l, r)
	case OpOr:
		l := e.left.Degree(d)
		r := e.right.Degree(d)
		return max(l, r)
	default:
		return 0
	}
}

// Walk calls fn for every leaf, left to right.
func (e Expr) Walk(fn func(variable, term string)) {
	switch e.op {
	case OpTerm:
		fn(e.variable, e.term)
	default:
		if e.left != nil {
			e.left.Walk(fn)
		}
		if e.right != nil {
			e.right.Walk(fn)
		}
	}
}

func (e Expr) valid() bool {
	switch e.op {
	case OpTerm:
		return e.variable != "" && e.term != ""
	case OpAnd, OpOr:
		return e.left != nil && e.right != nil && e.left.valid() && e.right.valid()
	default:
		return false
	}
}

func (e Expr) String() string {
	switch e.op {
	case OpTerm:
		return fmt.Sprintf("%s is %s", e.variable, e.term)
	case OpAnd:
		return fmt.Sprintf("(%s AND %s)", e.left, e.right)
	case OpOr:
		return fmt.Sprintf("(%s OR %s)", e.left, e.right)
	default:
		return "<invalid>"
	}
}
