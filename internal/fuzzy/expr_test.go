// v0
// internal/fuzzy/expr_test.go
package fuzzy

import "testing"

func TestExprDegree(t *testing.T) {
	d := Degrees{
		"a": {"lo": 0.2, "hi": 0.7},
		"b": {"lo": 0.5, "hi": 0.1},
	}
	cases := []struct {
		name string
		expr Expr
		want float64
	}{
		{"leaf", Is("a", "hi"), 0.7},
		{"and", And(Is("a", "hi"), Is("b", "lo")), 0.5},
		{"or", Or(Is("a", "lo"), Is("b", "hi")), 0.2},
		{"and three", And(Is("a", "hi"), Is("b", "lo"), Is("a", "lo")), 0.2},
		{"nested", Or(And(Is("a", "lo"), Is("b", "lo")), Is("b", "hi")), 0.2},
		{"missing leaf", Is("c", "x"), 0},
	}
	for _, tc := range cases {
		if got := tc.expr.Degree(d); got != tc.want {
			t.Fatalf("%s: got %g want %g", tc.name, got, tc.want)
		}
	}
}

func TestExprOperandOrder(t *testing.T) {
	d := Degrees{"a": {"x": 0.3}, "b": {"y": 0.8}}
	if And(Is("a", "x"), Is("b", "y")).Degree(d) != And(Is("b", "y"), Is("a", "x")).Degree(d) {
		t.Fatalf("AND must be commutative")
	}
	if Or(Is("a", "x"), Is("b", "y")).Degree(d) != Or(Is("b", "y"), Is("a", "x")).Degree(d) {
		t.Fatalf("OR must be commutative")
	}
}

func TestExprWalkAndString(t *testing.T) {
	e := And(Is("error", "ZE"), Or(Is("delta_error", "NS"), Is("delta_error", "PS")))
	var leaves []string
	e.Walk(func(v, term string) { leaves = append(leaves, v+"."+term) })
	if len(leaves) != 3 || leaves[0] != "error.ZE" || leaves[2] != "delta_error.PS" {
		t.Fatalf("leaves: %v", leaves)
	}
	want := "(error is ZE AND (delta_error is NS OR delta_error is PS))"
	if got := e.String(); got != want {
		t.Fatalf("string: %q", got)
	}
	if (Expr{op: OpAnd}).valid() {
		t.Fatalf("inner node without operands must be invalid")
	}
}
