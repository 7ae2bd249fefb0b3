// v0
// internal/ruleset/parse_test.go
package ruleset

import (
	"errors"
	"testing"

	"nrgchamp/cracfuzzy/internal/fuzzy"
)

func TestParseExpr(t *testing.T) {
	d := fuzzy.Degrees{
		"error":       {"ZE": 0.6, "PS": 0.3},
		"delta_error": {"NS": 0.9, "PS": 0.1},
	}
	cases := []struct {
		in   string
		want float64
	}{
		{"error is ZE", 0.6},
		{"error is ZE and delta_error is NS", 0.6},
		{"error is PS OR delta_error is NS", 0.9},
		// and binds tighter than or
		{"error is PS or error is ZE and delta_error is PS", 0.3},
		{"(error is PS or error is ZE) and delta_error is PS", 0.1},
		{"((error is ZE))", 0.6},
	}
	for _, tc := range cases {
		e, err := ParseExpr(tc.in)
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if got := e.Degree(d); got != tc.want {
			t.Fatalf("%q: got %g want %g", tc.in, got, tc.want)
		}
	}
}

func TestParseExprRoundTrip(t *testing.T) {
	e := fuzzy.Or(fuzzy.And(fuzzy.Is("a", "x"), fuzzy.Is("b", "y")), fuzzy.Is("c", "z"))
	back, err := ParseExpr(e.String())
	if err != nil {
		t.Fatalf("parse %q: %v", e.String(), err)
	}
	if back.String() != e.String() {
		t.Fatalf("%q != %q", back.String(), e.String())
	}
}

func TestParseExprErrors(t *testing.T) {
	for _, in := range []string{"", "error", "error is", "error was ZE", "(error is ZE", "error is ZE and", "error is ZE delta_error", "and is ZE"} {
		if _, err := ParseExpr(in); !errors.Is(err, ErrSyntax) {
			t.Fatalf("%q: expected ErrSyntax, got %v", in, err)
		}
	}
}
