// v0
// internal/fuzzy/reference.go
package fuzzy

// Variable names used by the bundled controllers.
const (
	VarError        = "error"
	VarDeltaError   = "delta_error"
	VarExternalTemp = "external_temp"
	VarThermalLoad  = "thermal_load"
	VarPower        = "power"
)

// Reference returns the two-input CRAC controller: error (T - setpoint, °C)
// and its per-step change drive cooling power (0..100 %) through a 5x5 rule
// table. A positive error means the room is too warm and pushes power up.
func Reference() Config {
	errVar := mustVariable(VarError, -12, 12,
		Term{"NB", MustTrapezoidal(-12, -12, -6, -3.5)},
		Term{"NS", MustTriangular(-6, -3.5, 0)},
		Term{"ZE", MustTriangular(-3.5, 0, 3.5)},
		Term{"PS", MustTriangular(0, 3.5, 6)},
		Term{"PB", MustTrapezoidal(3.5, 6, 12, 12)},
	)
	deltaVar := mustVariable(VarDeltaError, -6, 6,
		Term{"NB", MustTrapezoidal(-6, -6, -2, -1)},
		Term{"NS", MustTriangular(-2, -1, 0)},
		Term{"ZE", MustTriangular(-1, 0, 1)},
		Term{"PS", MustTriangular(0, 1, 2)},
		Term{"PB", MustTrapezoidal(1, 2, 6, 6)},
	)
	power := powerVariable(
		Term{"VL", MustTriangular(0, 0, 25)},
		Term{"L", MustTriangular(0, 25, 50)},
		Term{"M", MustTriangular(25, 50, 75)},
		Term{"H", MustTriangular(50, 75, 100)},
		Term{"VH", MustTriangular(75, 100, 100)},
	)

	cols := []string{"NB", "NS", "ZE", "PS", "PB"}
	table := []struct {
		err string
		out [5]string
	}{
		{"NB", [5]string{"VL", "VL", "VL", "L", "M"}},
		{"NS", [5]string{"VL", "L", "M", "M", "H"}},
		{"ZE", [5]string{"VL", "L", "L", "H", "VH"}},
		{"PS", [5]string{"L", "M", "H", "VH", "VH"}},
		{"PB", [5]string{"M", "H", "VH", "VH", "VH"}},
	}
	rules := make(RuleBase, 0, len(table)*len(cols))
	for _, row := range table {
		for i, de := range cols {
			rules = append(rules, NewRule(And(Is(VarError, row.err), Is(VarDeltaError, de)), VarPower, row.out[i]))
		}
	}

	return Config{
		Inputs:     []*Variable{errVar, deltaVar},
		Output:     power,
		Rules:      rules,
		Resolution: 1,
	}
}

// ExtendedReference returns the four-input variant that also weighs outdoor
// temperature (°C) and IT thermal load (%).
func ExtendedReference() Config {
	errVar := mustVariable(VarError, -6, 6,
		Term{"NB", MustTriangular(-6, -6, -3)},
		Term{"NS", MustTriangular(-4, -2, 0)},
		Term{"ZE", MustTriangular(-1, 0, 1)},
		Term{"PS", MustTriangular(0, 2, 4)},
		Term{"PB", MustTriangular(3, 6, 6)},
	)
	deltaVar := mustVariable(VarDeltaError, -2, 2,
		Term{"N", MustTriangular(-2, -2, 0)},
		Term{"Z", MustTriangular(-1, 0, 1)},
		Term{"P", MustTriangular(0, 2, 2)},
	)
	extVar := mustVariable(VarExternalTemp, 10, 35,
		Term{"COLD", MustTriangular(10, 10, 20)},
		Term{"MILD", MustTriangular(15, 22, 28)},
		Term{"HOT", MustTriangular(25, 35, 35)},
	)
	loadVar := mustVariable(VarThermalLoad, 0, 100,
		Term{"LOW", MustTriangular(0, 0, 40)},
		Term{"MEDIUM", MustTriangular(20, 50, 80)},
		Term{"HIGH", MustTriangular(60, 100, 100)},
	)
	power := powerVariable(
		Term{"VL", MustTriangular(0, 0, 25)},
		Term{"L", MustTriangular(10, 30, 50)},
		Term{"M", MustTriangular(30, 50, 70)},
		Term{"H", MustTriangular(50, 70, 90)},
		Term{"VH", MustTriangular(75, 100, 100)},
	)

	e := func(t string) Expr { return Is(VarError, t) }
	de := func(t string) Expr { return Is(VarDeltaError, t) }
	rules := RuleBase{
		NewRule(Or(e("NB"), e("NS")), VarPower, "VL"),
		NewRule(And(e("ZE"), de("N")), VarPower, "L"),
		NewRule(And(e("ZE"), de("Z")), VarPower, "M"),
		NewRule(And(e("ZE"), de("P")), VarPower, "H"),
		NewRule(Or(e("PS"), e("PB")), VarPower, "VH"),
		NewRule(Is(VarExternalTemp, "HOT"), VarPower, "H"),
		NewRule(Is(VarExternalTemp, "COLD"), VarPower, "L"),
		NewRule(Is(VarThermalLoad, "HIGH"), VarPower, "VH"),
		NewRule(Is(VarThermalLoad, "LOW"), VarPower, "VL"),
		NewRule(And(e("PS"), Is(VarThermalLoad, "HIGH")), VarPower, "VH"),
		NewRule(And(e("ZE"), Is(VarExternalTemp, "HOT"), Is(VarThermalLoad, "MEDIUM")), VarPower, "H"),
	}

	return Config{
		Inputs:     []*Variable{errVar, deltaVar, extVar, loadVar},
		Output:     power,
		Rules:      rules,
		Resolution: 1,
	}
}

func powerVariable(terms ...Term) *Variable {
	return mustVariable(VarPower, 0, 100, terms...)
}

func mustVariable(name string, lo, hi float64, terms ...Term) *Variable {
	v, err := NewVariable(name, lo, hi, terms...)
	if err != nil {
		panic(err)
	}
	return v
}
