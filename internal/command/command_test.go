// v0
// internal/command/command_test.go
package command

import (
	"errors"
	"testing"

	"nrgchamp/cracfuzzy/internal/fuzzy"
)

func TestDecode(t *testing.T) {
	env, err := Decode([]byte(`{"cmd":"Simulate","setpoint":23.5,"horizon":60,"profile":"daily"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if env.Cmd != Simulate {
		t.Fatalf("cmd = %q", env.Cmd)
	}
	if env.Simulate.Setpoint == nil || *env.Simulate.Setpoint != 23.5 {
		t.Fatalf("setpoint not decoded: %+v", env.Simulate)
	}
	if env.Simulate.Horizon == nil || *env.Simulate.Horizon != 60 || env.Simulate.Profile != "daily" {
		t.Fatalf("unexpected request: %+v", env.Simulate)
	}
	if env.Simulate.InitialTemp != nil {
		t.Fatalf("absent fields must stay nil")
	}

	env, err = Decode([]byte(`{"cmd":"infer","error":1.5,"delta_error":-0.5}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	vals := env.Infer.Values()
	if vals[fuzzy.VarError] != 1.5 || vals[fuzzy.VarDeltaError] != -0.5 || len(vals) != 2 {
		t.Fatalf("values = %v", vals)
	}

	if _, err := Decode([]byte(`{"cmd":"cancel"}`)); err != nil {
		t.Fatalf("cancel: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		payload string
		want    error
	}{
		{`not json`, ErrBadPayload},
		{`{}`, ErrBadPayload},
		{`{"cmd":"reboot"}`, ErrUnknownCommand},
		{`{"cmd":"simulate","setpoint":"warm"}`, ErrBadPayload},
	}
	for _, tc := range cases {
		if _, err := Decode([]byte(tc.payload)); !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.payload, err, tc.want)
		}
	}
}

func TestInferValuesPrecedence(t *testing.T) {
	e := 2.0
	req := InferRequest{Inputs: map[string]float64{fuzzy.VarError: -1, "custom": 3}, Error: &e}
	vals := req.Values()
	if vals[fuzzy.VarError] != 2 || vals["custom"] != 3 {
		t.Fatalf("values = %v", vals)
	}
}
