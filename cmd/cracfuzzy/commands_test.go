// v0
// cmd/cracfuzzy/commands_test.go
package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nrgchamp/cracfuzzy/internal/api"
	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/ruleset"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	t.Setenv("CRAC_PROPERTIES", "")
	t.Setenv("CONTROLLER_FILE", "")
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestVersion(t *testing.T) {
	if got := run(t, "version"); !strings.Contains(got, Version) {
		t.Fatalf("version output %q", got)
	}
}

func TestRulesJSON(t *testing.T) {
	var def ruleset.Definition
	if err := json.Unmarshal([]byte(run(t, "rules", "--format", "json")), &def); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if def.Name != "reference" || len(def.Inputs) != 2 || len(def.Rules) != 25 {
		t.Fatalf("unexpected definition: name=%s inputs=%d rules=%d", def.Name, len(def.Inputs), len(def.Rules))
	}
}

func TestRulesYAMLRoundTrip(t *testing.T) {
	def, err := ruleset.Decode(strings.NewReader(run(t, "rules")), ruleset.FormatYAML)
	if err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if _, err := def.Build(); err != nil {
		t.Fatalf("build: %v", err)
	}
}

func TestInferHotRoom(t *testing.T) {
	var res command.InferResponse
	if err := json.Unmarshal([]byte(run(t, "infer", "--error", "8", "--delta-error", "2")), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Fallback || res.Output < 80 {
		t.Fatalf("expected high cooling output, got %+v", res)
	}
}

func TestSimulateWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	chart := filepath.Join(dir, "run.png")
	csvPath := filepath.Join(dir, "run.csv")
	out := run(t, "simulate", "--horizon", "30", "--chart", chart, "--csv", csvPath)

	var sum api.RunSummary
	if err := json.Unmarshal([]byte(out), &sum); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if sum.State != "completed" || sum.Steps != 30 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	for _, p := range []string{chart, csvPath} {
		if fi, err := os.Stat(p); err != nil || fi.Size() == 0 {
			t.Fatalf("%s not written: %v", p, err)
		}
	}
}
