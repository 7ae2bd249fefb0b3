// v0
// internal/ruleset/definition.go
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"nrgchamp/cracfuzzy/internal/fuzzy"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported controller file format")
	ErrSyntax            = errors.New("rule syntax error")
)

// Format selects the serialization of a controller definition.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// Definition is the on-disk form of a fuzzy controller.
type Definition struct {
	Name       string     `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Resolution float64    `yaml:"resolution" toml:"resolution" json:"resolution"`
	Fallback   *float64   `yaml:"fallback,omitempty" toml:"fallback,omitempty" json:"fallback,omitempty"`
	Inputs     []Variable `yaml:"inputs" toml:"inputs" json:"inputs"`
	Output     Variable   `yaml:"output" toml:"output" json:"output"`
	Rules      []Rule     `yaml:"rules" toml:"rules" json:"rules"`
}

type Variable struct {
	Name  string  `yaml:"name" toml:"name" json:"name"`
	Min   float64 `yaml:"min" toml:"min" json:"min"`
	Max   float64 `yaml:"max" toml:"max" json:"max"`
	Terms []Term  `yaml:"terms" toml:"terms" json:"terms"`
}

type Term struct {
	Name   string    `yaml:"name" toml:"name" json:"name"`
	Shape  string    `yaml:"shape" toml:"shape" json:"shape"`
	Params []float64 `yaml:"params,flow" toml:"params" json:"params"`
}

// Rule holds an antecedent such as "error is PB and delta_error is PS" and
// the output term it activates.
type Rule struct {
	If   string `yaml:"if" toml:"if" json:"if"`
	Then string `yaml:"then" toml:"then" json:"then"`
}

// Load reads a controller definition from path and builds the engine config.
func Load(path string) (fuzzy.Config, *Definition, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return fuzzy.Config{}, nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fuzzy.Config{}, nil, fmt.Errorf("read controller file: %w", err)
	}
	def, err := Decode(bytes.NewReader(raw), format)
	if err != nil {
		return fuzzy.Config{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg, err := def.Build()
	if err != nil {
		return fuzzy.Config{}, nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, def, nil
}

// Decode parses a definition. Unknown keys are rejected in both formats.
func Decode(r io.Reader, format Format) (*Definition, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&def); err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return &def, nil
}

// Encode writes def in the given format.
func Encode(w io.Writer, def *Definition, format Format) error {
	switch format {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(def); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(def); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Build converts the definition into an engine configuration. Engine-level
// checks (term references, resolution) happen later in fuzzy.NewEngine.
func (d *Definition) Build() (fuzzy.Config, error) {
	cfg := fuzzy.Config{Resolution: d.Resolution, Fallback: d.Fallback}
	for _, in := range d.Inputs {
		v, err := in.build()
		if err != nil {
			return fuzzy.Config{}, err
		}
		cfg.Inputs = append(cfg.Inputs, v)
	}
	out, err := d.Output.build()
	if err != nil {
		return fuzzy.Config{}, err
	}
	cfg.Output = out
	for i, r := range d.Rules {
		expr, err := ParseExpr(r.If)
		if err != nil {
			return fuzzy.Config{}, fmt.Errorf("rule %d: %w", i+1, err)
		}
		cfg.Rules = append(cfg.Rules, fuzzy.NewRule(expr, out.Name(), strings.TrimSpace(r.Then)))
	}
	return cfg, nil
}

func (v Variable) build() (*fuzzy.Variable, error) {
	terms := make([]fuzzy.Term, 0, len(v.Terms))
	for _, t := range v.Terms {
		mf, err := t.build()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", v.Name, t.Name, err)
		}
		terms = append(terms, fuzzy.Term{Name: t.Name, MF: mf})
	}
	return fuzzy.NewVariable(v.Name, v.Min, v.Max, terms...)
}

func (t Term) build() (fuzzy.MembershipFunc, error) {
	p := t.Params
	switch strings.ToLower(strings.TrimSpace(t.Shape)) {
	case "triangular", "triangle", "tri":
		if len(p) != 3 {
			return fuzzy.MembershipFunc{}, fmt.Errorf("%w: triangular needs 3 params, got %d", fuzzy.ErrInvalidShape, len(p))
		}
		return fuzzy.Triangular(p[0], p[1], p[2])
	case "trapezoidal", "trapezoid", "trap":
		if len(p) != 4 {
			return fuzzy.MembershipFunc{}, fmt.Errorf("%w: trapezoidal needs 4 params, got %d", fuzzy.ErrInvalidShape, len(p))
		}
		return fuzzy.Trapezoidal(p[0], p[1], p[2], p[3])
	default:
		return fuzzy.MembershipFunc{}, fmt.Errorf("%w: unknown shape %q", fuzzy.ErrInvalidShape, t.Shape)
	}
}

// FromConfig renders an engine configuration back to its file form.
func FromConfig(name string, cfg fuzzy.Config) *Definition {
	def := &Definition{Name: name, Resolution: cfg.Resolution, Fallback: cfg.Fallback}
	for _, v := range cfg.Inputs {
		def.Inputs = append(def.Inputs, fromVariable(v))
	}
	if cfg.Output != nil {
		def.Output = fromVariable(cfg.Output)
	}
	for _, r := range cfg.Rules {
		def.Rules = append(def.Rules, Rule{If: r.If.String(), Then: r.Then.Term})
	}
	return def
}

func fromVariable(v *fuzzy.Variable) Variable {
	lo, hi := v.Bounds()
	out := Variable{Name: v.Name(), Min: lo, Max: hi}
	for _, t := range v.Terms() {
		out.Terms = append(out.Terms, Term{Name: t.Name, Shape: t.MF.Shape().String(), Params: t.MF.Params()})
	}
	return out
}
