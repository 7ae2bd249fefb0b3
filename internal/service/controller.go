// v0
// internal/service/controller.go
package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/config"
	"nrgchamp/cracfuzzy/internal/disturbance"
	"nrgchamp/cracfuzzy/internal/fuzzy"
	"nrgchamp/cracfuzzy/internal/ruleset"
	"nrgchamp/cracfuzzy/internal/simulation"
)

// Builtin controller names.
const (
	BuiltinReference = "reference"
	BuiltinExtended  = "extended"
)

// BuildController resolves the configured controller: a definition file
// when set, a builtin otherwise. Resolution and fallback overrides apply
// to both.
func BuildController(cfg *config.AppConfig) (fuzzy.Config, *ruleset.Definition, error) {
	var (
		fc  fuzzy.Config
		def *ruleset.Definition
	)
	if cfg.ControllerFile != "" {
		c, d, err := ruleset.Load(cfg.ControllerFile)
		if err != nil {
			return fuzzy.Config{}, nil, err
		}
		fc, def = c, d
	} else {
		switch strings.ToLower(strings.TrimSpace(cfg.Controller)) {
		case BuiltinReference, "":
			fc = fuzzy.Reference()
		case BuiltinExtended:
			fc = fuzzy.ExtendedReference()
		default:
			return fuzzy.Config{}, nil, fmt.Errorf("%w: controller.builtin=%q", config.ErrInvalidValue, cfg.Controller)
		}
		name := strings.ToLower(strings.TrimSpace(cfg.Controller))
		if name == "" {
			name = BuiltinReference
		}
		def = ruleset.FromConfig(name, fc)
	}
	if cfg.Resolution > 0 {
		fc.Resolution = cfg.Resolution
		def.Resolution = cfg.Resolution
	}
	if cfg.Fallback != nil {
		fb := *cfg.Fallback
		fc.Fallback = &fb
		def.Fallback = &fb
	}
	return fc, def, nil
}

// RunParams merges a request over the configured defaults.
func RunParams(cfg *config.AppConfig, req command.SimulateRequest) (simulation.Params, error) {
	p := simulation.Params{
		Setpoint:    cfg.Setpoint,
		InitialTemp: cfg.InitialTemp,
		Horizon:     cfg.Horizon,
		Pace:        cfg.Pace,
	}
	if req.Setpoint != nil {
		p.Setpoint = *req.Setpoint
		// a run that only moves the setpoint starts at it
		if req.InitialTemp == nil {
			p.InitialTemp = *req.Setpoint
		}
	}
	if req.InitialTemp != nil {
		p.InitialTemp = *req.InitialTemp
	}
	if req.Horizon != nil {
		p.Horizon = *req.Horizon
		if p.Horizon == 0 {
			p.Horizon = -1 // zero is only the unset default
		}
	}
	if req.PaceMS != nil && *req.PaceMS >= 0 {
		p.Pace = time.Duration(*req.PaceMS) * time.Millisecond
	}

	profile := cfg.Profile
	if req.Profile != "" {
		profile = req.Profile
	}
	dp := cfg.Disturbance
	if req.ExternalTemp != nil {
		dp.BaseExternal = *req.ExternalTemp
	}
	if req.ThermalLoad != nil {
		dp.BaseLoad = *req.ThermalLoad
	}
	if req.Seed != nil {
		dp.Seed = *req.Seed
	}
	if req.Noise != nil {
		dp.Noise = *req.Noise
	}
	gen, err := disturbance.FromProfile(profile, dp)
	if err != nil {
		return p, err
	}
	p.Generator = gen
	return p, nil
}

// PointInference saturates every engine input to its universe and runs
// one inference. Inputs the engine does not declare are ignored.
func PointInference(engine *fuzzy.Engine, req command.InferRequest) (command.InferResponse, error) {
	vals := req.Values()
	in := make(map[string]float64, len(vals))
	for _, v := range engine.Inputs() {
		x, ok := vals[v.Name()]
		if !ok {
			return command.InferResponse{}, fmt.Errorf("%w: %s", fuzzy.ErrMissingInput, v.Name())
		}
		if math.IsNaN(x) {
			return command.InferResponse{}, fmt.Errorf("%w: %s", fuzzy.ErrInvalidInput, v.Name())
		}
		in[v.Name()] = v.Clamp(x)
	}
	res, err := engine.Infer(in)
	if err != nil {
		return command.InferResponse{}, err
	}
	return command.InferResponse{
		Inputs:      in,
		Output:      res.Output,
		Fallback:    res.Fallback,
		Degrees:     res.Degrees,
		Activations: res.Activations,
	}, nil
}
