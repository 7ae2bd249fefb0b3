// v0
// internal/command/command.go
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nrgchamp/cracfuzzy/internal/fuzzy"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadPayload     = errors.New("malformed command payload")
)

// Command names accepted on the command topic.
const (
	Simulate = "simulate"
	Infer    = "infer"
	Cancel   = "cancel"
)

// SimulateRequest overrides the configured run defaults. Nil fields keep
// the defaults.
type SimulateRequest struct {
	Setpoint     *float64 `json:"setpoint,omitempty"`
	InitialTemp  *float64 `json:"initial_temp,omitempty"`
	Horizon      *int     `json:"horizon,omitempty"`
	ExternalTemp *float64 `json:"external_temp,omitempty"`
	ThermalLoad  *float64 `json:"thermal_load,omitempty"`
	Profile      string   `json:"profile,omitempty"`
	Seed         *int64   `json:"seed,omitempty"`
	Noise        *bool    `json:"noise,omitempty"`
	PaceMS       *int     `json:"pace_ms,omitempty"`
}

// InferRequest carries crisp controller inputs. Named fields are shorthand
// for the bundled variable names and take precedence over Inputs.
type InferRequest struct {
	Inputs       map[string]float64 `json:"inputs,omitempty"`
	Error        *float64           `json:"error,omitempty"`
	DeltaError   *float64           `json:"delta_error,omitempty"`
	ExternalTemp *float64           `json:"external_temp,omitempty"`
	ThermalLoad  *float64           `json:"thermal_load,omitempty"`
}

// Values merges Inputs and the named fields.
func (r InferRequest) Values() map[string]float64 {
	out := make(map[string]float64, len(r.Inputs)+4)
	for k, v := range r.Inputs {
		out[k] = v
	}
	set := func(name string, v *float64) {
		if v != nil {
			out[name] = *v
		}
	}
	set(fuzzy.VarError, r.Error)
	set(fuzzy.VarDeltaError, r.DeltaError)
	set(fuzzy.VarExternalTemp, r.ExternalTemp)
	set(fuzzy.VarThermalLoad, r.ThermalLoad)
	return out
}

// InferResponse is a point inference with its diagnostics. Inputs hold the
// values actually fed to the engine, after saturation.
type InferResponse struct {
	Inputs      map[string]float64 `json:"inputs"`
	Output      float64            `json:"output"`
	Fallback    bool               `json:"fallback"`
	Degrees     fuzzy.Degrees      `json:"degrees"`
	Activations []fuzzy.Activation `json:"activations"`
}

// Controller is what the HTTP API and the command listener drive.
type Controller interface {
	StartSimulation(ctx context.Context, req SimulateRequest) (runID string, err error)
	CancelSimulation() bool
	Infer(req InferRequest) (InferResponse, error)
}

// Envelope is a decoded command message.
type Envelope struct {
	Cmd      string
	Simulate SimulateRequest
	Infer    InferRequest
}

// Decode parses {"cmd": "...", ...fields}. The remaining fields are decoded
// into the request matching the command.
func Decode(payload []byte) (Envelope, error) {
	var head struct {
		Cmd string `json:"cmd"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	env := Envelope{Cmd: strings.ToLower(strings.TrimSpace(head.Cmd))}
	switch env.Cmd {
	case Simulate:
		if err := json.Unmarshal(payload, &env.Simulate); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
	case Infer:
		if err := json.Unmarshal(payload, &env.Infer); err != nil {
			return Envelope{}, fmt.Errorf("%w: %v", ErrBadPayload, err)
		}
	case Cancel:
	case "":
		return Envelope{}, fmt.Errorf("%w: missing cmd", ErrBadPayload)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownCommand, head.Cmd)
	}
	return env, nil
}
