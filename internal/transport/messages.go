// v0
// internal/transport/messages.go
package transport

import (
	"nrgchamp/cracfuzzy/internal/command"
	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/simulation"
)

// Kind selects the topic suffix (MQTT), subject suffix (NATS) or header
// (Kafka) an event is published under.
type Kind string

const (
	KindStream Kind = "stream"
	KindAlert  Kind = "alert"
	KindResult Kind = "result"
)

type StepMessage struct {
	Type                string  `json:"type"`
	RunID               string  `json:"run_id"`
	Step                int     `json:"step"`
	Temperature         float64 `json:"temperature"`
	ControlOutput       float64 `json:"control_output"`
	ExternalTemperature float64 `json:"external_temperature"`
	ThermalLoad         float64 `json:"thermal_load"`
	Error               float64 `json:"error"`
	DeltaError          float64 `json:"delta_error"`
	Fallback            bool    `json:"fallback,omitempty"`
}

func NewStepMessage(e simulation.StepEvent) StepMessage {
	r := e.Record
	return StepMessage{
		Type:                "step",
		RunID:               e.RunID,
		Step:                r.Step,
		Temperature:         r.Temperature,
		ControlOutput:       r.Output,
		ExternalTemperature: r.ExternalTemp,
		ThermalLoad:         r.ThermalLoad,
		Error:               r.Error,
		DeltaError:          r.DeltaError,
		Fallback:            r.Fallback,
	}
}

type AlertMessage struct {
	Type        string  `json:"type"`
	RunID       string  `json:"run_id"`
	Step        int     `json:"step"`
	Temperature float64 `json:"temperature"`
	Kind        string  `json:"kind"`
	Severity    string  `json:"severity"`
	Message     string  `json:"message"`
}

func NewAlertMessage(e simulation.AlertEvent) AlertMessage {
	return AlertMessage{
		Type:        "alert",
		RunID:       e.RunID,
		Step:        e.Step,
		Temperature: e.Temperature,
		Kind:        e.Kind,
		Severity:    e.Severity,
		Message:     e.Message,
	}
}

type ResultMessage struct {
	Type    string       `json:"type"`
	RunID   string       `json:"run_id"`
	State   string       `json:"state"`
	Steps   int          `json:"steps"`
	Metrics *kpi.Metrics `json:"metrics"`
	Error   string       `json:"error,omitempty"`
}

func NewResultMessage(e simulation.CompletionEvent) ResultMessage {
	m := ResultMessage{
		Type:    "simulation_result",
		RunID:   e.RunID,
		State:   e.State.String(),
		Steps:   e.Steps,
		Metrics: e.Metrics,
	}
	if e.Err != nil {
		m.Error = e.Err.Error()
	}
	return m
}

// PointMessage answers an infer command.
type PointMessage struct {
	Type string `json:"type"`
	command.InferResponse
}

// ReplyMessage acknowledges simulate and cancel commands, or reports a
// rejected command.
type ReplyMessage struct {
	Type      string `json:"type"`
	Cmd       string `json:"cmd,omitempty"`
	RunID     string `json:"run_id,omitempty"`
	Cancelled *bool  `json:"cancelled,omitempty"`
	Error     string `json:"error,omitempty"`
}
