// v0
// internal/report/csv.go
package report

import (
	"encoding/csv"
	"io"
	"strconv"

	"nrgchamp/cracfuzzy/internal/simulation"
)

var csvHeader = []string{
	"step", "start_temperature", "external_temperature", "thermal_load",
	"error", "delta_error", "control_output", "temperature", "fallback",
}

// WriteCSV dumps the run history, one row per step.
func WriteCSV(w io.Writer, res *simulation.Result) error {
	if res == nil {
		return ErrNoRecords
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, r := range res.Records {
		row := []string{
			strconv.Itoa(r.Step), f(r.StartTemp), f(r.ExternalTemp), f(r.ThermalLoad),
			f(r.Error), f(r.DeltaError), f(r.Output), f(r.Temperature), strconv.FormatBool(r.Fallback),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
