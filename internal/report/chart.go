// v0
// internal/report/chart.go
package report

import (
	"bufio"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"nrgchamp/cracfuzzy/internal/kpi"
	"nrgchamp/cracfuzzy/internal/simulation"
)

var ErrNoRecords = errors.New("run has no records")

// ChartOptions sizes the PNG. Zero values select 10x7 in at 96 dpi.
type ChartOptions struct {
	WidthIn  float64
	HeightIn float64
	DPI      int
	Safety   kpi.Band // drawn as dashed limits when non-zero
}

var (
	tempColor     = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	setpointColor = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	limitColor    = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	outputColor   = color.RGBA{R: 30, G: 90, B: 200, A: 255}
)

// WriteChart renders temperature against setpoint (top) and cooling output
// (bottom) for res.
func WriteChart(w io.Writer, res *simulation.Result, opts ChartOptions) error {
	if res == nil || len(res.Records) == 0 {
		return ErrNoRecords
	}
	if opts.WidthIn <= 0 {
		opts.WidthIn = 10
	}
	if opts.HeightIn <= 0 {
		opts.HeightIn = 7
	}
	if opts.DPI <= 0 {
		opts.DPI = 96
	}

	n := len(res.Records)
	temp := make(plotter.XYs, n)
	out := make(plotter.XYs, n)
	for i, r := range res.Records {
		temp[i] = plotter.XY{X: float64(r.Step), Y: r.Temperature}
		out[i] = plotter.XY{X: float64(r.Step), Y: r.Output}
	}
	last := float64(res.Records[n-1].Step)

	tp := plot.New()
	tp.Title.Text = fmt.Sprintf("Room temperature (run %s, %s)", res.RunID, res.State)
	tp.Y.Label.Text = "°C"
	if err := addLine(tp, "temperature", temp, tempColor, false); err != nil {
		return err
	}
	if err := addLine(tp, "setpoint", horizontal(res.Setpoint, last), setpointColor, true); err != nil {
		return err
	}
	if opts.Safety != (kpi.Band{}) {
		if err := addLine(tp, "safety", horizontal(opts.Safety.Low, last), limitColor, true); err != nil {
			return err
		}
		if err := addLine(tp, "", horizontal(opts.Safety.High, last), limitColor, true); err != nil {
			return err
		}
	}
	tp.Legend.Top = true

	op := plot.New()
	op.Title.Text = "Cooling output"
	op.X.Label.Text = "step (min)"
	op.Y.Label.Text = "%"
	op.Y.Min, op.Y.Max = 0, 100
	if err := addLine(op, "", out, outputColor, false); err != nil {
		return err
	}

	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.WidthIn)*vg.Inch, vg.Length(opts.HeightIn)*vg.Inch),
		vgimg.UseDPI(opts.DPI),
	)
	dc := draw.New(c)
	tiles := draw.Tiles{
		Rows:      2,
		Cols:      1,
		PadX:      vg.Millimeter,
		PadY:      vg.Points(12),
		PadTop:    vg.Points(6),
		PadBottom: vg.Points(6),
		PadLeft:   vg.Points(6),
		PadRight:  vg.Points(12),
	}
	plots := [][]*plot.Plot{{tp}, {op}}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// SaveChart writes <dir>/<run id>.png and returns its path.
func SaveChart(dir string, res *simulation.Result, opts ChartOptions) (string, error) {
	if res == nil {
		return "", ErrNoRecords
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create directory: %w", err)
	}
	path := filepath.Join(dir, res.RunID+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("cannot create png: %w", err)
	}
	if err := WriteChart(f, res, opts); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color, dashed bool) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	line.LineStyle.Color = c
	line.LineStyle.Width = vg.Points(1.5)
	if dashed {
		line.LineStyle.Width = vg.Points(1)
		line.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	}
	p.Add(line)
	if label != "" {
		p.Legend.Add(label, line)
	}
	return nil
}

func horizontal(y, lastX float64) plotter.XYs {
	return plotter.XYs{{X: 0, Y: y}, {X: lastX, Y: y}}
}
