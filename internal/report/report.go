// Package report writes the artifacts of a finished batch: the error report
// and the optional noise profile plot or chart.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"photo-cleaner/internal/models"
)

var ErrNoProfiles = errors.New("no succeeded items to plot")

// WriteErrorReport writes r to path, replacing any previous report.
func WriteErrorReport(path string, r *models.ErrorReport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create error report: %w", err)
	}
	if _, err := r.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write error report: %w", err)
	}
	return f.Close()
}

// RemoveStale deletes a report left over from an earlier run.
func RemoveStale(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale error report: %w", err)
	}
	return nil
}

// PlotProfiles saves a scatter of noise sigma against edge density for every
// succeeded outcome. A .html path gets an interactive chart, any other
// extension selects the image format of a static plot.
func PlotProfiles(outcomes []models.Outcome, path string) error {
	var (
		pts   = make(plotter.XYs, 0, len(outcomes))
		names = make([]string, 0, len(outcomes))
	)
	for _, o := range outcomes {
		if o.State != models.Succeeded {
			continue
		}
		pts = append(pts, plotter.XY{X: o.Profile.EdgeDensity, Y: o.Profile.NoiseSigma})
		names = append(names, o.Item.RelPath)
	}
	if len(pts) == 0 {
		return ErrNoProfiles
	}

	if strings.EqualFold(filepath.Ext(path), ".html") {
		return renderProfileChart(pts, names, path)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Noise profile (%d images)", len(pts))
	p.X.Label.Text = "Edge density"
	p.Y.Label.Text = "Noise sigma"
	p.X.Min = 0
	p.X.Max = 1
	p.Add(plotter.NewGrid())

	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save profile plot: %w", err)
	}
	return nil
}

func renderProfileChart(pts plotter.XYs, names []string, path string) error {
	data := make([]opts.ScatterData, 0, len(pts))
	for i, pt := range pts {
		data = append(data, opts.ScatterData{Name: names[i], Value: []interface{}{pt.X, pt.Y}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Noise profile", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Noise profile", Subtitle: fmt.Sprintf("images=%d", len(data))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: 0, Max: 1, Name: "Edge density", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Noise sigma", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("profiles", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("failed to render profile chart: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to save profile chart: %w", err)
	}
	return nil
}
