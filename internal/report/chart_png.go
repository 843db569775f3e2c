package report

import (
	"fmt"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"hostreport/internal/models"
)

const (
	pngWidth  = 8 * vg.Inch
	pngHeight = 4 * vg.Inch
)

// RenderChartPNG draws the usage percentages as a static bar chart image with
// a horizontal line at the filter threshold.
func RenderChartPNG(w io.Writer, s *models.SystemSnapshot, threshold float64) error {
	if s == nil {
		return fmt.Errorf("no snapshot to chart")
	}
	labels := []string{"Memory", "Swap", "Allocation"}
	values := plotter.Values{s.UsedMemoryPercent, s.UsedSwapPercent, s.AllocationPercent}
	if s.DiskAvailable() {
		labels = append(labels, "Disk")
		values = append(values, s.DiskUsedPercent.Value)
	}

	p := plot.New()
	p.Title.Text = "Resource Usage (%) - " + s.ServerName
	p.Y.Label.Text = "Percent"
	p.Y.Min = 0
	p.Y.Max = 100

	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.Add(plotter.NewGrid())

	limit := plotter.NewFunction(func(float64) float64 { return threshold })
	limit.Color = plotutil.Color(1)
	limit.Dashes = plotutil.Dashes(1)
	p.Add(limit)
	p.Legend.Add(fmt.Sprintf("filter > %.0f%%", threshold), limit)
	p.Legend.Top = true

	p.NominalX(labels...)

	wt, err := p.WriterTo(pngWidth, pngHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
