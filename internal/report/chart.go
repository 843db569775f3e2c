package report

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"hostreport/internal/models"
)

// RenderChart writes a standalone HTML page with a bar chart of the usage
// percentages and a marker at the filter threshold.
func RenderChart(w io.Writer, s *models.SystemSnapshot, threshold float64) error {
	if s == nil {
		return fmt.Errorf("no snapshot to chart")
	}
	labels := []string{"Memory", "Swap", "Allocation"}
	values := []float64{s.UsedMemoryPercent, s.UsedSwapPercent, s.AllocationPercent}
	if s.DiskAvailable() {
		labels = append(labels, "Disk")
		values = append(values, s.DiskUsedPercent.Value)
	}

	data := make([]opts.BarData, 0, len(values))
	for _, v := range values {
		data = append(data, opts.BarData{Value: v})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "System Report for " + s.ServerName,
			Width:     "100%",
			Height:    "420px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Resource Usage (%)",
			Subtitle: fmt.Sprintf("%s - uptime %s", s.ServerName, s.Uptime),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Min: 0, Max: 100}),
	)
	bar.SetXAxis(labels).AddSeries("usage", data,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{
			Name:  fmt.Sprintf("filter > %.0f%%", threshold),
			YAxis: threshold,
		}),
	)
	return bar.Render(w)
}
