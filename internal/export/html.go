package export

import (
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"github.com/san-kum/convsim/internal/results"
)

// maxChartPoints bounds the samples embedded per series in the page.
const maxChartPoints = 5000

var chartGroups = []struct {
	unit     string
	title    string
	subtitle string
}{
	{"V", "Voltage", "voltages against time (s)"},
	{"A", "Current", "currents against time (s)"},
	{"W", "Power", "power against time (s)"},
	{"", "Other", "dimensionless signals against time (s)"},
}

// WriteHTML renders res as a page of zoomable line charts, one per unit.
func WriteHTML(w io.Writer, res *results.Result) error {
	page := components.NewPage()
	page.SetPageTitle(res.Topology + " simulation")

	for _, g := range chartGroups {
		var names []string
		for _, name := range res.Names() {
			if Unit(name) == g.unit {
				names = append(names, name)
			}
		}
		if len(names) == 0 {
			continue
		}
		page.AddCharts(lineChart(res, g.title, g.subtitle, names))
	}
	return page.Render(w)
}

func ExportHTML(path string, res *results.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := WriteHTML(f, res); err != nil {
		return err
	}
	return f.Close()
}

func lineChart(res *results.Result, title, subtitle string, names []string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        "t",
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      50,
			End:        100,
			XAxisIndex: []int{0},
		}),
		charts.WithAnimation(false),
	)

	// Series share one x axis, so every series is sampled at the same
	// evenly spaced indices.
	stride := 1
	if res.Len() > maxChartPoints {
		stride = (res.Len() + maxChartPoints - 1) / maxChartPoints
	}
	var xs []float64
	for k := 0; k < res.Len(); k += stride {
		xs = append(xs, res.Time[k])
	}
	line.SetXAxis(xs)

	for _, name := range names {
		values, _ := res.Get(name)
		items := make([]opts.LineData, 0, len(xs))
		for k := 0; k < len(values); k += stride {
			items = append(items, opts.LineData{Value: values[k]})
		}
		line.AddSeries(name, items, charts.WithLineChartOpts(opts.LineChart{
			ShowSymbol: opts.Bool(false),
		}))
	}
	return line
}
