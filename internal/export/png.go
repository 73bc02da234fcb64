package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/san-kum/convsim/internal/results"
)

const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 4 * vg.Inch
	// maxPlotPoints bounds the samples drawn per series.
	maxPlotPoints = 4000
)

// NewPlot draws the named variables of res against time. With no names
// every variable is drawn.
func NewPlot(res *results.Result, names ...string) (*plot.Plot, error) {
	if len(names) == 0 {
		names = res.Names()
	}

	p := plot.New()
	p.Title.Text = plotTitle(res, names)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = unitLabel(names)
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	for i, name := range names {
		values, ok := res.Get(name)
		if !ok {
			return nil, fmt.Errorf("unknown variable %q", name)
		}

		ts, vs := Decimate(res.Time, values, maxPlotPoints)
		xys := make(plotter.XYs, len(ts))
		for k := range ts {
			xys[k].X = ts[k]
			xys[k].Y = vs[k]
		}

		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, fmt.Errorf("plot %s: %w", name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(name, line)
	}
	return p, nil
}

// WritePNG renders the named variables as a PNG image.
func WritePNG(w io.Writer, res *results.Result, names ...string) error {
	p, err := NewPlot(res, names...)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(DefaultWidth, DefaultHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SavePlot writes an image whose format follows the file extension (png,
// svg, pdf, eps, jpg, tif).
func SavePlot(path string, res *results.Result, names ...string) error {
	if filepath.Ext(path) == "" {
		return fmt.Errorf("%s: missing image extension", path)
	}
	p, err := NewPlot(res, names...)
	if err != nil {
		return err
	}
	return p.Save(DefaultWidth, DefaultHeight, path)
}

// PlotsBase64 renders one PNG per variable, base64 encoded.
func PlotsBase64(res *results.Result) (map[string]string, error) {
	out := make(map[string]string, len(res.Variables))
	var buf bytes.Buffer
	for _, name := range res.Names() {
		buf.Reset()
		if err := WritePNG(&buf, res, name); err != nil {
			return nil, err
		}
		out[name] = base64.StdEncoding.EncodeToString(buf.Bytes())
	}
	return out, nil
}

// Decimate keeps at most max samples by taking the minimum and maximum of
// each bucket, so switching ripple survives down-sampling.
func Decimate(times, values []float64, max int) ([]float64, []float64) {
	n := len(values)
	if max < 2 || n <= max {
		return times, values
	}

	buckets := max / 2
	ts := make([]float64, 0, max)
	vs := make([]float64, 0, max)
	for b := 0; b < buckets; b++ {
		lo := b * n / buckets
		hi := (b + 1) * n / buckets
		iMin, iMax := lo, lo
		for k := lo; k < hi; k++ {
			if values[k] < values[iMin] {
				iMin = k
			}
			if values[k] > values[iMax] {
				iMax = k
			}
		}
		first, second := iMin, iMax
		if first > second {
			first, second = second, first
		}
		ts = append(ts, times[first])
		vs = append(vs, values[first])
		if second != first {
			ts = append(ts, times[second])
			vs = append(vs, values[second])
		}
	}
	return ts, vs
}

func plotTitle(res *results.Result, names []string) string {
	if len(names) == 1 {
		return fmt.Sprintf("%s (%s)", names[0], res.Topology)
	}
	return fmt.Sprintf("%s simulation", res.Topology)
}

func unitLabel(names []string) string {
	units := map[string]bool{}
	for _, n := range names {
		units[Unit(n)] = true
	}
	if len(units) != 1 {
		return "value"
	}
	for u := range units {
		return u
	}
	return ""
}

// Unit guesses the physical unit of a variable from its name.
func Unit(name string) string {
	switch {
	case strings.HasSuffix(name, "_voltage"), strings.HasPrefix(name, "v_"):
		return "V"
	case strings.HasSuffix(name, "_current"), strings.HasPrefix(name, "i_"):
		return "A"
	case strings.HasSuffix(name, "_power"), strings.HasPrefix(name, "p_"):
		return "W"
	default:
		return ""
	}
}
