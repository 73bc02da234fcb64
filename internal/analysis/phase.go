package analysis

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/convsim/internal/metrics"
	"github.com/san-kum/convsim/internal/results"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D pairs two variables of a result sample by sample.
type PhasePortrait2D struct {
	XName, YName string
	Points       []Point
}

// NewPhasePortrait pairs xName against yName over the trailing window of
// r, e.g. inductor current against capacitor voltage.
func NewPhasePortrait(r *results.Result, xName, yName string, window float64) (*PhasePortrait2D, error) {
	xs, ok := r.Get(xName)
	if !ok {
		return nil, fmt.Errorf("unknown variable %q", xName)
	}
	ys, ok := r.Get(yName)
	if !ok {
		return nil, fmt.Errorf("unknown variable %q", yName)
	}

	start := metrics.SteadyState(r.Time, window)
	portrait := &PhasePortrait2D{
		XName:  xName,
		YName:  yName,
		Points: make([]Point, 0, len(xs)-start),
	}
	for k := start; k < len(xs); k++ {
		portrait.Points = append(portrait.Points, Point{X: xs[k], Y: ys[k]})
	}
	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y

	for _, p := range portrait.Points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// Draw axes if they cross the visible area
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

// Section holds one point per sampling period.
type Section struct {
	Period float64
	Points []Point
}

// Stroboscopic samples xName and yName once per period over the trailing
// window of r, interpolating linearly between time points.
func Stroboscopic(r *results.Result, xName, yName string, period, window float64) (*Section, error) {
	if !(period > 0) {
		return nil, fmt.Errorf("period must be positive, got %g", period)
	}
	xs, ok := r.Get(xName)
	if !ok {
		return nil, fmt.Errorf("unknown variable %q", xName)
	}
	ys, ok := r.Get(yName)
	if !ok {
		return nil, fmt.Errorf("unknown variable %q", yName)
	}

	sec := &Section{Period: period}
	if len(r.Time) < 2 {
		return sec, nil
	}

	start := r.Time[metrics.SteadyState(r.Time, window)]
	k := 0
	for n := math.Ceil(start / period); n*period <= r.Time[len(r.Time)-1]; n++ {
		ts := n * period
		for k+1 < len(r.Time)-1 && r.Time[k+1] < ts {
			k++
		}
		t0, t1 := r.Time[k], r.Time[k+1]
		frac := (ts - t0) / (t1 - t0)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 0
		}
		sec.Points = append(sec.Points, Point{
			X: xs[k] + frac*(xs[k+1]-xs[k]),
			Y: ys[k] + frac*(ys[k+1]-ys[k]),
		})
	}
	return sec, nil
}

// Distinct returns the section points that differ from every earlier
// point by more than tol, scaled by the section's magnitude when that
// exceeds one.
func (s *Section) Distinct(tol float64) []Point {
	if len(s.Points) == 0 {
		return nil
	}
	spanX, spanY := 1.0, 1.0
	for _, p := range s.Points {
		spanX = math.Max(spanX, math.Abs(p.X))
		spanY = math.Max(spanY, math.Abs(p.Y))
	}

	var out []Point
	for _, p := range s.Points {
		dup := false
		for _, q := range out {
			if math.Abs(p.X-q.X) <= tol*spanX && math.Abs(p.Y-q.Y) <= tol*spanY {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, p)
		}
	}
	return out
}

// SectionToASCII converts section data to ASCII plot
func SectionToASCII(section *Section, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No samples in window"
	}

	portrait := &PhasePortrait2D{Points: section.Points}
	return PhasePortraitToASCII(portrait, width, height)
}
