package viz

import (
	"math"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/convsim/internal/results"
)

func sampleResult(n int) *results.Result {
	r := &results.Result{
		CircuitID: "buck-1",
		Topology:  "buck",
		Time:      make([]float64, n),
		Variables: map[string][]float64{
			"inductor_current":  make([]float64, n),
			"capacitor_voltage": make([]float64, n),
		},
		Order: []string{"inductor_current", "capacitor_voltage"},
	}
	for k := 0; k < n; k++ {
		t := float64(k) * 1e-6
		r.Time[k] = t
		r.Variables["inductor_current"][k] = 1.2 + 0.1*math.Sin(2*math.Pi*1e5*t)
		r.Variables["capacitor_voltage"][k] = 12 + 0.05*math.Cos(2*math.Pi*1e5*t)
	}
	return r
}

func press(v Viewer, key string) (Viewer, tea.Cmd) {
	var msg tea.KeyMsg
	if key == " " {
		msg = tea.KeyMsg{Type: tea.KeySpace}
	} else {
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	m, cmd := v.Update(msg)
	return m.(Viewer), cmd
}

func TestViewerSelection(t *testing.T) {
	v := NewViewer(sampleResult(200))
	if got := v.Selected(); got != "inductor_current" {
		t.Fatalf("Selected() = %q", got)
	}

	v, _ = press(v, "j")
	if got := v.Selected(); got != "capacitor_voltage" {
		t.Errorf("after j: %q", got)
	}
	v, _ = press(v, "j")
	if got := v.Selected(); got != "inductor_current" {
		t.Errorf("selection should wrap, got %q", got)
	}
	v, _ = press(v, "k")
	if got := v.Selected(); got != "capacitor_voltage" {
		t.Errorf("after k: %q", got)
	}
}

func TestViewerZoomPan(t *testing.T) {
	v := NewViewer(sampleResult(200))
	if off, span := v.Window(); off != 0 || span != 200 {
		t.Fatalf("Window() = %d, %d", off, span)
	}

	v, _ = press(v, "+")
	off, span := v.Window()
	if span != 100 || off != 50 {
		t.Errorf("zoom in: offset %d span %d", off, span)
	}

	for i := 0; i < 10; i++ {
		v, _ = press(v, "l")
	}
	off, span = v.Window()
	if off+span != 200 {
		t.Errorf("pan right should stop at the end, got %d+%d", off, span)
	}

	for i := 0; i < 10; i++ {
		v, _ = press(v, "+")
	}
	if _, span = v.Window(); span != minSpan {
		t.Errorf("span = %d, want floor %d", span, minSpan)
	}

	for i := 0; i < 10; i++ {
		v, _ = press(v, "-")
	}
	if off, span = v.Window(); off != 0 || span != 200 {
		t.Errorf("zoom out: offset %d span %d", off, span)
	}
}

func TestViewerPlayback(t *testing.T) {
	v := NewViewer(sampleResult(200))
	v, _ = press(v, "+")
	v, _ = press(v, "h")
	v, _ = press(v, "h")

	v, cmd := press(v, " ")
	if cmd == nil {
		t.Fatal("play should schedule a tick")
	}

	for i := 0; i < 100 && v.playing; i++ {
		m, _ := v.Update(tickMsg{})
		v = m.(Viewer)
	}
	if v.playing {
		t.Fatal("playback did not stop at the end")
	}
	if off, span := v.Window(); off+span != 200 {
		t.Errorf("playback ended at %d+%d", off, span)
	}
}

func TestViewerQuit(t *testing.T) {
	_, cmd := press(NewViewer(sampleResult(50)), "q")
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestViewerView(t *testing.T) {
	v := NewViewer(sampleResult(200))
	m, _ := v.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	v = m.(Viewer)

	out := v.View()
	for _, want := range []string{"buck-1", "inductor_current", "capacitor_voltage", "mean", "ripple"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}

	v, _ = press(v, "p")
	if out := v.View(); !strings.Contains(out, "x: inductor_current") {
		t.Error("phase view missing axis names")
	}

	v, _ = press(v, "t")
	if !strings.Contains(v.View(), Themes[1].Name) {
		t.Error("theme did not change")
	}
}

func TestCanvasDrawXY(t *testing.T) {
	c := NewCanvas(10, 5)
	c.DrawXY([]float64{0, 1}, []float64{0, 1})

	// bottom-left and top-right cells are lit
	if c.Grid[4][0] == 0x2800 {
		t.Error("bottom-left cell empty")
	}
	if c.Grid[0][9] == 0x2800 {
		t.Error("top-right cell empty")
	}
	if c.Grid[0][0] != 0x2800 {
		t.Error("top-left cell should be empty")
	}

	c.Clear()
	if strings.Trim(c.String(), "⠀\n") != "" {
		t.Error("Clear left dots behind")
	}
}

func TestPlot(t *testing.T) {
	if Plot(nil, "x", 40, 10) != "" {
		t.Error("empty series should render nothing")
	}
	out := Plot([]float64{1, 2, 3, 2, 1}, "vout", 40, 10)
	if !strings.Contains(out, "vout") {
		t.Error("caption missing")
	}
}

func TestResample(t *testing.T) {
	v := make([]float64, 101)
	for i := range v {
		v[i] = float64(i)
	}
	got := resample(v, 11)
	if len(got) != 11 || got[0] != 0 || got[10] != 100 || got[5] != 50 {
		t.Errorf("resample = %v", got)
	}
	if len(resample(v, 500)) != 101 {
		t.Error("short series should pass through")
	}
}
