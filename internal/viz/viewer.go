package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/convsim/internal/metrics"
	"github.com/san-kum/convsim/internal/results"
)

const (
	minSpan      = 16
	playInterval = 50 * time.Millisecond
)

type tickMsg time.Time

// Viewer is a Bubble Tea model over a finished simulation result.
type Viewer struct {
	res     *results.Result
	summary map[string]metrics.Waveform

	selected int
	offset   int
	span     int

	playing bool
	phase   bool
	help    bool
	theme   int

	width, height int
}

func NewViewer(res *results.Result) Viewer {
	return Viewer{
		res:     res,
		summary: metrics.Summary(res, metrics.DefaultWindow),
		span:    res.Len(),
		width:   100,
		height:  30,
	}
}

// Run shows res full screen until the user quits.
func Run(res *results.Result) error {
	_, err := tea.NewProgram(NewViewer(res), tea.WithAltScreen()).Run()
	return err
}

func (v Viewer) Init() tea.Cmd { return nil }

func tick() tea.Cmd {
	return tea.Tick(playInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (v Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width, v.height = msg.Width, msg.Height

	case tickMsg:
		if !v.playing {
			return v, nil
		}
		v.offset += max(1, v.span/20)
		if v.offset+v.span >= v.res.Len() {
			v.offset = v.res.Len() - v.span
			v.playing = false
			return v, nil
		}
		return v, tick()

	case tea.KeyMsg:
		n := len(v.res.Order)
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return v, tea.Quit
		case "j", "down":
			if n > 0 {
				v.selected = (v.selected + 1) % n
			}
		case "k", "up":
			if n > 0 {
				v.selected = (v.selected - 1 + n) % n
			}
		case "+", "=":
			v.zoom(v.span / 2)
		case "-", "_":
			v.zoom(v.span * 2)
		case "h", "left":
			v.pan(-max(1, v.span/4))
		case "l", "right":
			v.pan(max(1, v.span/4))
		case " ":
			v.playing = !v.playing
			if v.playing {
				if v.offset+v.span >= v.res.Len() {
					v.offset = 0
				}
				return v, tick()
			}
		case "p":
			v.phase = !v.phase
		case "t":
			v.theme = (v.theme + 1) % len(Themes)
		case "?":
			v.help = !v.help
		}
	}
	return v, nil
}

// zoom resizes the window around its center.
func (v *Viewer) zoom(span int) {
	n := v.res.Len()
	span = min(max(span, min(minSpan, n)), n)
	center := v.offset + v.span/2
	v.span = span
	v.offset = center - span/2
	v.pan(0)
}

func (v *Viewer) pan(delta int) {
	v.offset = min(max(v.offset+delta, 0), v.res.Len()-v.span)
}

// Selected returns the name of the highlighted variable.
func (v Viewer) Selected() string {
	if len(v.res.Order) == 0 {
		return ""
	}
	return v.res.Order[v.selected]
}

// Window returns the first sample index and number of samples shown.
func (v Viewer) Window() (int, int) { return v.offset, v.span }

func (v Viewer) View() string {
	if v.res.Len() == 0 {
		return "empty result\n"
	}
	st := Themes[v.theme].styles()

	header := st.header.Render(fmt.Sprintf("convsim  %s (%s)", v.res.CircuitID, v.res.Topology)) +
		st.muted.Render("  theme: "+Themes[v.theme].Name)

	graphW := max(v.width-50, 30)
	graphH := max(v.height-12, 8)

	var graph string
	if v.phase {
		graph = v.phasePlot(graphW, graphH)
	} else {
		graph = v.waveform(graphW, graphH)
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		st.graph.Render(graph),
		st.panel.Render(v.stats(st)),
	)

	t0, t1 := v.res.Time[v.offset], v.res.Time[v.offset+v.span-1]
	pos := 1.0
	if n := v.res.Len() - v.span; n > 0 {
		pos = float64(v.offset) / float64(n)
	}
	timeline := st.muted.Render(fmt.Sprintf("%s  %.4g s .. %.4g s", ProgressBar(pos, 30), t0, t1))
	if v.playing {
		timeline += st.selected.Render("  ▶")
	}

	help := "j/k select  h/l pan  +/- zoom  space play  p phase  t theme  ? help  q quit"
	if v.help {
		help = strings.Join([]string{
			"j/k    select variable",
			"h/l    pan through time",
			"+/-    zoom the time window",
			"space  play the run back",
			"p      inductor current against capacitor voltage",
			"t      cycle theme",
			"q      quit",
		}, "\n")
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, timeline, st.help.Render(help))
}

func (v Viewer) waveform(w, h int) string {
	name := v.Selected()
	series, ok := v.res.Get(name)
	if !ok {
		return "no variables"
	}
	return Plot(series[v.offset:v.offset+v.span], name, w, h)
}

func (v Viewer) phasePlot(w, h int) string {
	if len(v.res.Order) < 2 {
		return "phase portrait needs two state variables"
	}
	xName, yName := v.res.Order[0], v.res.Order[1]
	xs, _ := v.res.Get(xName)
	ys, _ := v.res.Get(yName)

	c := NewCanvas(w, h)
	c.DrawXY(xs[v.offset:v.offset+v.span], ys[v.offset:v.offset+v.span])
	return c.String() + fmt.Sprintf("x: %s  y: %s", xName, yName)
}

func (v Viewer) stats(st styles) string {
	var b strings.Builder
	for i, name := range v.res.Order {
		if i == v.selected {
			b.WriteString(st.selected.Render("> "+name) + "\n")
		} else {
			b.WriteString(st.value.Render("  "+name) + "\n")
		}
	}

	w, ok := v.summary[v.Selected()]
	if !ok {
		return b.String()
	}
	b.WriteString("\n" + st.muted.Render(fmt.Sprintf("last %.0f%% of run", metrics.DefaultWindow*100)) + "\n")
	rows := []struct {
		label string
		value float64
	}{
		{"mean", w.Mean},
		{"rms", w.RMS},
		{"ripple", w.Ripple},
		{"min", w.Min},
		{"max", w.Max},
		{"final", w.Final},
	}
	for _, r := range rows {
		b.WriteString(st.label.Render(r.label) + st.value.Render(fmt.Sprintf("%.6g", r.value)) + "\n")
	}
	return b.String()
}
