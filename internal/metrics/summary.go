package metrics

import (
	"github.com/san-kum/convsim/internal/results"
)

// DefaultWindow is the trailing fraction of a run treated as steady state.
const DefaultWindow = 0.5

// Waveform holds the figures reported for one variable.
type Waveform struct {
	Mean   float64 `json:"mean"`
	RMS    float64 `json:"rms"`
	Ripple float64 `json:"ripple"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Final  float64 `json:"final"`
}

// Describe computes a Waveform over the samples from index start onward.
func Describe(times, values []float64, start int) Waveform {
	if len(values) == 0 || start >= len(values) {
		return Waveform{}
	}
	ts, vs := times[start:], values[start:]
	rip := NewRipple()
	w := Waveform{
		Mean:   Apply(NewMean(), ts, vs),
		RMS:    Apply(NewRMS(), ts, vs),
		Ripple: Apply(rip, ts, vs),
		Final:  vs[len(vs)-1],
	}
	w.Min, w.Max = rip.Min(), rip.Max()
	return w
}

// Summary describes every variable of r over its steady-state window.
func Summary(r *results.Result, window float64) map[string]Waveform {
	start := SteadyState(r.Time, window)
	out := make(map[string]Waveform, len(r.Variables))
	for _, name := range r.Names() {
		v, _ := r.Get(name)
		out[name] = Describe(r.Time, v, start)
	}
	return out
}
