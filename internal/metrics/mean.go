package metrics

import "math"

type Mean struct {
	name    string
	sum     float64
	samples int
}

func NewMean() *Mean {
	return &Mean{name: "mean"}
}

func (m *Mean) Name() string { return m.name }

func (m *Mean) Observe(v, t float64) {
	m.sum += v
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

type RMS struct {
	name    string
	sumSq   float64
	samples int
}

func NewRMS() *RMS {
	return &RMS{name: "rms"}
}

func (r *RMS) Name() string { return r.name }

func (r *RMS) Observe(v, t float64) {
	r.sumSq += v * v
	r.samples++
}

func (r *RMS) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return math.Sqrt(r.sumSq / float64(r.samples))
}

func (r *RMS) Reset() {
	r.sumSq = 0
	r.samples = 0
}

// Ripple is the peak-to-peak excursion.
type Ripple struct {
	name     string
	min, max float64
	samples  int
}

func NewRipple() *Ripple {
	return &Ripple{name: "ripple"}
}

func (r *Ripple) Name() string { return r.name }

func (r *Ripple) Observe(v, t float64) {
	if r.samples == 0 {
		r.min, r.max = v, v
	}
	r.min = math.Min(r.min, v)
	r.max = math.Max(r.max, v)
	r.samples++
}

func (r *Ripple) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.max - r.min
}

func (r *Ripple) Min() float64 { return r.min }
func (r *Ripple) Max() float64 { return r.max }

func (r *Ripple) Reset() {
	r.min, r.max = 0, 0
	r.samples = 0
}

// Convenience wrappers over the accumulators above.

func MeanOf(values []float64) float64 {
	return Apply(NewMean(), make([]float64, len(values)), values)
}

func RMSOf(values []float64) float64 {
	return Apply(NewRMS(), make([]float64, len(values)), values)
}

func RippleOf(values []float64) float64 {
	return Apply(NewRipple(), make([]float64, len(values)), values)
}
