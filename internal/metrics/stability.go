package metrics

import "math"

// Regulation is the fraction of samples that stay within a relative band
// around a target value, e.g. an output voltage set point.
type Regulation struct {
	name       string
	target     float64
	band       float64
	violations int
	samples    int
}

func NewRegulation(target, band float64) *Regulation {
	return &Regulation{
		name:   "regulation",
		target: target,
		band:   band,
	}
}

func (r *Regulation) Name() string {
	return r.name
}

func (r *Regulation) Observe(v, t float64) {
	r.samples++
	limit := r.band * math.Abs(r.target)
	if math.Abs(v-r.target) > limit || math.IsNaN(v) {
		r.violations++
	}
}

func (r *Regulation) Value() float64 {
	if r.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(r.violations)/float64(r.samples)
}

func (r *Regulation) Reset() {
	r.violations = 0
	r.samples = 0
}

// Settling returns the first time after which v stays within band of
// target, or NaN if it never settles.
func Settling(times, values []float64, target, band float64) float64 {
	limit := band * math.Abs(target)
	settled := math.NaN()
	for k, v := range values {
		if math.Abs(v-target) > limit {
			settled = math.NaN()
			continue
		}
		if math.IsNaN(settled) {
			settled = times[k]
		}
	}
	return settled
}
