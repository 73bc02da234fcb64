// Package metrics computes waveform figures of merit over simulated
// signals.
package metrics

// Metric accumulates one figure over a sampled waveform.
type Metric interface {
	Name() string
	Observe(v, t float64)
	Value() float64
	Reset()
}

// Apply feeds every sample of values to m and returns the final value.
func Apply(m Metric, times, values []float64) float64 {
	m.Reset()
	for k, v := range values {
		m.Observe(v, times[k])
	}
	return m.Value()
}

// SteadyState returns the index where the trailing fraction of the time
// span starts. fraction is clamped to (0, 1].
func SteadyState(times []float64, fraction float64) int {
	if len(times) == 0 {
		return 0
	}
	if !(fraction > 0) || fraction > 1 {
		fraction = 1
	}
	start := times[0]
	span := times[len(times)-1] - start
	cut := start + span*(1-fraction)
	for k, t := range times {
		if t >= cut {
			return k
		}
	}
	return len(times) - 1
}
