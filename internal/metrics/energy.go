package metrics

// Energy integrates a power waveform over time with the trapezoidal rule.
type Energy struct {
	name    string
	total   float64
	lastV   float64
	lastT   float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(p, t float64) {
	if e.samples > 0 {
		e.total += 0.5 * (p + e.lastV) * (t - e.lastT)
	}
	e.lastV, e.lastT = p, t
	e.samples++
}

func (e *Energy) Value() float64 { return e.total }

func (e *Energy) Reset() {
	e.total = 0
	e.lastV, e.lastT = 0, 0
	e.samples = 0
}
