package dynamo

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is a first-order ODE right-hand side dx/dt = f(x, t).
type System interface {
	Derive(x State, t float64) State
}

// SystemFunc adapts a plain function to System.
type SystemFunc func(x State, t float64) State

func (f SystemFunc) Derive(x State, t float64) State { return f(x, t) }

// Stats counts the work done by one integration run.
type Stats struct {
	Accepted    int `json:"accepted"`
	Rejected    int `json:"rejected"`
	Evaluations int `json:"evaluations"`
}

// Trajectory is the sampled solution of one run. Times is strictly
// increasing and States[i] is the state at Times[i].
type Trajectory struct {
	Times  []float64
	States []State
	Stats  Stats
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// Dim returns the state dimension, or 0 for an empty trajectory.
func (tr *Trajectory) Dim() int {
	if len(tr.States) == 0 {
		return 0
	}
	return len(tr.States[0])
}

// Column returns the time series of state component i.
func (tr *Trajectory) Column(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, s := range tr.States {
		out[k] = s[i]
	}
	return out
}
