package integrators

import "github.com/san-kum/convsim/internal/dynamo"

// RK4Evals is the number of derivative evaluations one RK4 step costs.
const RK4Evals = 4

var rk4Nodes = [RK4Evals]float64{0, 0.5, 0.5, 1}

// RK4 is the classical fixed-step fourth-order method. Stage buffers are
// reused between calls, so an RK4 must not be shared between goroutines.
type RK4 struct {
	k     [RK4Evals]dynamo.State
	stage dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) resize(n int) {
	if len(r.stage) == n {
		return
	}
	for s := range r.k {
		r.k[s] = make(dynamo.State, n)
	}
	r.stage = make(dynamo.State, n)
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	r.resize(len(x))

	copy(r.k[0], sys.Derive(x, t))
	for s := 1; s < RK4Evals; s++ {
		axpy(r.stage, x, rk4Nodes[s]*dt, r.k[s-1])
		copy(r.k[s], sys.Derive(r.stage, t+rk4Nodes[s]*dt))
	}

	out := make(dynamo.State, len(x))
	for i := range out {
		out[i] = x[i] + dt/6*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	return out
}

// axpy sets dst = x + a*k.
func axpy(dst, x dynamo.State, a float64, k dynamo.State) {
	for i := range dst {
		dst[i] = x[i] + a*k[i]
	}
}
