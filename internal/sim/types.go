package sim

import (
	"math"

	"github.com/san-kum/convsim/internal/dynamo"
)

type Method string

const (
	MethodRK45 Method = "rk45"
	MethodRK4  Method = "rk4"
)

// Options control one integration run. EndTime and StepSize define the
// output grid 0, h, 2h, ... ; the remaining fields tune the solver.
type Options struct {
	EndTime  float64
	StepSize float64
	RelTol   float64
	AbsTol   float64
	// MinStep is the smallest internal step tried before the run is
	// declared stuck. Zero means 1e-12 of the step size.
	MinStep float64
	// MaxStep caps the internal step. Zero means StepSize.
	MaxStep float64
	// MaxSteps bounds the internal steps taken beyond one per grid
	// interval: event splits and rejected attempts. It also bounds the
	// number of grid intervals a run may request.
	MaxSteps int
	Method   Method
	// NextEvent, when set, returns the next instant after t at which the
	// right-hand side is discontinuous. Internal steps are shortened so
	// that they end exactly on it.
	NextEvent func(t float64) float64
}

func DefaultOptions() Options {
	return Options{
		EndTime:  1.0,
		StepSize: 1e-6,
		RelTol:   1e-3,
		AbsTol:   1e-6,
		MaxSteps: 1_000_000,
		Method:   MethodRK45,
	}
}

// Validate reports the first option that makes the run impossible.
func (o Options) Validate() error {
	switch {
	case !(o.EndTime > 0) || math.IsInf(o.EndTime, 0):
		return dynamo.Configf("end_time", "must be positive, got %g", o.EndTime)
	case !(o.StepSize > 0) || math.IsInf(o.StepSize, 0):
		return dynamo.Configf("step_size", "must be positive, got %g", o.StepSize)
	case o.StepSize > o.EndTime:
		return dynamo.Configf("step_size", "%g exceeds end_time %g", o.StepSize, o.EndTime)
	case o.Method == MethodRK45 && (!(o.RelTol > 0) || o.AbsTol < 0):
		return dynamo.Configf("tolerance", "rel_tol must be positive and abs_tol non-negative")
	case o.MaxSteps <= 0:
		return dynamo.Configf("max_steps", "must be positive, got %d", o.MaxSteps)
	case o.Method != MethodRK45 && o.Method != MethodRK4:
		return dynamo.Configf("method", "unknown integration method %q", o.Method)
	}
	if n := o.intervals(); n > float64(o.MaxSteps) {
		return dynamo.Configf("step_size", "%g over end_time %g gives %.0f output intervals, limit is %d",
			o.StepSize, o.EndTime, n, o.MaxSteps)
	}
	return nil
}

// intervals is the number of grid steps after t=0, kept in float64 so a
// huge ratio is reported rather than overflowing an int.
func (o Options) intervals() float64 {
	return math.Floor(o.EndTime / o.StepSize * (1 + 1e-12))
}

// Grid returns the output sample times k*h for every k with k*h <= EndTime.
// Times are computed by multiplication so they never drift.
func (o Options) Grid() []float64 {
	n := int(o.intervals()) + 1
	times := make([]float64, n)
	for k := range times {
		times[k] = float64(k) * o.StepSize
	}
	return times
}
