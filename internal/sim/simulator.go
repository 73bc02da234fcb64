package sim

import (
	"context"
	"math"

	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/integrators"
)

// Solve integrates sys from x0 at t=0 and samples the solution on the grid
// of opts. Invalid options are rejected before any derivative is evaluated.
func Solve(ctx context.Context, sys dynamo.System, x0 dynamo.State, opts Options) (*dynamo.Trajectory, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if !x0.IsValid() {
		return nil, dynamo.Configf("initial_state", "contains NaN or Inf")
	}

	s := newSolver(sys, x0, opts)
	return s.run(ctx)
}

type solver struct {
	sys   dynamo.System
	opts  Options
	rk45  *integrators.RK45
	rk4   *integrators.RK4
	grid  []float64
	out   []dynamo.State
	next  int
	stats dynamo.Stats

	t  float64
	x  dynamo.State
	fx dynamo.State
}

func newSolver(sys dynamo.System, x0 dynamo.State, opts Options) *solver {
	if opts.MaxStep <= 0 {
		opts.MaxStep = opts.StepSize
	}
	if opts.MinStep <= 0 {
		opts.MinStep = 1e-12 * opts.StepSize
	}
	grid := opts.Grid()
	return &solver{
		sys:  sys,
		opts: opts,
		rk45: integrators.NewRK45(),
		rk4:  integrators.NewRK4(),
		grid: grid,
		out:  make([]dynamo.State, len(grid)),
		x:    x0.Clone(),
	}
}

func (s *solver) fail(err error) error {
	return &dynamo.IntegrationError{Time: s.t, Steps: s.stats.Accepted, Wrapped: err}
}

func (s *solver) eval(x dynamo.State, t float64) dynamo.State {
	s.stats.Evaluations++
	return s.sys.Derive(x, t)
}

func (s *solver) run(ctx context.Context) (*dynamo.Trajectory, error) {
	tEnd := s.grid[len(s.grid)-1]

	s.fx = s.eval(s.x, 0)
	s.out[0] = s.x.Clone()
	s.next = 1

	dt := math.Min(s.opts.StepSize, s.opts.MaxStep)
	steps, limit := 0, len(s.grid)-1+s.opts.MaxSteps

	for s.next < len(s.grid) {
		select {
		case <-ctx.Done():
			return nil, s.fail(dynamo.ErrCanceled)
		default:
		}

		if steps >= limit {
			return nil, s.fail(dynamo.ErrMaxSteps)
		}
		steps++

		dt = math.Min(dt, s.opts.MaxStep)
		tNew := s.t + dt
		if s.opts.NextEvent != nil {
			if te := s.opts.NextEvent(s.t); te > s.t && te < tNew {
				tNew = te
			}
		}
		if tNew >= tEnd {
			tNew = tEnd
		}
		h := tNew - s.t

		var xNew, fNew dynamo.State
		errRatio := 0.0
		switch s.opts.Method {
		case MethodRK4:
			xNew = s.rk4.Step(s.sys, s.x, s.t, h)
			s.stats.Evaluations += integrators.RK4Evals
			fNew = s.eval(xNew, tNew)
		default:
			step := s.rk45.StepAdaptive(s.sys, s.x, s.fx, s.t, h, s.opts.RelTol, s.opts.AbsTol)
			s.stats.Evaluations += step.Evals
			xNew, fNew, errRatio = step.X, step.K7, step.Err
		}

		if errRatio > 1 {
			s.stats.Rejected++
			dt = s.rk45.NextStep(h, errRatio)
			if dt < s.opts.MinStep {
				return nil, s.fail(dynamo.ErrStepTooSmall)
			}
			continue
		}

		if !xNew.IsValid() {
			return nil, s.fail(dynamo.ErrInvalidState)
		}

		s.emit(xNew, fNew, tNew, h)
		s.t, s.x, s.fx = tNew, xNew, fNew
		s.stats.Accepted++

		if s.opts.Method == MethodRK4 {
			dt = s.opts.MaxStep
		} else {
			dt = math.Max(s.rk45.NextStep(h, errRatio), s.opts.MinStep)
		}
	}

	return &dynamo.Trajectory{Times: s.grid, States: s.out, Stats: s.stats}, nil
}

// emit fills every grid point covered by the accepted step [s.t, tNew].
func (s *solver) emit(xNew, fNew dynamo.State, tNew, h float64) {
	for s.next < len(s.grid) && s.grid[s.next] <= tNew {
		tq := s.grid[s.next]
		if tq == tNew {
			s.out[s.next] = xNew.Clone()
		} else {
			s.out[s.next] = integrators.Hermite(s.x, s.fx, xNew, fNew, h, (tq-s.t)/h)
		}
		s.next++
	}
}
