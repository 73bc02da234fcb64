package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/convsim/internal/dynamo"
)

type decay struct{ tau float64 }

func (d *decay) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{-x[0] / d.tau}
}

type oscillator struct{}

func (o *oscillator) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func TestSolveGrid(t *testing.T) {
	opts := DefaultOptions()
	opts.EndTime = 1.0
	opts.StepSize = 0.1

	tr, err := Solve(context.Background(), &decay{tau: 1}, dynamo.State{1.0}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if tr.Len() != 11 {
		t.Errorf("expected 11 samples, got %d", tr.Len())
	}
	if tr.Times[0] != 0 {
		t.Errorf("grid must start at 0, got %g", tr.Times[0])
	}
	for k := 1; k < tr.Len(); k++ {
		if tr.Times[k] <= tr.Times[k-1] {
			t.Fatalf("times not strictly increasing at %d", k)
		}
		if tr.Times[k] != float64(k)*opts.StepSize {
			t.Errorf("time %d = %g, want %g", k, tr.Times[k], float64(k)*opts.StepSize)
		}
	}
	if len(tr.States) != tr.Len() {
		t.Errorf("states and times differ in length: %d vs %d", len(tr.States), tr.Len())
	}
}

func TestSolveAccuracy(t *testing.T) {
	opts := DefaultOptions()
	opts.EndTime = 10
	opts.StepSize = 0.05
	opts.RelTol = 1e-9
	opts.AbsTol = 1e-12

	tr, err := Solve(context.Background(), &oscillator{}, dynamo.State{1, 0}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	for k, ts := range tr.Times {
		if diff := math.Abs(tr.States[k][0] - math.Cos(ts)); diff > 1e-6 {
			t.Fatalf("x(%g) off by %e", ts, diff)
		}
	}
}

func TestSolveDenseOutput(t *testing.T) {
	opts := DefaultOptions()
	opts.EndTime = 5
	opts.StepSize = 0.01
	opts.MaxStep = 0.5
	opts.RelTol = 1e-6
	opts.AbsTol = 1e-9

	tr, err := Solve(context.Background(), &decay{tau: 1}, dynamo.State{1.0}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}

	if tr.Stats.Accepted >= tr.Len()-1 {
		t.Errorf("expected fewer internal steps (%d) than samples (%d)", tr.Stats.Accepted, tr.Len())
	}
	for k, ts := range tr.Times {
		if diff := math.Abs(tr.States[k][0] - math.Exp(-ts)); diff > 1e-4 {
			t.Fatalf("interpolated x(%g) off by %e", ts, diff)
		}
	}
}

func TestSolveRK4(t *testing.T) {
	opts := DefaultOptions()
	opts.Method = MethodRK4
	opts.EndTime = 1
	opts.StepSize = 0.01

	tr, err := Solve(context.Background(), &decay{tau: 0.5}, dynamo.State{2.0}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	last := tr.States[tr.Len()-1][0]
	if want := 2 * math.Exp(-2); math.Abs(last-want) > 1e-6 {
		t.Errorf("final state %g, want %g", last, want)
	}
}

func TestSolveInvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"zero step", func(o *Options) { o.StepSize = 0 }},
		{"negative step", func(o *Options) { o.StepSize = -0.1 }},
		{"zero end time", func(o *Options) { o.EndTime = 0 }},
		{"negative end time", func(o *Options) { o.EndTime = -1 }},
		{"step exceeds end", func(o *Options) { o.StepSize = 2 }},
		{"NaN end time", func(o *Options) { o.EndTime = math.NaN() }},
		{"unknown method", func(o *Options) { o.Method = "euler" }},
		{"grid beyond step limit", func(o *Options) { o.MaxSteps = 5 }},
		{"grid overflows int", func(o *Options) { o.StepSize = 1e-300 }},
		{"sub-femtosecond step", func(o *Options) { o.StepSize = 1e-16 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.EndTime = 1
			opts.StepSize = 0.1
			tt.mutate(&opts)

			calls := 0
			sys := dynamo.SystemFunc(func(x dynamo.State, _ float64) dynamo.State {
				calls++
				return dynamo.State{0}
			})

			_, err := Solve(context.Background(), sys, dynamo.State{1.0}, opts)
			if !errors.Is(err, dynamo.ErrConfiguration) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if calls != 0 {
				t.Errorf("derivative evaluated %d times before validation failed", calls)
			}
		})
	}
}

func TestSolveInvalidState(t *testing.T) {
	sys := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
		if t > 0.3 {
			return dynamo.State{math.NaN()}
		}
		return dynamo.State{1}
	})

	opts := DefaultOptions()
	opts.EndTime = 1
	opts.StepSize = 0.01

	_, err := Solve(context.Background(), sys, dynamo.State{0}, opts)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}

	var ie *dynamo.IntegrationError
	if !errors.As(err, &ie) {
		t.Fatalf("expected IntegrationError, got %T", err)
	}
	if ie.Time <= 0 || ie.Time > 0.3 {
		t.Errorf("furthest time %g outside (0, 0.3]", ie.Time)
	}
}

func TestSolveMaxSteps(t *testing.T) {
	opts := DefaultOptions()
	opts.EndTime = 1
	opts.StepSize = 0.1
	opts.MaxStep = 0.001
	opts.MaxSteps = 10

	_, err := Solve(context.Background(), &decay{tau: 1}, dynamo.State{1}, opts)
	if !errors.Is(err, dynamo.ErrMaxSteps) {
		t.Errorf("expected ErrMaxSteps, got %v", err)
	}
}

func TestSolveStepLimitCountsBeyondGrid(t *testing.T) {
	half := 0.0625
	opts := DefaultOptions()
	opts.EndTime = 1
	opts.StepSize = 2 * half
	opts.MaxSteps = 8
	opts.NextEvent = func(t float64) float64 {
		return (math.Floor(t/half) + 1) * half
	}

	tr, err := Solve(context.Background(), &decay{tau: 1}, dynamo.State{1}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if tr.Stats.Accepted != 16 {
		t.Errorf("expected 16 accepted steps, got %d", tr.Stats.Accepted)
	}
}

func TestDefaultOptionsValid(t *testing.T) {
	opts := DefaultOptions()
	if err := opts.Validate(); err != nil {
		t.Fatalf("default options rejected: %v", err)
	}
	if got := len(opts.Grid()); got != 1_000_001 {
		t.Errorf("default grid has %d points, want 1000001", got)
	}
}

func TestSolveCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := DefaultOptions()
	opts.EndTime = 1
	opts.StepSize = 0.1

	_, err := Solve(ctx, &decay{tau: 1}, dynamo.State{1}, opts)
	if !errors.Is(err, dynamo.ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestSolveEventAlignment(t *testing.T) {
	edge := 0.25
	sys := dynamo.SystemFunc(func(x dynamo.State, t float64) dynamo.State {
		if t < edge {
			return dynamo.State{1}
		}
		return dynamo.State{-1}
	})

	queries := 0
	opts := DefaultOptions()
	opts.EndTime = 0.5
	opts.StepSize = 0.1
	opts.NextEvent = func(t float64) float64 {
		queries++
		if t < edge {
			return edge
		}
		return math.Inf(1)
	}

	tr, err := Solve(context.Background(), sys, dynamo.State{0}, opts)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if queries == 0 {
		t.Error("event source was never consulted")
	}
	if got := tr.States[2][0]; math.Abs(got-0.2) > 1e-9 {
		t.Errorf("x(0.2) = %g, want 0.2", got)
	}
	if last := tr.States[tr.Len()-1][0]; math.Abs(last) > 1e-4 {
		t.Errorf("x(0.5) = %g, want 0", last)
	}
}

func TestSolveDeterministic(t *testing.T) {
	opts := DefaultOptions()
	opts.EndTime = 2
	opts.StepSize = 0.01

	a, err := Solve(context.Background(), &oscillator{}, dynamo.State{1, 0}, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Solve(context.Background(), &oscillator{}, dynamo.State{1, 0}, opts)
	if err != nil {
		t.Fatal(err)
	}
	for k := range a.States {
		if a.States[k][0] != b.States[k][0] || a.States[k][1] != b.States[k][1] {
			t.Fatalf("runs differ at sample %d", k)
		}
	}
}

func TestGridLength(t *testing.T) {
	tests := []struct {
		end, step float64
		want      int
	}{
		{1, 0.1, 11},
		{1, 1, 2},
		{1, 0.3, 4},
		{5e-3, 1e-7, 50001},
	}
	for _, tt := range tests {
		opts := Options{EndTime: tt.end, StepSize: tt.step}
		if got := len(opts.Grid()); got != tt.want {
			t.Errorf("Grid(%g, %g) has %d points, want %d", tt.end, tt.step, got, tt.want)
		}
	}
}
