// Package engine runs the simulation pipeline: classify the circuit, build
// its model, integrate it and post-process the trajectory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/logging"
	"github.com/san-kum/convsim/internal/models"
	"github.com/san-kum/convsim/internal/results"
	"github.com/san-kum/convsim/internal/sim"
)

// Params are the per-run settings a caller supplies.
type Params struct {
	EndTime  float64 `json:"end_time"`
	StepSize float64 `json:"step_size"`
}

// Engine holds solver settings shared by every run. It keeps no state
// between runs, so one Engine may serve concurrent callers.
type Engine struct {
	opts    sim.Options
	align   bool
	workers int
	log     *slog.Logger
}

type Option func(*Engine)

// WithOptions sets the solver tolerances, method and step ceiling. EndTime
// and StepSize are taken from Params on each run.
func WithOptions(o sim.Options) Option {
	return func(e *Engine) { e.opts = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventAlignment makes internal steps end on switching edges.
func WithEventAlignment(on bool) Option {
	return func(e *Engine) { e.align = on }
}

// WithWorkers bounds the number of runs SimulateAll executes at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{
		opts:    sim.DefaultOptions(),
		align:   true,
		workers: 4,
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Simulate runs one circuit. The circuit is snapshotted first, so later
// edits by the caller do not affect the run.
func (e *Engine) Simulate(ctx context.Context, c *circuit.Circuit, p Params) (*results.Result, error) {
	if c == nil {
		return nil, dynamo.Configf("circuit", "missing")
	}
	snap := c.Snapshot()
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrConfiguration, err)
	}

	opts := e.opts
	opts.EndTime = p.EndTime
	opts.StepSize = p.StepSize
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	m, err := models.Build(snap)
	if err != nil {
		return nil, err
	}
	if es, ok := m.(models.EventSource); ok && e.align {
		opts.NextEvent = es.NextEvent
	}

	log := e.log.With("circuit", snap.ID, "topology", m.Topology().String())
	log.Debug("simulation started",
		"states", len(m.Variables()),
		"end_time", opts.EndTime,
		"step_size", opts.StepSize,
	)

	start := time.Now()
	tr, err := sim.Solve(ctx, m, m.InitialState(), opts)
	if err != nil {
		var ie *dynamo.IntegrationError
		if errors.As(err, &ie) {
			log.Warn("integration failed", "t", ie.Time, "steps", ie.Steps, "error", ie.Wrapped)
		}
		return nil, err
	}

	res, err := results.Process(snap.ID, tr, m)
	if err != nil {
		return nil, err
	}

	log.Info("simulation finished",
		"points", res.Len(),
		"accepted", tr.Stats.Accepted,
		"rejected", tr.Stats.Rejected,
		"evaluations", tr.Stats.Evaluations,
		"elapsed", time.Since(start),
	)
	return res, nil
}

// Job is one independent run for SimulateAll.
type Job struct {
	Circuit *circuit.Circuit
	Params  Params
}

type Outcome struct {
	Result *results.Result
	Err    error
}

// SimulateAll runs jobs concurrently and returns one outcome per job, in
// job order. A failing job does not stop the others.
func (e *Engine) SimulateAll(ctx context.Context, jobs []Job) []Outcome {
	out := make([]Outcome, len(jobs))
	workers := e.workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			res, err := e.Simulate(ctx, jobs[idx].Circuit, jobs[idx].Params)
			out[idx] = Outcome{Result: res, Err: err}
		}(i)
	}

	wg.Wait()
	return out
}

// SetParam sets param on every component of type t.
func SetParam(c *circuit.Circuit, t circuit.ComponentType, param string, v float64) {
	for _, comp := range c.Components {
		if comp.Type == t {
			if comp.Parameters == nil {
				comp.Parameters = make(map[string]float64)
			}
			comp.Parameters[param] = v
		}
	}
}
