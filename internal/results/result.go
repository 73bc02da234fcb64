// Package results turns raw solver output into named, time-aligned
// waveforms.
package results

import (
	"fmt"
	"sort"

	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/models"
	"github.com/san-kum/convsim/internal/topology"
)

// Result is the outcome of one simulation. It is not modified after
// Process returns it.
type Result struct {
	CircuitID string               `json:"circuit_id"`
	Topology  string               `json:"topology"`
	Time      []float64            `json:"time_points"`
	Variables map[string][]float64 `json:"variables"`
	Order     []string             `json:"-"`
	Stats     dynamo.Stats         `json:"-"`
}

// Process maps a trajectory onto the variables the model publishes. Every
// series in the result has exactly one sample per time point.
func Process(circuitID string, tr *dynamo.Trajectory, m models.Model) (*Result, error) {
	if tr == nil || tr.Len() == 0 {
		return nil, fmt.Errorf("empty trajectory")
	}

	vars, err := m.Process(tr)
	if err != nil {
		return nil, fmt.Errorf("process %s trajectory: %w", m.Topology(), err)
	}

	n := tr.Len()
	for name, series := range vars {
		if len(series) != n {
			return nil, fmt.Errorf("variable %s has %d samples, want %d", name, len(series), n)
		}
	}

	return &Result{
		CircuitID: circuitID,
		Topology:  m.Topology().String(),
		Time:      append([]float64(nil), tr.Times...),
		Variables: vars,
		Order:     order(m, vars),
		Stats:     tr.Stats,
	}, nil
}

// order lists state variables first, in state-vector order, followed by
// the derived variables alphabetically.
func order(m models.Model, vars map[string][]float64) []string {
	names := make([]string, 0, len(vars))
	seen := make(map[string]bool, len(vars))
	for _, sv := range m.Variables() {
		if _, ok := vars[sv.Name]; ok && !seen[sv.Name] {
			names = append(names, sv.Name)
			seen[sv.Name] = true
		}
	}
	var rest []string
	for name := range vars {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func (r *Result) Len() int { return len(r.Time) }

// Get returns the series called name.
func (r *Result) Get(name string) ([]float64, bool) {
	v, ok := r.Variables[name]
	return v, ok
}

// Names lists the variables in display order.
func (r *Result) Names() []string {
	if len(r.Order) == len(r.Variables) {
		return append([]string(nil), r.Order...)
	}
	names := make([]string, 0, len(r.Variables))
	for name := range r.Variables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Kind reports the topology the result was produced with.
func (r *Result) Kind() topology.Kind {
	return topology.Parse(r.Topology)
}

// Validate checks the length invariant on a result that did not come from
// Process, e.g. one decoded from JSON.
func (r *Result) Validate() error {
	for name, series := range r.Variables {
		if len(series) != len(r.Time) {
			return fmt.Errorf("variable %s has %d samples, want %d", name, len(series), len(r.Time))
		}
	}
	for k := 1; k < len(r.Time); k++ {
		if r.Time[k] <= r.Time[k-1] {
			return fmt.Errorf("time points not strictly increasing at index %d", k)
		}
	}
	return nil
}
