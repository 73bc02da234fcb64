package models

import (
	"fmt"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/topology"
)

// VarKind tells whether a variable is a current or a voltage.
type VarKind string

const (
	Current VarKind = "current"
	Voltage VarKind = "voltage"
)

// StateVar describes one energy-storage state. Descriptors are fixed when
// the model is built; only the numeric value evolves in the state vector.
type StateVar struct {
	Name        string
	ComponentID string
	Kind        VarKind
	Initial     float64
}

// Model is the state-space description of one circuit.
type Model interface {
	dynamo.System
	Topology() topology.Kind
	Variables() []StateVar
	InitialState() dynamo.State
	// Process maps a raw trajectory onto named state and derived variables.
	// Every returned series has tr.Len() samples.
	Process(tr *dynamo.Trajectory) (map[string][]float64, error)
}

// EventSource is implemented by models whose right-hand side changes at
// instants known in advance.
type EventSource interface {
	NextEvent(t float64) float64
}

type builder func(c *circuit.Circuit) (Model, error)

var builders = map[topology.Kind]builder{
	topology.Buck:      func(c *circuit.Circuit) (Model, error) { return NewBuck(c) },
	topology.Boost:     func(c *circuit.Circuit) (Model, error) { return NewBoost(c) },
	topology.BuckBoost: func(c *circuit.Circuit) (Model, error) { return NewBuckBoost(c) },
	topology.Generic:   func(c *circuit.Circuit) (Model, error) { return NewGeneric(c) },
}

// Build classifies c and constructs the matching model.
func Build(c *circuit.Circuit) (Model, error) {
	kind := topology.Classify(c)
	b, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("no model for topology %s", kind)
	}
	return b(c)
}

func initialState(vars []StateVar) dynamo.State {
	x := make(dynamo.State, len(vars))
	for i, v := range vars {
		x[i] = v.Initial
	}
	return x
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
