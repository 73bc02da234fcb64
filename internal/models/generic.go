package models

import (
	"fmt"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/topology"
)

// Constants of the generic fallback. The generic model does not solve
// Kirchhoff's laws: every capacitor discharges through ReferenceResistance
// and every inductor charges from ReferenceVoltage, each in isolation.
// Resistor power uses PlaceholderCurrent rather than a solved current.
const (
	ReferenceResistance = 1000.0
	ReferenceVoltage    = 5.0
	PlaceholderCurrent  = 0.01
)

type storage struct {
	kind  VarKind
	value float64 // capacitance or inductance
}

type resistor struct {
	id string
	r  float64
}

// Generic approximates circuits that are not recognised converters.
type Generic struct {
	vars      []StateVar
	elems     []storage
	resistors []resistor
}

func NewGeneric(c *circuit.Circuit) (*Generic, error) {
	g := &Generic{}
	for _, id := range c.SortedIDs() {
		comp := c.Components[id]
		switch comp.Type {
		case circuit.Capacitor:
			capacitance, err := positive(comp, circuit.ParamCapacitance)
			if err != nil {
				return nil, err
			}
			v0, err := initial(comp, circuit.ParamInitialVoltage)
			if err != nil {
				return nil, err
			}
			g.vars = append(g.vars, StateVar{Name: "v_" + id, ComponentID: id, Kind: Voltage, Initial: v0})
			g.elems = append(g.elems, storage{kind: Voltage, value: capacitance})
		case circuit.Inductor:
			ind, err := positive(comp, circuit.ParamInductance)
			if err != nil {
				return nil, err
			}
			i0, err := initial(comp, circuit.ParamInitialCurrent)
			if err != nil {
				return nil, err
			}
			g.vars = append(g.vars, StateVar{Name: "i_" + id, ComponentID: id, Kind: Current, Initial: i0})
			g.elems = append(g.elems, storage{kind: Current, value: ind})
		case circuit.Resistor:
			r, err := positive(comp, circuit.ParamResistance)
			if err != nil {
				return nil, err
			}
			g.resistors = append(g.resistors, resistor{id: id, r: r})
		}
	}
	return g, nil
}

func (g *Generic) Topology() topology.Kind { return topology.Generic }

func (g *Generic) Variables() []StateVar { return append([]StateVar(nil), g.vars...) }

func (g *Generic) InitialState() dynamo.State { return initialState(g.vars) }

func (g *Generic) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, len(x))
	for i, e := range g.elems {
		switch e.kind {
		case Voltage:
			dx[i] = -x[i] / (ReferenceResistance * e.value)
		case Current:
			dx[i] = ReferenceVoltage / e.value
		}
	}
	return dx
}

func (g *Generic) Process(tr *dynamo.Trajectory) (map[string][]float64, error) {
	n := tr.Len()
	if len(tr.States) != n {
		return nil, fmt.Errorf("trajectory has %d times but %d states", n, len(tr.States))
	}

	out := make(map[string][]float64, len(g.vars)+len(g.resistors))
	for i, v := range g.vars {
		out[v.Name] = tr.Column(i)
	}
	for _, r := range g.resistors {
		out["p_"+r.id] = constant(n, PlaceholderCurrent*PlaceholderCurrent*r.r)
	}
	return out, nil
}
