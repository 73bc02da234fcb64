package models

import (
	"fmt"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
	"github.com/san-kum/convsim/internal/topology"
)

// Names of the variables produced by the converter models.
const (
	VarInductorCurrent  = "inductor_current"
	VarCapacitorVoltage = "capacitor_voltage"
	VarInputVoltage     = "input_voltage"
	VarOutputCurrent    = "output_current"
	VarOutputPower      = "output_power"
	VarSwitchState      = "switch_state"
)

// converter carries what the buck, boost and buck-boost models share: the
// role components, their validated values and the state layout. Diodes
// are ideal and conduction is assumed continuous, so the inductor current
// is allowed to reverse.
type converter struct {
	kind   topology.Kind
	vars   []StateVar
	iIdx   int
	vIdx   int
	l, c   float64
	r      float64
	vin    float64
	policy SwitchPolicy
}

func newConverter(kind topology.Kind, c *circuit.Circuit) (*converter, error) {
	r := scanRoles(c)
	m := &converter{kind: kind, iIdx: -1, vIdx: -1, r: DefaultLoadResistance, vin: DefaultInputVoltage}

	var err error
	if r.inductor != nil {
		if m.l, err = positive(r.inductor, circuit.ParamInductance); err != nil {
			return nil, err
		}
		i0, err := initial(r.inductor, circuit.ParamInitialCurrent)
		if err != nil {
			return nil, err
		}
		m.iIdx = len(m.vars)
		m.vars = append(m.vars, StateVar{Name: VarInductorCurrent, ComponentID: r.inductor.ID, Kind: Current, Initial: i0})
	}
	if r.capacitor != nil {
		if m.c, err = positive(r.capacitor, circuit.ParamCapacitance); err != nil {
			return nil, err
		}
		v0, err := initial(r.capacitor, circuit.ParamInitialVoltage)
		if err != nil {
			return nil, err
		}
		m.vIdx = len(m.vars)
		m.vars = append(m.vars, StateVar{Name: VarCapacitorVoltage, ComponentID: r.capacitor.ID, Kind: Voltage, Initial: v0})
	}
	if r.load != nil {
		if m.r, err = positive(r.load, circuit.ParamResistance); err != nil {
			return nil, err
		}
	}
	if r.source != nil {
		if m.vin, err = finite(r.source, circuit.ParamVoltage); err != nil {
			return nil, err
		}
	}

	pwm, err := r.switching()
	if err != nil {
		return nil, err
	}
	m.policy = pwm
	return m, nil
}

func (m *converter) Topology() topology.Kind { return m.kind }

func (m *converter) Variables() []StateVar { return append([]StateVar(nil), m.vars...) }

func (m *converter) InitialState() dynamo.State { return initialState(m.vars) }

// SetSwitchPolicy replaces the gate signal, e.g. with a state-dependent
// controller. It must be called before the model is integrated.
func (m *converter) SetSwitchPolicy(p SwitchPolicy) { m.policy = p }

func (m *converter) SwitchPolicy() SwitchPolicy { return m.policy }

func (m *converter) NextEvent(t float64) float64 {
	if es, ok := m.policy.(EventSource); ok {
		return es.NextEvent(t)
	}
	return 0
}

// unpack reads the inductor current and capacitor voltage from x, using
// zero for a storage element the circuit does not have.
func (m *converter) unpack(x dynamo.State) (iL, vC float64) {
	if m.iIdx >= 0 {
		iL = x[m.iIdx]
	}
	if m.vIdx >= 0 {
		vC = x[m.vIdx]
	}
	return iL, vC
}

func (m *converter) pack(diL, dvC float64, n int) dynamo.State {
	dx := make(dynamo.State, n)
	if m.iIdx >= 0 {
		dx[m.iIdx] = diL
	}
	if m.vIdx >= 0 {
		dx[m.vIdx] = dvC
	}
	return dx
}

// charge is the capacitor equation shared by all three families when the
// inductor feeds the output node.
func (m *converter) charge(iL, vC float64) float64 {
	return (iL - vC/m.r) / m.c
}

// discharge is the capacitor equation while the output is isolated from
// the inductor.
func (m *converter) discharge(vC float64) float64 {
	return -vC / (m.r * m.c)
}

func (m *converter) Process(tr *dynamo.Trajectory) (map[string][]float64, error) {
	n := tr.Len()
	if len(tr.States) != n {
		return nil, fmt.Errorf("trajectory has %d times but %d states", n, len(tr.States))
	}

	iL := make([]float64, n)
	vC := make([]float64, n)
	if m.iIdx >= 0 {
		iL = tr.Column(m.iIdx)
	}
	if m.vIdx >= 0 {
		vC = tr.Column(m.vIdx)
	}

	iOut := make([]float64, n)
	pOut := make([]float64, n)
	gate := make([]float64, n)
	for k := range vC {
		iOut[k] = vC[k] / m.r
		pOut[k] = vC[k] * vC[k] / m.r
		if m.policy.On(tr.Times[k]) {
			gate[k] = 1
		}
	}

	return map[string][]float64{
		VarInductorCurrent:  iL,
		VarCapacitorVoltage: vC,
		VarInputVoltage:     constant(n, m.vin),
		VarOutputCurrent:    iOut,
		VarOutputPower:      pOut,
		VarSwitchState:      gate,
	}, nil
}

// Buck is the step-down converter with state [iL, vC].
type Buck struct{ *converter }

func NewBuck(c *circuit.Circuit) (*Buck, error) {
	conv, err := newConverter(topology.Buck, c)
	if err != nil {
		return nil, err
	}
	return &Buck{conv}, nil
}

func (b *Buck) Derive(x dynamo.State, t float64) dynamo.State {
	iL, vC := b.unpack(x)

	var diL float64
	if b.iIdx >= 0 {
		if b.policy.On(t) {
			diL = (b.vin - vC) / b.l
		} else {
			diL = -vC / b.l
		}
	}
	var dvC float64
	if b.vIdx >= 0 {
		dvC = b.charge(iL, vC)
	}
	return b.pack(diL, dvC, len(x))
}

// Boost is the step-up converter with state [iL, vC].
type Boost struct{ *converter }

func NewBoost(c *circuit.Circuit) (*Boost, error) {
	conv, err := newConverter(topology.Boost, c)
	if err != nil {
		return nil, err
	}
	return &Boost{conv}, nil
}

func (b *Boost) Derive(x dynamo.State, t float64) dynamo.State {
	iL, vC := b.unpack(x)

	var diL, dvC float64
	if b.policy.On(t) {
		if b.iIdx >= 0 {
			diL = b.vin / b.l
		}
		if b.vIdx >= 0 {
			dvC = b.discharge(vC)
		}
	} else {
		if b.iIdx >= 0 {
			diL = (b.vin - vC) / b.l
		}
		if b.vIdx >= 0 {
			dvC = b.charge(iL, vC)
		}
	}
	return b.pack(diL, dvC, len(x))
}

// BuckBoost is the inverting converter. vC is tracked as the magnitude of
// the output voltage.
type BuckBoost struct{ *converter }

func NewBuckBoost(c *circuit.Circuit) (*BuckBoost, error) {
	conv, err := newConverter(topology.BuckBoost, c)
	if err != nil {
		return nil, err
	}
	return &BuckBoost{conv}, nil
}

func (b *BuckBoost) Derive(x dynamo.State, t float64) dynamo.State {
	iL, vC := b.unpack(x)

	var diL, dvC float64
	if b.policy.On(t) {
		if b.iIdx >= 0 {
			diL = b.vin / b.l
		}
		if b.vIdx >= 0 {
			dvC = b.discharge(vC)
		}
	} else {
		if b.iIdx >= 0 {
			diL = -vC / b.l
		}
		if b.vIdx >= 0 {
			dvC = b.charge(iL, vC)
		}
	}
	return b.pack(diL, dvC, len(x))
}
