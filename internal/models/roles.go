package models

import (
	"math"

	"github.com/san-kum/convsim/internal/circuit"
	"github.com/san-kum/convsim/internal/dynamo"
)

const (
	DefaultLoadResistance = 100.0
	DefaultInputVoltage   = 12.0
	DefaultSwitchingFreq  = 10e3
	DefaultDutyCycle      = 0.5
)

// roles holds the canonical components of a single-switch converter. When
// a type appears more than once the lowest id wins.
type roles struct {
	sw, diode, inductor, capacitor, source, pwm, load *circuit.Component
}

func scanRoles(c *circuit.Circuit) roles {
	var r roles
	first := func(slot **circuit.Component, comp *circuit.Component) {
		if *slot == nil {
			*slot = comp
		}
	}
	for _, id := range c.SortedIDs() {
		comp := c.Components[id]
		switch {
		case comp.Type.IsSwitch():
			first(&r.sw, comp)
		case comp.Type == circuit.Diode:
			first(&r.diode, comp)
		case comp.Type == circuit.Inductor:
			first(&r.inductor, comp)
		case comp.Type == circuit.Capacitor:
			first(&r.capacitor, comp)
		case comp.Type == circuit.VoltageSource:
			first(&r.source, comp)
		case comp.Type == circuit.PWMSource:
			first(&r.pwm, comp)
		case comp.Type == circuit.Resistor:
			first(&r.load, comp)
		}
	}
	return r
}

func field(comp *circuit.Component, param string) string {
	return comp.Name + "." + param
}

// positive reads a parameter that ends up in a denominator.
func positive(comp *circuit.Component, param string) (float64, error) {
	v, ok := comp.Param(param)
	if !ok {
		return 0, dynamo.Configf(field(comp, param), "missing")
	}
	if !(v > 0) || math.IsInf(v, 0) {
		return 0, dynamo.Configf(field(comp, param), "must be positive, got %g", v)
	}
	return v, nil
}

func finite(comp *circuit.Component, param string) (float64, error) {
	v, ok := comp.Param(param)
	if !ok {
		return 0, dynamo.Configf(field(comp, param), "missing")
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, dynamo.Configf(field(comp, param), "must be finite, got %g", v)
	}
	return v, nil
}

// initial reads an optional initial condition, zero when absent.
func initial(comp *circuit.Component, param string) (float64, error) {
	if _, ok := comp.Param(param); !ok {
		return 0, nil
	}
	return finite(comp, param)
}

// switching resolves the gate signal: a PWM source wins over parameters set
// on the switch itself, which win over the defaults.
func (r roles) switching() (*PWM, error) {
	freq, duty := DefaultSwitchingFreq, DefaultDutyCycle
	for _, comp := range []*circuit.Component{r.sw, r.pwm} {
		if comp == nil {
			continue
		}
		if v, ok := comp.Param(circuit.ParamFrequency); ok {
			freq = v
		}
		if v, ok := comp.Param(circuit.ParamDutyCycle); ok {
			duty = v
		}
	}
	return NewPWM(freq, duty)
}
