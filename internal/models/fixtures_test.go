package models

import "github.com/san-kum/convsim/internal/circuit"

type buckSpec struct {
	vin, duty, l, c, r, fsw float64
	switchName              string
	skip                    map[circuit.ComponentType]bool
}

func defaultBuck() buckSpec {
	return buckSpec{vin: 24, duty: 0.5, l: 100e-6, c: 470e-6, r: 10, fsw: 100e3}
}

func (s buckSpec) circuit() *circuit.Circuit {
	c := circuit.New("converter")
	add := func(t circuit.ComponentType, name string, params map[string]float64) {
		if s.skip[t] {
			return
		}
		c.Add(circuit.MustComponent(t, name, params))
	}

	add(circuit.VoltageSource, "Vin", map[string]float64{circuit.ParamVoltage: s.vin})
	add(circuit.MOSFET, s.switchName, nil)
	add(circuit.Diode, "D1", nil)
	add(circuit.Inductor, "L1", map[string]float64{circuit.ParamInductance: s.l})
	add(circuit.Capacitor, "C1", map[string]float64{circuit.ParamCapacitance: s.c})
	add(circuit.Resistor, "Rload", map[string]float64{circuit.ParamResistance: s.r})
	add(circuit.PWMSource, "Gate", map[string]float64{
		circuit.ParamFrequency: s.fsw,
		circuit.ParamDutyCycle: s.duty,
	})
	return c
}
