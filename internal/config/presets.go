package config

import (
	"sort"

	"github.com/san-kum/convsim/internal/circuit"
)

// Preset is a ready-made circuit with run settings that show its steady
// state.
type Preset struct {
	Description string
	EndTime     float64
	StepSize    float64
	build       func() *circuit.Circuit
}

// Circuit returns a fresh copy of the preset circuit.
func (p *Preset) Circuit() *circuit.Circuit { return p.build() }

type part struct {
	t      circuit.ComponentType
	name   string
	params map[string]float64
}

func assemble(name string, parts []part, wires [][4]string) func() *circuit.Circuit {
	return func() *circuit.Circuit {
		c := circuit.New(name)
		ids := make(map[string]string, len(parts))
		for _, p := range parts {
			id, _ := c.Add(circuit.MustComponent(p.t, p.name, p.params))
			ids[p.name] = id
		}
		for _, w := range wires {
			_ = c.Connect(ids[w[0]], w[1], ids[w[2]], w[3])
		}
		return c
	}
}

func converterParts(vin, l, capacitance, r, fsw, duty float64, sw circuit.ComponentType, swName string) []part {
	return []part{
		{circuit.VoltageSource, "Vin", map[string]float64{circuit.ParamVoltage: vin}},
		{sw, swName, nil},
		{circuit.Diode, "D1", nil},
		{circuit.Inductor, "L1", map[string]float64{circuit.ParamInductance: l}},
		{circuit.Capacitor, "C1", map[string]float64{circuit.ParamCapacitance: capacitance}},
		{circuit.Resistor, "Rload", map[string]float64{circuit.ParamResistance: r}},
		{circuit.PWMSource, "Gate", map[string]float64{circuit.ParamFrequency: fsw, circuit.ParamDutyCycle: duty}},
	}
}

var Presets = map[string]*Preset{
	"buck": {
		Description: "24 V to 12 V step-down, 100 kHz, D=0.5",
		EndTime:     10e-3,
		StepSize:    0.2e-6,
		build: assemble("buck", converterParts(24, 100e-6, 47e-6, 10, 100e3, 0.5, circuit.MOSFET, "Q1"), [][4]string{
			{"Vin", "positive", "Q1", "drain"},
			{"Q1", "source", "L1", "t1"},
			{"D1", "cathode", "L1", "t1"},
			{"D1", "anode", "Vin", "negative"},
			{"L1", "t2", "C1", "t1"},
			{"C1", "t1", "Rload", "t1"},
			{"C1", "t2", "Vin", "negative"},
			{"Rload", "t2", "Vin", "negative"},
			{"Gate", "output", "Q1", "gate"},
		}),
	},
	"boost": {
		Description: "12 V to 24 V step-up, 100 kHz, D=0.5",
		EndTime:     20e-3,
		StepSize:    0.5e-6,
		build: assemble("boost", converterParts(12, 100e-6, 47e-6, 20, 100e3, 0.5, circuit.MOSFET, "Q1 boost"), [][4]string{
			{"Vin", "positive", "L1", "t1"},
			{"L1", "t2", "Q1 boost", "drain"},
			{"Q1 boost", "source", "Vin", "negative"},
			{"L1", "t2", "D1", "anode"},
			{"D1", "cathode", "C1", "t1"},
			{"C1", "t1", "Rload", "t1"},
			{"C1", "t2", "Vin", "negative"},
			{"Rload", "t2", "Vin", "negative"},
			{"Gate", "output", "Q1 boost", "gate"},
		}),
	},
	"buck_boost": {
		Description: "12 V inverting buck-boost, 100 kHz, D=0.5",
		EndTime:     20e-3,
		StepSize:    0.5e-6,
		build: assemble("buck_boost", converterParts(12, 100e-6, 47e-6, 20, 100e3, 0.5, circuit.IGBT, "S1 buck-boost"), [][4]string{
			{"Vin", "positive", "S1 buck-boost", "collector"},
			{"S1 buck-boost", "emitter", "L1", "t1"},
			{"L1", "t1", "D1", "cathode"},
			{"L1", "t2", "Vin", "negative"},
			{"D1", "anode", "C1", "t1"},
			{"C1", "t1", "Rload", "t1"},
			{"C1", "t2", "Vin", "negative"},
			{"Rload", "t2", "Vin", "negative"},
			{"Gate", "output", "S1 buck-boost", "gate"},
		}),
	},
	"rc": {
		Description: "1 uF capacitor charged to 5 V discharging, generic model",
		EndTime:     5e-3,
		StepSize:    1e-6,
		build: assemble("rc", []part{
			{circuit.Resistor, "R1", map[string]float64{circuit.ParamResistance: 1000}},
			{circuit.Capacitor, "C1", map[string]float64{
				circuit.ParamCapacitance:    1e-6,
				circuit.ParamInitialVoltage: 5,
			}},
		}, [][4]string{
			{"R1", "t1", "C1", "t1"},
			{"R1", "t2", "C1", "t2"},
		}),
	},
}

func GetPreset(name string) *Preset {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
