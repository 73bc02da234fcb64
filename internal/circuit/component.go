package circuit

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

type ComponentType string

const (
	Resistor      ComponentType = "resistor"
	Capacitor     ComponentType = "capacitor"
	Inductor      ComponentType = "inductor"
	Diode         ComponentType = "diode"
	MOSFET        ComponentType = "mosfet"
	IGBT          ComponentType = "igbt"
	VoltageSource ComponentType = "voltage_source"
	PWMSource     ComponentType = "pwm_source"
)

// Parameter names used by the built-in component types.
const (
	ParamResistance       = "resistance"
	ParamCapacitance      = "capacitance"
	ParamInductance       = "inductance"
	ParamForwardVoltage   = "forward_voltage"
	ParamReverseCurrent   = "reverse_current"
	ParamRdsOn            = "rds_on"
	ParamThresholdVoltage = "threshold_voltage"
	ParamVceSat           = "vce_sat"
	ParamVoltage          = "voltage"
	ParamAmplitude        = "amplitude"
	ParamFrequency        = "frequency"
	ParamDutyCycle        = "duty_cycle"

	// Optional initial conditions for storage elements. Absent means zero.
	ParamInitialCurrent = "initial_current"
	ParamInitialVoltage = "initial_voltage"
)

type kindSpec struct {
	terminals []string
	defaults  map[string]float64
}

var kinds = map[ComponentType]kindSpec{
	Resistor:      {[]string{"t1", "t2"}, map[string]float64{ParamResistance: 1000}},
	Capacitor:     {[]string{"t1", "t2"}, map[string]float64{ParamCapacitance: 1e-6}},
	Inductor:      {[]string{"t1", "t2"}, map[string]float64{ParamInductance: 1e-3}},
	Diode:         {[]string{"anode", "cathode"}, map[string]float64{ParamForwardVoltage: 0.7, ParamReverseCurrent: 1e-6}},
	MOSFET:        {[]string{"drain", "gate", "source"}, map[string]float64{ParamRdsOn: 0.1, ParamThresholdVoltage: 3.0}},
	IGBT:          {[]string{"collector", "gate", "emitter"}, map[string]float64{ParamVceSat: 2.0, ParamThresholdVoltage: 5.0}},
	VoltageSource: {[]string{"positive", "negative"}, map[string]float64{ParamVoltage: 12}},
	PWMSource:     {[]string{"output", "reference"}, map[string]float64{ParamAmplitude: 5, ParamFrequency: 10000, ParamDutyCycle: 0.5}},
}

// ParseType maps a type tag onto the closed set of known types. The boolean
// is false for tags the simulator has no model for.
func ParseType(s string) (ComponentType, bool) {
	t := ComponentType(strings.ToLower(strings.TrimSpace(s)))
	_, ok := kinds[t]
	return t, ok
}

// IsSwitch reports whether t is a controlled semiconductor switch.
func (t ComponentType) IsSwitch() bool {
	return t == MOSFET || t == IGBT
}

// Terminals returns the fixed terminal names for t, or nil for unknown types.
func (t ComponentType) Terminals() []string {
	spec, ok := kinds[t]
	if !ok {
		return nil
	}
	return append([]string(nil), spec.terminals...)
}

type Component struct {
	ID         string             `json:"id"`
	Type       ComponentType      `json:"type"`
	Name       string             `json:"name"`
	Position   [2]float64         `json:"position"`
	Rotation   float64            `json:"rotation"`
	Terminals  []string           `json:"terminals"`
	Parameters map[string]float64 `json:"parameters"`
}

// NewComponent creates a component of a known type with its default
// parameters and a fresh id. An empty name becomes "<type>_<id prefix>".
func NewComponent(t ComponentType, name string) (*Component, error) {
	spec, ok := kinds[t]
	if !ok {
		return nil, fmt.Errorf("unknown component type: %s", t)
	}

	id := uuid.NewString()
	if name == "" {
		name = fmt.Sprintf("%s_%s", t, id[:8])
	}

	params := make(map[string]float64, len(spec.defaults))
	for k, v := range spec.defaults {
		params[k] = v
	}

	return &Component{
		ID:         id,
		Type:       t,
		Name:       name,
		Terminals:  append([]string(nil), spec.terminals...),
		Parameters: params,
	}, nil
}

// MustComponent is NewComponent for static tables and tests.
func MustComponent(t ComponentType, name string, params map[string]float64) *Component {
	c, err := NewComponent(t, name)
	if err != nil {
		panic(err)
	}
	for k, v := range params {
		c.Parameters[k] = v
	}
	return c
}

func (c *Component) Param(name string) (float64, bool) {
	v, ok := c.Parameters[name]
	return v, ok
}

func (c *Component) HasTerminal(name string) bool {
	for _, t := range c.Terminals {
		if t == name {
			return true
		}
	}
	return false
}

func (c *Component) Clone() *Component {
	cp := *c
	cp.Terminals = append([]string(nil), c.Terminals...)
	cp.Parameters = make(map[string]float64, len(c.Parameters))
	for k, v := range c.Parameters {
		cp.Parameters[k] = v
	}
	return &cp
}

// LibraryEntry describes one palette item of the circuit editor.
type LibraryEntry struct {
	Type   string             `json:"type"`
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params"`
}

// Library returns the component palette grouped by category.
func Library() map[string][]LibraryEntry {
	entry := func(t ComponentType, name string) LibraryEntry {
		params := make(map[string]float64)
		for k, v := range kinds[t].defaults {
			params[k] = v
		}
		return LibraryEntry{Type: string(t), Name: name, Params: params}
	}

	return map[string][]LibraryEntry{
		"passive": {
			entry(Resistor, "Resistor"),
			entry(Capacitor, "Capacitor"),
			entry(Inductor, "Inductor"),
		},
		"semiconductor": {
			entry(Diode, "Diode"),
			entry(MOSFET, "MOSFET"),
			entry(IGBT, "IGBT"),
		},
		"sources": {
			entry(VoltageSource, "DC Voltage Source"),
			entry(PWMSource, "PWM Source"),
		},
		"converters": {
			{Type: "buck_converter", Name: "Buck Converter", Params: map[string]float64{}},
			{Type: "boost_converter", Name: "Boost Converter", Params: map[string]float64{}},
			{Type: "buck_boost_converter", Name: "Buck-Boost Converter", Params: map[string]float64{}},
		},
	}
}

// Types lists the known component types in lexical order.
func Types() []ComponentType {
	out := make([]ComponentType, 0, len(kinds))
	for t := range kinds {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
