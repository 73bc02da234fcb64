// Package models provides the state-space models of the supported
// converter families.
//
// Every model implements [Model]:
//
//   - [Buck]: step-down converter, state [inductor_current, capacitor_voltage]
//   - [Boost]: step-up converter, same state layout
//   - [BuckBoost]: inverting converter, output tracked as a magnitude
//   - [Generic]: isolated RC/RL fallback for anything else
//
// [Build] classifies a circuit with the topology package and constructs the
// matching model. A state variable is created only for storage elements
// present in the circuit, so a buck circuit without an inductor integrates
// a one-dimensional state.
//
// # Switching
//
// Converter models take the switch state from a [SwitchPolicy]. The default
// [PWM] policy is a pure function of time; the right-hand side is therefore
// discontinuous at each edge and the integrator resolves it by step-size
// control unless the driver is asked to stop on [EventSource] edges.
//
// # Limitations
//
// The generic model does not solve the circuit: capacitors discharge
// through a fixed reference resistance, inductors charge from a fixed
// reference voltage, and resistor power is reported for a placeholder
// current.
package models
