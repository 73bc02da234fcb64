// Package dynamo provides the shared primitives of the converter simulator.
//
// The package defines the small vocabulary every other package speaks:
//
//   - [State]: vector of state variables (inductor currents, capacitor voltages)
//   - [System]: interface for ODE right-hand sides (dX/dt = f(X, t))
//   - [Trajectory]: sampled solution of one run
//
// # Errors
//
// Configuration problems are reported as [*ConfigError] (matching
// [ErrConfiguration]) before any integration starts. Solver failures are
// reported as [*IntegrationError] carrying the furthest time reached and
// wrapping one of [ErrStepTooSmall], [ErrInvalidState], [ErrMaxSteps] or
// [ErrCanceled].
//
// # Thread Safety
//
// Nothing in this package holds shared state. A Trajectory is owned by the
// run that produced it and is read-only afterwards.
package dynamo
