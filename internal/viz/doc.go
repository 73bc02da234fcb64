// Package viz renders simulation results in the terminal.
//
// [Viewer] is a Bubble Tea program for browsing a finished run:
//
//	j/k   - select variable
//	h/l   - pan through time
//	+/-   - zoom the time window
//	space - play the run back
//	p     - phase portrait (inductor current against capacitor voltage)
//	t     - cycle color themes
//	?     - show help
//	q     - quit
//
// [Plot] wraps asciigraph for one-shot charts printed by the CLI.
package viz
