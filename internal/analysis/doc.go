// Package analysis provides waveform and dynamics analysis for simulated
// converters.
//
//   - [Spectrum] and [DominantFrequency]: radix-2 FFT of a sampled signal
//   - [NewPhasePortrait]: inductor current against capacitor voltage
//   - [Stroboscopic]: one sample per switching period (Poincaré section)
//
// A converter in periodic steady state returns to the same point every
// switching period, so its stroboscopic section collapses to one point:
//
//	sec := analysis.Stroboscopic(res, "inductor_current", "capacitor_voltage", 1/fsw, 0.5)
//	if len(sec.Distinct(1e-3)) > 1 {
//	    // subharmonic or chaotic operation
//	}
package analysis
