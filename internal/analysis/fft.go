package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT computes the discrete Fourier transform of data. Any length works;
// powers of two take the radix-2 path.
func FFT(data []float64) []complex128 {
	return fft.FFTReal(data)
}

// Pad removes the mean of data and zero-pads it to the next power of two.
func Pad(data []float64) []float64 {
	n := 1
	for n < len(data) {
		n <<= 1
	}
	mean := 0.0
	for _, v := range data {
		mean += v
	}
	if len(data) > 0 {
		mean /= float64(len(data))
	}

	out := make([]float64, n)
	for i, v := range data {
		out[i] = v - mean
	}
	return out
}

func PowerSpectrum(data []float64) []float64 {
	fft := FFT(Pad(data))
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// Spectrum returns the one-sided magnitude spectrum of a signal sampled
// every dt, together with the frequency of each bin.
func Spectrum(values []float64, dt float64) (freqs, mags []float64) {
	padded := Pad(values)
	mags = PowerSpectrum(values)
	freqs = make([]float64, len(mags))
	df := 1 / (float64(len(padded)) * dt)
	for i := range freqs {
		freqs[i] = float64(i) * df
	}
	return freqs, mags
}

// DominantFrequency returns the frequency of the strongest non-DC bin, or
// zero for signals too short or too flat to tell.
func DominantFrequency(values []float64, dt float64) float64 {
	if len(values) < 4 || !(dt > 0) {
		return 0
	}
	freqs, mags := Spectrum(values, dt)
	best := 1
	for i := 2; i < len(mags); i++ {
		if mags[i] > mags[best] {
			best = i
		}
	}
	if mags[best] == 0 {
		return 0
	}
	return freqs[best]
}
