package metrics

import (
	"math"
	"testing"
)

func TestEnergyConstantPower(t *testing.T) {
	m := NewEnergy()

	times := []float64{0, 0.5, 1.0, 1.5, 2.0}
	power := []float64{3, 3, 3, 3, 3}

	if got := Apply(m, times, power); math.Abs(got-6) > 1e-12 {
		t.Errorf("expected energy 6 J, got %f", got)
	}
}

func TestEnergyRamp(t *testing.T) {
	m := NewEnergy()

	var times, power []float64
	for k := 0; k <= 100; k++ {
		ts := float64(k) * 0.01
		times = append(times, ts)
		power = append(power, 2*ts)
	}

	if got := Apply(m, times, power); math.Abs(got-1) > 1e-9 {
		t.Errorf("expected energy 1 J, got %f", got)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy()

	m.Observe(1, 0)
	m.Observe(1, 1)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}
