package models

import (
	"math"
	"testing"
)

func TestPWMOn(t *testing.T) {
	pwm, err := NewPWM(1000, 0.25)
	if err != nil {
		t.Fatalf("NewPWM: %v", err)
	}

	tests := []struct {
		t  float64
		on bool
	}{
		{0, true},
		{0.1e-3, true},
		{0.3e-3, false},
		{0.99e-3, false},
		{1.1e-3, true},
		{5.5e-3, false},
	}

	for _, tt := range tests {
		if got := pwm.On(tt.t); got != tt.on {
			t.Errorf("On(%g) = %v, want %v", tt.t, got, tt.on)
		}
	}
}

func TestPWMExtremes(t *testing.T) {
	never, _ := NewPWM(1000, 0)
	always, _ := NewPWM(1000, 1)

	for _, ts := range []float64{0, 0.4e-3, 0.999e-3} {
		if never.On(ts) {
			t.Errorf("duty 0 conducting at %g", ts)
		}
		if !always.On(ts) {
			t.Errorf("duty 1 blocking at %g", ts)
		}
	}
}

func TestPWMNextEvent(t *testing.T) {
	pwm, _ := NewPWM(1000, 0.25)

	tests := []struct {
		t, want float64
	}{
		{0, 0.25e-3},
		{0.25e-3, 1e-3},
		{0.5e-3, 1e-3},
		{1e-3, 1.25e-3},
	}

	for _, tt := range tests {
		if got := pwm.NextEvent(tt.t); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("NextEvent(%g) = %g, want %g", tt.t, got, tt.want)
		}
	}
}

func TestNewPWMInvalid(t *testing.T) {
	if _, err := NewPWM(0, 0.5); err == nil {
		t.Error("expected error for zero frequency")
	}
	if _, err := NewPWM(1000, -0.1); err == nil {
		t.Error("expected error for negative duty")
	}
}
