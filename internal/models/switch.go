package models

import (
	"math"

	"github.com/san-kum/convsim/internal/dynamo"
)

// SwitchPolicy decides whether the controlled switch conducts at time t.
type SwitchPolicy interface {
	On(t float64) bool
}

// PWM is a fixed-frequency, fixed-duty gate signal. The switch conducts
// during the first Duty fraction of every period, independent of the
// circuit state.
type PWM struct {
	Period float64
	Duty   float64
}

func NewPWM(frequency, duty float64) (*PWM, error) {
	if !(frequency > 0) || math.IsInf(frequency, 0) {
		return nil, dynamo.Configf("switching frequency", "must be positive, got %g", frequency)
	}
	if !(duty >= 0 && duty <= 1) {
		return nil, dynamo.Configf("duty cycle", "must be in [0, 1], got %g", duty)
	}
	return &PWM{Period: 1 / frequency, Duty: duty}, nil
}

func (p *PWM) On(t float64) bool {
	phase := math.Mod(t, p.Period) / p.Period
	if phase < 0 {
		phase += 1
	}
	return phase < p.Duty
}

// NextEvent returns the first switching edge strictly after t.
func (p *PWM) NextEvent(t float64) float64 {
	eps := 1e-9 * p.Period
	k := math.Floor(t / p.Period)
	for _, edge := range []float64{
		k*p.Period + p.Duty*p.Period,
		(k + 1) * p.Period,
		(k+1)*p.Period + p.Duty*p.Period,
	} {
		if edge > t+eps {
			return edge
		}
	}
	return (k + 2) * p.Period
}
