package topology

import (
	"testing"

	"github.com/san-kum/convsim/internal/circuit"
)

func converterCircuit(names map[circuit.ComponentType]string, skip ...circuit.ComponentType) *circuit.Circuit {
	c := circuit.New("test")
	skipped := make(map[circuit.ComponentType]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for _, typ := range []circuit.ComponentType{
		circuit.MOSFET, circuit.Diode, circuit.Inductor, circuit.Capacitor, circuit.VoltageSource,
	} {
		if skipped[typ] {
			continue
		}
		c.Add(circuit.MustComponent(typ, names[typ], nil))
	}
	return c
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		build func() *circuit.Circuit
		want  Kind
	}{
		{"plain buck", func() *circuit.Circuit {
			return converterCircuit(nil)
		}, Buck},
		{"named boost", func() *circuit.Circuit {
			return converterCircuit(map[circuit.ComponentType]string{circuit.MOSFET: "Boost Switch"})
		}, Boost},
		{"named buck-boost", func() *circuit.Circuit {
			return converterCircuit(map[circuit.ComponentType]string{circuit.Inductor: "Buck-Boost Inductor"})
		}, BuckBoost},
		{"missing diode", func() *circuit.Circuit {
			return converterCircuit(nil, circuit.Diode)
		}, Generic},
		{"missing capacitor", func() *circuit.Circuit {
			return converterCircuit(nil, circuit.Capacitor)
		}, Generic},
		{"igbt switch", func() *circuit.Circuit {
			c := converterCircuit(nil, circuit.MOSFET)
			c.Add(circuit.MustComponent(circuit.IGBT, "", nil))
			return c
		}, Buck},
		{"empty", func() *circuit.Circuit { return circuit.New("empty") }, Generic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.build()); got != tt.want {
				t.Errorf("Classify() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifyIgnoresConnections(t *testing.T) {
	c := converterCircuit(nil)
	before := Classify(c)
	ids := c.SortedIDs()
	c.Connect(ids[0], c.Components[ids[0]].Terminals[0], ids[1], c.Components[ids[1]].Terminals[0])

	if after := Classify(c); after != before {
		t.Errorf("classification changed with wiring: %v -> %v", before, after)
	}
}

func TestKindString(t *testing.T) {
	for _, k := range []Kind{Generic, Buck, Boost, BuckBoost} {
		if Parse(k.String()) != k {
			t.Errorf("Parse(%q) != %v", k.String(), k)
		}
	}
}
