// Package topology picks the converter family a circuit is simulated as.
//
// Classification is a heuristic over component counts and display names; the
// connection list is never consulted. Anything that does not look like a
// switched converter falls back to [Generic].
package topology

import (
	"strings"

	"github.com/san-kum/convsim/internal/circuit"
)

// Kind is a converter family.
type Kind int

const (
	Generic Kind = iota
	Buck
	Boost
	BuckBoost
)

func (k Kind) String() string {
	switch k {
	case Buck:
		return "buck"
	case Boost:
		return "boost"
	case BuckBoost:
		return "buck_boost"
	default:
		return "generic"
	}
}

// Parse is the inverse of String. Unknown names map to Generic.
func Parse(s string) Kind {
	switch strings.ToLower(s) {
	case "buck":
		return Buck
	case "boost":
		return Boost
	case "buck_boost":
		return BuckBoost
	default:
		return Generic
	}
}

var buckBoostNames = []string{"buck-boost", "buck_boost", "buckboost", "buck boost"}

// Classify returns the converter family for c. It never fails.
func Classify(c *circuit.Circuit) Kind {
	counts := c.CountByType()

	switches := counts[circuit.MOSFET] + counts[circuit.IGBT]
	if switches < 1 || counts[circuit.Diode] < 1 || counts[circuit.Inductor] < 1 || counts[circuit.Capacitor] < 1 {
		return Generic
	}

	kind := Buck
	for _, id := range c.SortedIDs() {
		name := strings.ToLower(c.Components[id].Name)
		for _, marker := range buckBoostNames {
			if strings.Contains(name, marker) {
				return BuckBoost
			}
		}
		if strings.Contains(name, "boost") {
			kind = Boost
		}
	}
	return kind
}
