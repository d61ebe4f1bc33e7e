// Package ephemeris adapts SGP4 propagation libraries to window.Elements.
// Two backends are available: "sgp4" (github.com/akhenakh/sgp4) and
// "go-satellite" (github.com/joshuaferrara/go-satellite).
package ephemeris

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/window"
)

// Backend builds propagatable elements from catalog entries.
type Backend interface {
	Name() string
	Load(catalog.Entry) (window.Elements, error)
}

// Default is the backend used when none is configured.
const Default = "sgp4"

var backends = map[string]Backend{
	"sgp4":         SGP4{},
	"go-satellite": GoSatellite{},
}

// ForName returns the backend registered under name.
func ForName(name string) (Backend, error) {
	b, ok := backends[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown ephemeris backend %q (want one of %s)",
			window.ErrInvalidArgument, name, strings.Join(Names(), ", "))
	}
	return b, nil
}

// Names lists the registered backends.
func Names() []string {
	out := make([]string, 0, len(backends))
	for name := range backends {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
