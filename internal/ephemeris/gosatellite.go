package ephemeris

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/window"
)

const (
	deg2rad = math.Pi / 180
	rad2deg = 180 / math.Pi
)

// GoSatellite propagates with github.com/joshuaferrara/go-satellite using
// WGS-84 constants.
type GoSatellite struct{}

func (GoSatellite) Name() string { return "go-satellite" }

// Load pre-validates the element lines; the library calls log.Fatal on
// input it cannot parse.
func (GoSatellite) Load(e catalog.Entry) (window.Elements, error) {
	l1 := strings.TrimSpace(e.Line1)
	l2 := strings.TrimSpace(e.Line2)
	if err := validateLines(l1, l2); err != nil {
		return nil, fmt.Errorf("invalid TLE for %s: %w", e.Name, err)
	}

	sat := satellite.TLEToSat(l1, l2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for %s: code=%d %s", e.Name, sat.Error, sat.ErrorStr)
	}
	return &goSatElements{sat: sat, name: e.Name}, nil
}

func validateLines(l1, l2 string) error {
	if len(l1) != 69 {
		return fmt.Errorf("line 1 length %d, expected 69", len(l1))
	}
	if len(l2) != 69 {
		return fmt.Errorf("line 2 length %d, expected 69", len(l2))
	}
	if l1[0] != '1' {
		return fmt.Errorf("line 1 must start with '1', got '%c'", l1[0])
	}
	if l2[0] != '2' {
		return fmt.Errorf("line 2 must start with '2', got '%c'", l2[0])
	}
	return nil
}

type goSatElements struct {
	sat  satellite.Satellite
	name string
}

func (g *goSatElements) Altaz(obs window.Observer, at time.Time) (window.Topocentric, error) {
	at = at.UTC()
	y, mo, d := at.Year(), int(at.Month()), at.Day()
	h, mi, s := at.Hour(), at.Minute(), at.Second()

	pos, _ := satellite.Propagate(g.sat, y, mo, d, h, mi, s)
	if !finite(pos.X, pos.Y, pos.Z) {
		return window.Topocentric{}, fmt.Errorf("go-satellite %s: propagation produced NaN/Inf", g.name)
	}

	jday := satellite.JDay(y, mo, d, h, mi, s)
	site := satellite.LatLong{Latitude: obs.Latitude * deg2rad, Longitude: obs.Longitude * deg2rad}
	la := satellite.ECIToLookAngles(pos, site, obs.Altitude/1000, jday)

	if !finite(la.El, la.Az, la.Rg) {
		return window.Topocentric{}, fmt.Errorf("go-satellite %s: look angles are NaN/Inf", g.name)
	}
	return window.Topocentric{
		Altitude: la.El * rad2deg,
		Azimuth:  la.Az * rad2deg,
		Range:    la.Rg,
	}, nil
}
