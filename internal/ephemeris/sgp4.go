package ephemeris

import (
	"fmt"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/window"
)

// SGP4 propagates with github.com/akhenakh/sgp4.
type SGP4 struct{}

func (SGP4) Name() string { return "sgp4" }

func (SGP4) Load(e catalog.Entry) (window.Elements, error) {
	tle, err := sgp4.ParseTLE(e.Text())
	if err != nil {
		return nil, fmt.Errorf("parse TLE for %s: %w", e.Name, err)
	}
	return &sgp4Elements{tle: tle, name: e.Name}, nil
}

type sgp4Elements struct {
	tle  *sgp4.TLE
	name string
}

func (s *sgp4Elements) Altaz(obs window.Observer, at time.Time) (window.Topocentric, error) {
	at = at.UTC()
	eci, err := s.tle.FindPositionAtTime(at)
	if err != nil {
		return window.Topocentric{}, fmt.Errorf("sgp4 %s: %w", s.name, err)
	}

	sv := &sgp4.StateVector{X: eci.Position.X, Y: eci.Position.Y, Z: eci.Position.Z}
	loc := &sgp4.Location{Latitude: obs.Latitude, Longitude: obs.Longitude, Altitude: obs.Altitude}
	o, err := sv.GetLookAngle(loc, at)
	if err != nil {
		return window.Topocentric{}, fmt.Errorf("sgp4 %s: look angles: %w", s.name, err)
	}

	la := o.LookAngles
	if !finite(la.Elevation, la.Azimuth, la.Range) {
		return window.Topocentric{}, fmt.Errorf("sgp4 %s: propagation produced NaN/Inf", s.name)
	}
	return window.Topocentric{Altitude: la.Elevation, Azimuth: la.Azimuth, Range: la.Range}, nil
}
