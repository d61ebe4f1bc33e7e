package window

import (
	"fmt"
	"math"
	"time"
)

// IsVisible reports whether a satellite at the given elevation is above the
// horizon. The horizon itself (0°) does not count. NaN and infinities are
// not real elevations and are rejected.
func IsVisible(elevationDeg float64) (bool, error) {
	if math.IsNaN(elevationDeg) || math.IsInf(elevationDeg, 0) {
		return false, invalidf("elevation %v is not a real number", elevationDeg)
	}
	return elevationDeg > 0, nil
}

// Sighting is a visible satellite and where it was seen.
type Sighting struct {
	Satellite Satellite
	Position  Topocentric
}

// Sample returns the satellites visible from obs at the given instant, in
// input order. Every satellite is looked up; the first lookup failure aborts
// the sample.
func Sample(sats []Satellite, obs Observer, at time.Time) ([]Satellite, error) {
	seen, err := SampleSightings(sats, obs, at)
	if err != nil {
		return nil, err
	}
	visible := make([]Satellite, len(seen))
	for i, s := range seen {
		visible[i] = s.Satellite
	}
	return visible, nil
}

// SampleSightings is Sample keeping each visible satellite's position.
func SampleSightings(sats []Satellite, obs Observer, at time.Time) ([]Sighting, error) {
	visible := make([]Sighting, 0, len(sats))

	for _, s := range sats {
		if s.Elements == nil {
			return nil, invalidf("satellite %q has no orbital elements", s.Name)
		}

		pos, err := s.Elements.Altaz(obs, at.UTC())
		if err != nil {
			return nil, fmt.Errorf("position of %s at %s: %w", s.Name, at.UTC().Format(time.RFC3339), err)
		}

		ok, err := IsVisible(pos.Altitude)
		if err != nil {
			return nil, fmt.Errorf("position of %s: %w", s.Name, err)
		}
		if ok {
			visible = append(visible, Sighting{Satellite: s, Position: pos})
		}
	}

	return visible, nil
}
