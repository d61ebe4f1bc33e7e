package window

import (
	"context"
	"errors"
	"time"
)

var t0 = time.Date(2025, 2, 14, 12, 0, 0, 0, time.UTC)

// scripted reports a satellite above the horizon exactly at the listed
// minute offsets from t0 and below it everywhere else.
type scripted struct {
	up    map[int]bool
	err   error
	calls *int
}

func (s scripted) Altaz(_ Observer, at time.Time) (Topocentric, error) {
	if s.calls != nil {
		*s.calls++
	}
	if s.err != nil {
		return Topocentric{}, s.err
	}
	minute := int(at.Sub(t0) / time.Minute)
	if s.up[minute] {
		return Topocentric{Altitude: 10, Azimuth: 180, Range: 800}, nil
	}
	return Topocentric{Altitude: -10, Azimuth: 0, Range: 9000}, nil
}

func sat(name string, minutes ...int) Satellite {
	up := make(map[int]bool, len(minutes))
	for _, m := range minutes {
		up[m] = true
	}
	return Satellite{Name: name, Elements: scripted{up: up}}
}

// fixedAlt always reports the same altitude.
type fixedAlt float64

func (f fixedAlt) Altaz(Observer, time.Time) (Topocentric, error) {
	return Topocentric{Altitude: float64(f)}, nil
}

type fakeCatalog struct {
	sats  []Satellite
	err   error
	calls int
	url   string
}

func (f *fakeCatalog) Satellites(_ context.Context, url string) ([]Satellite, error) {
	f.calls++
	f.url = url
	if f.err != nil {
		return nil, f.err
	}
	return f.sats, nil
}

var errLookup = errors.New("propagation diverged")

func names(sats []Satellite) []string {
	out := make([]string, len(sats))
	for i, s := range sats {
		out[i] = s.Name
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
