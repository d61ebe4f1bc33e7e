package window

import (
	"context"
	"time"
)

// Topocentric is a satellite's position relative to an observer.
type Topocentric struct {
	Altitude float64 // degrees above the local horizon
	Azimuth  float64 // degrees clockwise from north
	Range    float64 // km
}

// Elements is an opaque handle to a satellite's orbital elements. Only the
// propagation backend that built it knows what is inside.
type Elements interface {
	Altaz(obs Observer, at time.Time) (Topocentric, error)
}

// Satellite is a named catalog entry. Two satellites are the same satellite
// when their names match, regardless of which fetch produced them.
type Satellite struct {
	Name     string
	Elements Elements
}

func (s Satellite) valid() bool {
	return s.Name != "" && s.Elements != nil
}

// CatalogSource resolves a catalog URL or handle into a deduplicated list of
// satellites.
type CatalogSource interface {
	Satellites(ctx context.Context, urlOrHandle string) ([]Satellite, error)
}

// CatalogFunc adapts a function to CatalogSource.
type CatalogFunc func(ctx context.Context, urlOrHandle string) ([]Satellite, error)

func (f CatalogFunc) Satellites(ctx context.Context, urlOrHandle string) ([]Satellite, error) {
	return f(ctx, urlOrHandle)
}

// Names projects satellites onto their names, keeping order. A value with no
// name or no elements is not a satellite and fails the whole projection.
func Names(sats []Satellite) ([]string, error) {
	for i, s := range sats {
		if !s.valid() {
			return nil, invalidf("element %d is not a satellite", i)
		}
	}

	names := make([]string, len(sats))
	for i, s := range sats {
		names[i] = s.Name
	}
	return names, nil
}
