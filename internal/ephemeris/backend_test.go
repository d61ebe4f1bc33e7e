package ephemeris

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/window"
)

// Real ISS elements, epoch 2025-05-18 08:53 UTC.
var iss = catalog.Entry{
	Name:    "ISS (ZARYA)",
	NoradID: 25544,
	Line1:   "1 25544U 98067A   25138.37048074  .00007749  00000+0  14567-3 0  9994",
	Line2:   "2 25544  51.6369  94.7823 0002558 120.7586  15.7840 15.49587957510533",
}

var melbourne = window.Observer{Latitude: -37.910496, Longitude: 145.134021}

func TestForName(t *testing.T) {
	for _, name := range []string{"sgp4", "go-satellite", " SGP4 "} {
		b, err := ForName(name)
		if err != nil {
			t.Errorf("ForName(%q): %v", name, err)
			continue
		}
		if b.Name() == "" {
			t.Errorf("ForName(%q) returned an unnamed backend", name)
		}
	}

	if _, err := ForName("skyfield"); !errors.Is(err, window.ErrInvalidArgument) {
		t.Errorf("ForName(skyfield) error = %v, want ErrInvalidArgument", err)
	}

	if got := Names(); len(got) != 2 || got[0] != "go-satellite" || got[1] != "sgp4" {
		t.Errorf("Names() = %v", got)
	}
}

func TestBackendsProduceSaneLookAngles(t *testing.T) {
	start := time.Date(2025, 5, 18, 9, 0, 0, 0, time.UTC)

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			b, _ := ForName(name)
			el, err := b.Load(iss)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}

			for i := range 90 {
				at := start.Add(time.Duration(i) * time.Minute)
				pos, err := el.Altaz(melbourne, at)
				if err != nil {
					t.Fatalf("Altaz(%v): %v", at, err)
				}
				if pos.Altitude < -90 || pos.Altitude > 90 {
					t.Errorf("%v: altitude %.2f out of range", at, pos.Altitude)
				}
				if pos.Azimuth < 0 || pos.Azimuth > 360 {
					t.Errorf("%v: azimuth %.2f out of range", at, pos.Azimuth)
				}
				// ISS is never closer than its orbit height nor farther than
				// the far side of the Earth.
				if pos.Range < 350 || pos.Range > 14000 {
					t.Errorf("%v: range %.1f km implausible", at, pos.Range)
				}
			}
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	a, err := SGP4{}.Load(iss)
	if err != nil {
		t.Fatal(err)
	}
	b, err := GoSatellite{}.Load(iss)
	if err != nil {
		t.Fatal(err)
	}

	start := time.Date(2025, 5, 18, 9, 0, 0, 0, time.UTC)
	for i := range 12 {
		at := start.Add(time.Duration(i*10) * time.Minute)
		pa, err := a.Altaz(melbourne, at)
		if err != nil {
			t.Fatal(err)
		}
		pb, err := b.Altaz(melbourne, at)
		if err != nil {
			t.Fatal(err)
		}
		if d := math.Abs(pa.Altitude - pb.Altitude); d > 1 {
			t.Errorf("%v: sgp4 %.2f° vs go-satellite %.2f°", at, pa.Altitude, pb.Altitude)
		}
	}
}

func TestDefaultBackendTracksPasses(t *testing.T) {
	b, err := ForName(Default)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name() != "sgp4" {
		t.Fatalf("default backend = %s, want sgp4", b.Name())
	}
	el, err := b.Load(iss)
	if err != nil {
		t.Fatal(err)
	}

	// A day of minutes over Melbourne holds several ISS passes.
	start := time.Date(2025, 5, 18, 0, 0, 0, 0, time.UTC)
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range 24 * 60 {
		pos, err := el.Altaz(melbourne, start.Add(time.Duration(i)*time.Minute))
		if err != nil {
			t.Fatalf("minute %d: %v", i, err)
		}
		lo, hi = math.Min(lo, pos.Altitude), math.Max(hi, pos.Altitude)
	}
	if hi <= 0 {
		t.Errorf("ISS never rose: highest altitude %.2f°", hi)
	}
	if lo >= 0 {
		t.Errorf("ISS never set: lowest altitude %.2f°", lo)
	}
}

func TestGoSatelliteRejectsMalformedLines(t *testing.T) {
	tests := map[string]catalog.Entry{
		"short":         {Name: "x", Line1: "1 25544U", Line2: iss.Line2},
		"swapped lines": {Name: "x", Line1: iss.Line2, Line2: iss.Line1},
	}
	for name, e := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := (GoSatellite{}).Load(e); err == nil {
				t.Error("Load succeeded on malformed lines")
			}
		})
	}
}

func TestSGP4RejectsGarbage(t *testing.T) {
	if _, err := (SGP4{}).Load(catalog.Entry{Name: "x", Line1: "1 nope", Line2: "2 nope"}); err == nil {
		t.Error("Load succeeded on garbage")
	}
}

func TestBackendsWithWindowScheduler(t *testing.T) {
	sats, err := (&catalog.Loader{Builder: GoSatellite{}}).Satellites(t.Context(), catalog.EmbeddedVisual)
	if err != nil {
		t.Fatalf("load embedded catalog: %v", err)
	}

	s := &window.Scheduler{Catalog: staticCatalog(sats)}
	res, err := s.FindTime(t.Context(), window.Request{
		CatalogURL:  catalog.EmbeddedVisual,
		Start:       time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC),
		Windows:     12,
		Duration:    60,
		SubInterval: 5,
		Location:    melbourne,
	})
	if err != nil {
		t.Fatalf("FindTime: %v", err)
	}
	if !res.Found() || len(res.Satellites) == 0 {
		t.Errorf("no satellite visible over 12 hours: %+v", res)
	}
}

type staticCatalog []window.Satellite

func (s staticCatalog) Satellites(context.Context, string) ([]window.Satellite, error) {
	return s, nil
}
