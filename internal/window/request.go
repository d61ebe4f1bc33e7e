package window

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Observer is a ground location. Latitude and longitude are degrees,
// altitude is meters above the WGS-84 ellipsoid.
type Observer struct {
	Latitude  float64 `json:"latitude"  yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Altitude  float64 `json:"altitude"  yaml:"altitude"`
}

// Validate checks the observer lies on the globe.
func (o Observer) Validate() error {
	for _, v := range []float64{o.Latitude, o.Longitude, o.Altitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return invalidf("location (%v, %v, %v) is not finite", o.Latitude, o.Longitude, o.Altitude)
		}
	}
	if o.Latitude < -90 || o.Latitude > 90 {
		return invalidf("latitude %v must be in [-90, 90]", o.Latitude)
	}
	if o.Longitude < -180 || o.Longitude > 180 {
		return invalidf("longitude %v must be in [-180, 180]", o.Longitude)
	}
	return nil
}

// Request is everything FindTime needs, as supplied by a caller.
type Request struct {
	CatalogURL  string
	Start       time.Time
	Windows     int
	Duration    int // minutes per window
	SubInterval int // minutes between samples
	Cumulative  bool
	Location    Observer
}

// Plan is a validated Request. Everything downstream of Validate trusts it.
type Plan struct {
	CatalogURL  string
	Start       time.Time // UTC
	Windows     int
	Duration    int
	SubInterval int
	Policy      Policy
	Observer    Observer
}

// maxHorizonMinutes is the longest horizon a time.Duration can span.
const maxHorizonMinutes = int64(math.MaxInt64 / time.Minute)

// Validate checks every precondition of a search before any catalog or
// propagation work happens.
func (r Request) Validate() (Plan, error) {
	if r.Start.IsZero() {
		return Plan{}, invalidf("start time must be set")
	}
	if r.Duration <= 0 {
		return Plan{}, invalidf("duration must be > 0 minutes, got %d", r.Duration)
	}
	if r.Windows <= 0 {
		return Plan{}, invalidf("window count must be > 0, got %d", r.Windows)
	}
	if r.SubInterval <= 0 || r.SubInterval > r.Duration {
		return Plan{}, invalidf("sub-interval must be in (0, %d] minutes, got %d", r.Duration, r.SubInterval)
	}
	if int64(r.Windows) > maxHorizonMinutes/int64(r.Duration) {
		return Plan{}, invalidf("horizon of %d windows × %d minutes is too long", r.Windows, r.Duration)
	}
	if err := r.Location.Validate(); err != nil {
		return Plan{}, err
	}

	return Plan{
		CatalogURL:  r.CatalogURL,
		Start:       r.Start.UTC(),
		Windows:     r.Windows,
		Duration:    r.Duration,
		SubInterval: r.SubInterval,
		Policy:      PolicyFor(r.Cumulative),
		Observer:    r.Location,
	}, nil
}

// SampleCount is the number of position samples per satellite the whole
// search takes: Windows × floor(Duration / SubInterval).
func (p Plan) SampleCount() int64 {
	return int64(p.Windows) * int64(p.Duration/p.SubInterval)
}

// Window returns the i-th window of the plan's horizon.
func (p Plan) Window(i int) Window {
	return Window{
		Start:       p.Start.Add(time.Duration(i) * time.Duration(p.Duration) * time.Minute),
		Duration:    p.Duration,
		SubInterval: p.SubInterval,
	}
}

// instantLayouts are tried in order. Layouts without a zone are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseInstant parses a timestamp. A timestamp without a zone is taken to be
// UTC rather than local time; one with a zone is converted to UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, invalidf("empty time")
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, invalidf("cannot parse time %q", s)
}

// ParseLocation parses "lat,lon" or "lat,lon,alt" and validates the result.
func ParseLocation(s string) (Observer, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 && len(parts) != 3 {
		return Observer{}, invalidf("location %q must be lat,lon", s)
	}

	vals := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Observer{}, invalidf("location %q: %q is not a number", s, p)
		}
		vals[i] = v
	}

	obs := Observer{Latitude: vals[0], Longitude: vals[1]}
	if len(vals) == 3 {
		obs.Altitude = vals[2]
	}
	if err := obs.Validate(); err != nil {
		return Observer{}, err
	}
	return obs, nil
}

// ParseCount parses a positive-integer style argument such as a window count
// or a duration in minutes. Range checks are left to Validate.
func ParseCount(name, s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, invalidf("%s %q is not an integer", name, s)
	}
	return n, nil
}

// ParseFlag parses a boolean argument.
func ParseFlag(name, s string) (bool, error) {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, invalidf("%s %q is not a boolean", name, s)
	}
	return b, nil
}
