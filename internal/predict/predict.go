// Package predict runs best-window searches and pass listings for a ground
// station. It wires the catalog loader, the window scheduler, telemetry, and
// metrics together, and resolves the station location from static config or
// gpsd.
package predict

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/akhenakh/sgp4"
	"github.com/google/uuid"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/config"
	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/metrics"
	"github.com/large-farva/skywindow/internal/telemetry"
	"github.com/large-farva/skywindow/internal/window"
)

// Source is what the predictor needs from a catalog: satellites for the
// search and raw entries for pass listings. *catalog.Loader implements it.
type Source interface {
	window.CatalogSource
	Entries(ctx context.Context, src string) ([]catalog.Entry, error)
	// Build is Satellites that also names the entries the backend rejected.
	Build(ctx context.Context, src string) ([]window.Satellite, []string, error)
}

// Predictor runs searches for one configured station.
type Predictor struct {
	cfg     config.Config
	catalog Source
	pub     telemetry.Publisher
	log     logger.Logger

	// gpsd is swapped out in tests.
	gpsd func(ctx context.Context, addr string, timeout time.Duration) (window.Observer, error)
}

// New returns a predictor. pub may be nil.
func New(cfg config.Config, src Source, pub telemetry.Publisher, log logger.Logger) *Predictor {
	if pub == nil {
		pub = telemetry.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Predictor{cfg: cfg, catalog: src, pub: pub, log: log, gpsd: LocationFromGPSD}
}

// ResolveLocation determines the station position. If use_gpsd is set, it
// tries gpsd first and falls back to the configured coordinates.
func (p *Predictor) ResolveLocation(ctx context.Context) window.Observer {
	static := window.Observer{
		Latitude:  p.cfg.Observer.Latitude,
		Longitude: p.cfg.Observer.Longitude,
		Altitude:  p.cfg.Observer.Altitude,
	}
	if !p.cfg.Observer.UseGPSD {
		return static
	}

	obs, err := p.gpsd(ctx, p.cfg.Observer.GPSDHost, 10*time.Second)
	if err != nil {
		p.log.Warn("gpsd failed, falling back to config", logger.Error(err))
		return static
	}
	msg := fmt.Sprintf("location from gpsd: %.4f, %.4f, %.0fm", obs.Latitude, obs.Longitude, obs.Altitude)
	p.log.Info(msg)
	p.pub.BroadcastJSON(telemetry.NewLogLine("predict", "info", msg))
	return obs
}

// DefaultRequest fills a request from config, starting at now.
func (p *Predictor) DefaultRequest(ctx context.Context, now time.Time) window.Request {
	req := p.RequestAt(now)
	req.Location = p.ResolveLocation(ctx)
	return req
}

// RequestAt is DefaultRequest without a location. Callers that were given
// one skip the gpsd lookup.
func (p *Predictor) RequestAt(now time.Time) window.Request {
	s := p.cfg.Search
	return window.Request{
		CatalogURL:  p.cfg.Catalog.URL,
		Start:       now.UTC(),
		Windows:     s.Windows,
		Duration:    s.DurationMinutes,
		SubInterval: s.SubIntervalMinutes,
		Cumulative:  s.Cumulative,
	}
}

// Search is a finished best-window search.
type Search struct {
	ID       string        `json:"id"        yaml:"id"`
	Request  RequestView   `json:"request"   yaml:"request"`
	Result   ResultView    `json:"result"    yaml:"result"`
	Catalog  int           `json:"catalog"   yaml:"catalog"`
	Rejected int           `json:"rejected"  yaml:"rejected"`
	Elapsed  time.Duration `json:"-"         yaml:"-"`
	Finished time.Time     `json:"finished"  yaml:"finished"`
}

// RequestView is the JSON shape of a window.Request.
type RequestView struct {
	Catalog     string          `json:"catalog"              yaml:"catalog"`
	Start       time.Time       `json:"start"                yaml:"start"`
	Windows     int             `json:"windows"              yaml:"windows"`
	Duration    int             `json:"duration_minutes"     yaml:"duration_minutes"`
	SubInterval int             `json:"sub_interval_minutes" yaml:"sub_interval_minutes"`
	Policy      string          `json:"policy"               yaml:"policy"`
	Location    window.Observer `json:"location"             yaml:"location"`
}

// ResultView is the JSON shape of a window.Result.
type ResultView struct {
	Found      bool       `json:"found"           yaml:"found"`
	Start      *time.Time `json:"start,omitempty" yaml:"start,omitempty"`
	End        *time.Time `json:"end,omitempty"   yaml:"end,omitempty"`
	Satellites []string   `json:"satellites"      yaml:"satellites"`
	Count      int        `json:"count"           yaml:"count"`
}

func viewOf(req window.Request, res window.Result) (RequestView, ResultView) {
	rv := RequestView{
		Catalog:     req.CatalogURL,
		Start:       req.Start.UTC(),
		Windows:     req.Windows,
		Duration:    req.Duration,
		SubInterval: req.SubInterval,
		Policy:      window.PolicyFor(req.Cumulative).String(),
		Location:    req.Location,
	}
	out := ResultView{
		Found:      res.Found(),
		Satellites: res.Satellites,
		Count:      len(res.Satellites),
	}
	if out.Satellites == nil {
		out.Satellites = []string{}
	}
	if res.Found() {
		start := res.Start.UTC()
		end := start.Add(time.Duration(req.Duration) * time.Minute)
		out.Start, out.End = &start, &end
	}
	return rv, out
}

// FindBest runs one search, publishing search_started, window_evaluated and
// search_completed events as it goes.
func (p *Predictor) FindBest(ctx context.Context, req window.Request) (Search, error) {
	id := uuid.NewString()
	policy := window.PolicyFor(req.Cumulative).String()
	started := time.Now()
	var catalogSize, rejected int

	ev := telemetry.NewSearchStarted()
	ev.SearchID = id
	ev.Catalog = req.CatalogURL
	ev.Policy = policy
	ev.Start = req.Start.UTC().Format(time.RFC3339)
	ev.Windows, ev.Duration, ev.SubInterval = req.Windows, req.Duration, req.SubInterval
	ev.Latitude, ev.Longitude = req.Location.Latitude, req.Location.Longitude
	p.pub.BroadcastJSON(ev)

	load := func(ctx context.Context, src string) ([]window.Satellite, error) {
		sats, skipped, err := p.catalog.Build(ctx, src)
		rejected = len(skipped)
		return sats, err
	}

	sched := &window.Scheduler{
		Catalog: window.CatalogFunc(load),
		Log:     p.log.Named("window"),
		OnCatalog: func(n int, _ time.Duration) {
			catalogSize = n
			metrics.CatalogLoaded(n, rejected)
		},
		OnWindow: func(r window.WindowReport) {
			metrics.WindowEvaluated(r.Window.SampleCount())
			we := telemetry.NewWindowEvaluated()
			we.SearchID = id
			we.Index = r.Index
			we.Start = r.Window.Start.UTC().Format(time.RFC3339)
			if !r.Evaluation.Instant.IsZero() {
				we.Instant = r.Evaluation.Instant.UTC().Format(time.RFC3339)
			}
			we.Visible = r.Evaluation.Count()
			we.Best = r.Best
			p.pub.BroadcastJSON(we)
		},
	}

	res, err := sched.FindTime(ctx, req)
	elapsed := time.Since(started)

	done := telemetry.NewSearchCompleted()
	done.SearchID = id
	done.ElapsedMS = elapsed.Milliseconds()
	done.Satellites = []string{}

	if err != nil {
		metrics.SearchFinished(policy, outcomeOf(err))
		done.Error = err.Error()
		p.pub.BroadcastJSON(done)
		p.log.Warn("search failed", logger.String("search_id", id), logger.Error(err))
		return Search{}, err
	}

	rv, out := viewOf(req, res)
	if out.Found {
		metrics.SearchFinished(policy, metrics.OutcomeFound)
		done.Start = out.Start.Format(time.RFC3339)
	} else {
		metrics.SearchFinished(policy, metrics.OutcomeNone)
	}
	done.Found = out.Found
	done.Satellites = out.Satellites
	done.Count = out.Count
	p.pub.BroadcastJSON(done)

	p.log.Info("search completed",
		logger.String("search_id", id),
		logger.String("policy", policy),
		logger.Bool("found", out.Found),
		logger.Int("count", out.Count),
		logger.Int("rejected", rejected),
		logger.Duration("elapsed", elapsed))

	return Search{
		ID:       id,
		Request:  rv,
		Result:   out,
		Catalog:  catalogSize,
		Rejected: rejected,
		Elapsed:  elapsed,
		Finished: time.Now().UTC(),
	}, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, window.ErrInvalidArgument):
		return metrics.OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeError
	}
}

// Sighting is one satellite above the horizon at an instant.
type Sighting struct {
	Name     string  `json:"name"      yaml:"name"`
	Altitude float64 `json:"altitude"  yaml:"altitude"`
	Azimuth  float64 `json:"azimuth"   yaml:"azimuth"`
	Range    float64 `json:"range_km"  yaml:"range_km"`
}

// Visible lists the satellites above the horizon at the given instant,
// highest first.
func (p *Predictor) Visible(ctx context.Context, src string, obs window.Observer, at time.Time) ([]Sighting, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	if at.IsZero() {
		return nil, fmt.Errorf("%w: instant must be set", window.ErrInvalidArgument)
	}

	sats, err := p.catalog.Satellites(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	seen, err := window.SampleSightings(sats, obs, at)
	if err != nil {
		return nil, err
	}

	out := make([]Sighting, len(seen))
	for i, s := range seen {
		out[i] = Sighting{
			Name:     s.Satellite.Name,
			Altitude: s.Position.Altitude,
			Azimuth:  s.Position.Azimuth,
			Range:    s.Position.Range,
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Altitude > out[j].Altitude })
	return out, nil
}

// Pass describes a single predicted overhead pass, from acquisition of
// signal (AOS) through loss of signal (LOS).
type Pass struct {
	Satellite   string        `json:"satellite"     yaml:"satellite"`
	NoradID     int           `json:"norad_id"      yaml:"norad_id"`
	AOS         time.Time     `json:"aos"           yaml:"aos"`
	LOS         time.Time     `json:"los"           yaml:"los"`
	MaxElev     float64       `json:"max_elevation" yaml:"max_elevation"`
	MaxElevTime time.Time     `json:"max_elevation_time" yaml:"max_elevation_time"`
	AOSAzimuth  float64       `json:"aos_azimuth"   yaml:"aos_azimuth"`
	LOSAzimuth  float64       `json:"los_azimuth"   yaml:"los_azimuth"`
	Duration    time.Duration `json:"duration"      yaml:"duration"`
}

// Passes lists the passes of the named satellites between from and to,
// sorted by AOS. An empty names list means every satellite in the catalog.
func (p *Predictor) Passes(ctx context.Context, src string, names []string, obs window.Observer, from, to time.Time) ([]Pass, error) {
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: pass range end %s is not after start %s",
			window.ErrInvalidArgument, to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	entries, err := p.catalog.Entries(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var all []Pass
	for _, e := range entries {
		if len(wanted) > 0 && !wanted[e.Name] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		tle, err := sgp4.ParseTLE(e.Text())
		if err != nil {
			p.log.Warn("skipping unparsable TLE", logger.String("name", e.Name), logger.Error(err))
			continue
		}

		raw, err := tle.GeneratePasses(
			obs.Latitude, obs.Longitude, obs.Altitude,
			from.UTC(), to.UTC(),
			10, // seconds per propagation step
		)
		if err != nil {
			p.log.Warn("pass prediction failed", logger.String("name", e.Name), logger.Error(err))
			continue
		}

		for _, rp := range raw {
			all = append(all, Pass{
				Satellite:   e.Name,
				NoradID:     e.NoradID,
				AOS:         rp.AOS,
				LOS:         rp.LOS,
				MaxElev:     rp.MaxElevation,
				MaxElevTime: rp.MaxElevationTime,
				AOSAzimuth:  rp.AOSAzimuth,
				LOSAzimuth:  rp.LOSAzimuth,
				Duration:    rp.Duration,
			})
		}
	}

	sort.Slice(all, func(i, j int) bool { return all[i].AOS.Before(all[j].AOS) })
	return all, nil
}
