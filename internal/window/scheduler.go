package window

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/large-farva/skywindow/internal/logger"
)

// Result is the best window of a search.
type Result struct {
	// Start is the best window's start, or zero when no window saw any
	// satellite.
	Start      time.Time
	Satellites []string
	Policy     Policy
	// Windows is how many windows were evaluated.
	Windows int
}

// Found reports whether any window saw a satellite.
func (r Result) Found() bool {
	return !r.Start.IsZero()
}

// WindowReport describes one evaluated window, for progress reporting.
type WindowReport struct {
	Index      int
	Window     Window
	Evaluation Evaluation
	// Best is true when this window replaced the running best.
	Best bool
}

// Scheduler runs the horizon search. Catalog is required; the rest is
// optional.
type Scheduler struct {
	Catalog CatalogSource
	Log     logger.Logger

	// OnCatalog is called once the catalog is loaded.
	OnCatalog func(satellites int, took time.Duration)
	// OnWindow is called after each window is evaluated.
	OnWindow func(WindowReport)
}

// FindTime validates req, loads the catalog once, and returns the first
// window with the largest visible-satellite count.
func (s *Scheduler) FindTime(ctx context.Context, req Request) (Result, error) {
	plan, err := req.Validate()
	if err != nil {
		return Result{}, err
	}
	if s.Catalog == nil {
		return Result{}, errors.New("scheduler has no catalog source")
	}

	log := s.logger()

	started := time.Now()
	sats, err := s.Catalog.Satellites(ctx, plan.CatalogURL)
	if err != nil {
		return Result{}, fmt.Errorf("load catalog: %w", err)
	}
	took := time.Since(started)

	log.Debug("catalog loaded",
		logger.String("catalog", plan.CatalogURL),
		logger.Int("satellites", len(sats)),
		logger.Duration("took", took))
	if s.OnCatalog != nil {
		s.OnCatalog(len(sats), took)
	}

	return s.Search(ctx, plan, sats)
}

// Search runs the horizon scan over an already loaded satellite list.
func (s *Scheduler) Search(ctx context.Context, plan Plan, sats []Satellite) (Result, error) {
	log := s.logger()

	var (
		bestStart time.Time
		best      []Satellite
	)

	for i := range plan.Windows {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		w := plan.Window(i)
		ev, err := Evaluate(plan.Policy, sats, plan.Observer, w)
		if err != nil {
			return Result{}, fmt.Errorf("window %d at %s: %w", i, w.Start.Format(time.RFC3339), err)
		}

		improved := ev.Count() > len(best)
		if improved {
			bestStart = w.Start
			best = ev.Satellites
		}

		log.Debug("window evaluated",
			logger.Int("index", i),
			logger.Time("start", w.Start),
			logger.Int("visible", ev.Count()),
			logger.Bool("best", improved))
		if s.OnWindow != nil {
			s.OnWindow(WindowReport{Index: i, Window: w, Evaluation: ev, Best: improved})
		}
	}

	names, err := Names(best)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Start:      bestStart,
		Satellites: names,
		Policy:     plan.Policy,
		Windows:    plan.Windows,
	}, nil
}

func (s *Scheduler) logger() logger.Logger {
	if s.Log == nil {
		return logger.Nop()
	}
	return s.Log
}
