package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"

	"github.com/large-farva/skywindow/internal/app"
	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/config"
	"github.com/large-farva/skywindow/internal/ctl"
	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/window"
)

// local runs searches in-process, without a daemon.
type local struct {
	cfg       config.Config
	log       logger.Logger
	loader    *catalog.Loader
	redis     *redis.Client
	predictor *predict.Predictor
	out       ctl.Output
}

func newLocal(configPath, logLevel string, out ctl.Output) (*local, error) {
	path := configPath
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: config: %w", window.ErrInvalidArgument, err)
	}

	log, err := logger.New(logLevel, true)
	if err != nil {
		return nil, err
	}

	loader, rdb, err := app.NewLoader(cfg, log)
	if err != nil {
		return nil, err
	}

	return &local{
		cfg:       cfg,
		log:       log,
		loader:    loader,
		redis:     rdb,
		predictor: predict.New(cfg, loader, nil, log.Named("predict")),
		out:       out,
	}, nil
}

func (l *local) close() {
	if l.redis != nil {
		_ = l.redis.Close()
	}
	_ = l.log.Sync()
}

func parseFlags(flags *pflag.FlagSet, args []string) error {
	if err := flags.Parse(args); err != nil {
		return fmt.Errorf("%w: %w", window.ErrInvalidArgument, err)
	}
	if flags.NArg() > 0 {
		return fmt.Errorf("%w: unexpected argument %q", window.ErrInvalidArgument, flags.Arg(0))
	}
	return nil
}

func (l *local) observer(ctx context.Context, loc string) (window.Observer, error) {
	if loc == "" {
		return l.predictor.ResolveLocation(ctx), nil
	}
	return window.ParseLocation(loc)
}

func (l *local) find(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("find", pflag.ContinueOnError)
	var (
		cat         = flags.String("catalog", "", "TLE catalog URL, file path, or embedded:visual")
		start       = flags.String("start", "", "First window start (default: now, UTC)")
		windows     = flags.String("windows", "", "Number of windows")
		duration    = flags.String("duration", "", "Window length in minutes")
		subInterval = flags.String("sub-interval", "", "Sampling step in minutes")
		cumulative  = flags.Bool("cumulative", false, "Count every satellite seen during a window")
		location    = flags.String("location", "", "Observer as lat,lon[,alt]")
	)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	req := l.predictor.RequestAt(time.Now())
	var err error
	if *cat != "" {
		req.CatalogURL = *cat
	}
	if *start != "" {
		if req.Start, err = window.ParseInstant(*start); err != nil {
			return err
		}
	}
	if *windows != "" {
		if req.Windows, err = window.ParseCount("windows", *windows); err != nil {
			return err
		}
	}
	if *duration != "" {
		if req.Duration, err = window.ParseCount("duration", *duration); err != nil {
			return err
		}
	}
	if *subInterval != "" {
		if req.SubInterval, err = window.ParseCount("sub-interval", *subInterval); err != nil {
			return err
		}
	}
	if flags.Changed("cumulative") {
		req.Cumulative = *cumulative
	}
	if req.Location, err = l.observer(ctx, *location); err != nil {
		return err
	}

	s, err := l.predictor.FindBest(ctx, req)
	if err != nil {
		return err
	}
	return ctl.PrintSearch(l.out, s)
}

func (l *local) visible(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("visible", pflag.ContinueOnError)
	var (
		cat      = flags.String("catalog", "", "TLE catalog URL, file path, or embedded:visual")
		at       = flags.String("at", "", "Instant to sample (default: now, UTC)")
		location = flags.String("location", "", "Observer as lat,lon[,alt]")
	)
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	instant := time.Now().UTC()
	if *at != "" {
		t, err := window.ParseInstant(*at)
		if err != nil {
			return err
		}
		instant = t
	}
	obs, err := l.observer(ctx, *location)
	if err != nil {
		return err
	}

	sightings, err := l.predictor.Visible(ctx, l.catalog(*cat), obs, instant)
	if err != nil {
		return err
	}
	return ctl.PrintVisible(l.out, ctl.VisibleList{At: instant, Location: obs, Satellites: sightings})
}

func (l *local) passes(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("passes", pflag.ContinueOnError)
	var (
		cat        = flags.String("catalog", "", "TLE catalog URL, file path, or embedded:visual")
		from       = flags.String("from", "", "Start of the search range (default: now, UTC)")
		hours      = flags.Int("hours", 24, "Length of the search range in hours (1-168)")
		satellites = flags.StringSlice("satellite", nil, "Only these satellites (repeatable)")
		location   = flags.String("location", "", "Observer as lat,lon[,alt]")
	)
	if err := parseFlags(flags, args); err != nil {
		return err
	}
	if *hours < 1 || *hours > 168 {
		return fmt.Errorf("%w: hours must be 1-168, got %d", window.ErrInvalidArgument, *hours)
	}

	start := time.Now().UTC()
	if *from != "" {
		t, err := window.ParseInstant(*from)
		if err != nil {
			return err
		}
		start = t
	}
	obs, err := l.observer(ctx, *location)
	if err != nil {
		return err
	}
	end := start.Add(time.Duration(*hours) * time.Hour)

	passes, err := l.predictor.Passes(ctx, l.catalog(*cat), *satellites, obs, start, end)
	if err != nil {
		return err
	}
	return ctl.PrintPasses(l.out, ctl.PassList{From: start, To: end, Location: obs, Passes: passes})
}

func (l *local) listCatalog(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("catalog", pflag.ContinueOnError)
	cat := flags.String("catalog", "", "TLE catalog URL, file path, or embedded:visual")
	if err := parseFlags(flags, args); err != nil {
		return err
	}

	src := l.catalog(*cat)
	entries, err := l.loader.Entries(ctx, src)
	if err != nil {
		return err
	}
	return ctl.PrintCatalog(l.out, src, entries)
}

func (l *local) catalog(flag string) string {
	if flag != "" {
		return flag
	}
	return l.cfg.Catalog.URL
}
