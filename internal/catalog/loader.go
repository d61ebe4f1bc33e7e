package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/window"
)

// Builder turns a catalog entry into propagatable elements.
type Builder interface {
	Load(Entry) (window.Elements, error)
}

// Loader is the window.CatalogSource used by the scheduler: fetch, parse,
// dedupe by name, then build elements with the configured backend.
//
// Every call fetches the source again unless a Cache is set. A failed fetch
// is always an error; a stale cached copy is never substituted for it.
type Loader struct {
	Fetcher *Fetcher
	Builder Builder
	Cache   Cache // optional
	Log     logger.Logger

	// OnFetch is called after every successful fetch.
	OnFetch func(src string, took time.Duration, bytes int)
}

var _ window.CatalogSource = (*Loader)(nil)

// Satellites implements window.CatalogSource.
func (l *Loader) Satellites(ctx context.Context, src string) ([]window.Satellite, error) {
	sats, _, err := l.Build(ctx, src)
	return sats, err
}

// Build loads src and builds elements for every entry. Entries the backend
// rejects are logged, left out of sats, and named in rejected.
func (l *Loader) Build(ctx context.Context, src string) (sats []window.Satellite, rejected []string, err error) {
	if l.Builder == nil {
		return nil, nil, errors.New("catalog loader has no ephemeris backend")
	}

	entries, err := l.Entries(ctx, src)
	if err != nil {
		return nil, nil, err
	}

	log := l.logger()
	sats = make([]window.Satellite, 0, len(entries))
	for _, e := range entries {
		el, err := l.Builder.Load(e)
		if err != nil {
			log.Warn("skipping satellite the backend rejected",
				logger.String("name", e.Name),
				logger.Int("norad_id", e.NoradID),
				logger.Error(err))
			rejected = append(rejected, e.Name)
			continue
		}
		sats = append(sats, window.Satellite{Name: e.Name, Elements: el})
	}
	if len(rejected) > 0 {
		log.Warn("backend rejected catalog entries",
			logger.String("source", src),
			logger.Int("rejected", len(rejected)),
			logger.Int("loaded", len(sats)))
	}
	return sats, rejected, nil
}

// Entries fetches src and returns its deduplicated entries.
func (l *Loader) Entries(ctx context.Context, src string) ([]Entry, error) {
	raw, err := l.raw(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", window.ErrInvalidArgument, err)
	}

	entries, err := Parse(raw, l.logger())
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", src, err)
	}
	return Dedupe(entries), nil
}

func (l *Loader) raw(ctx context.Context, src string) ([]byte, error) {
	log := l.logger()
	cacheable := l.Cache != nil && !strings.HasPrefix(src, "embedded:")

	if cacheable {
		b, ok, err := l.Cache.Get(ctx, src)
		switch {
		case err != nil:
			log.Warn("catalog cache read failed", logger.String("source", src), logger.Error(err))
		case ok:
			log.Debug("catalog cache hit", logger.String("source", src))
			return b, nil
		}
	}

	fetcher := l.Fetcher
	if fetcher == nil {
		fetcher = NewFetcher(0)
	}

	started := time.Now()
	b, err := fetcher.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	took := time.Since(started)

	log.Info("catalog fetched",
		logger.String("source", src),
		logger.Int("bytes", len(b)),
		logger.Duration("took", took))
	if l.OnFetch != nil {
		l.OnFetch(src, took, len(b))
	}

	if cacheable {
		if err := l.Cache.Put(ctx, src, b); err != nil {
			log.Warn("catalog cache write failed", logger.String("source", src), logger.Error(err))
		}
	}
	return b, nil
}

func (l *Loader) logger() logger.Logger {
	if l.Log == nil {
		return logger.Nop()
	}
	return l.Log
}
