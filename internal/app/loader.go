package app

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/config"
	"github.com/large-farva/skywindow/internal/ephemeris"
	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/metrics"
)

// NewLoader builds the catalog loader described by cfg: the configured
// ephemeris backend, fetch timeout, and optional cache. The redis client is
// returned so the caller can close it; it is nil unless cache = "redis".
func NewLoader(cfg config.Config, log logger.Logger) (*catalog.Loader, *redis.Client, error) {
	backend, err := ephemeris.ForName(cfg.Search.Backend)
	if err != nil {
		return nil, nil, err
	}

	l := &catalog.Loader{
		Fetcher: catalog.NewFetcher(time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second),
		Builder: backend,
		Log:     log.Named("catalog"),
		OnFetch: func(_ string, took time.Duration, _ int) {
			metrics.CatalogFetched(took)
		},
	}

	maxAge := time.Duration(cfg.Catalog.CacheMaxAgeHours) * time.Hour
	var rdb *redis.Client

	switch cfg.Catalog.Cache {
	case config.CacheDisk:
		l.Cache = catalog.NewDiskCache(cfg.Catalog.CacheDir, maxAge)
	case config.CacheRedis:
		rdb = redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		l.Cache = catalog.NewRedisCache(rdb, maxAge)
	}

	log.Debug("catalog loader ready",
		logger.String("backend", backend.Name()),
		logger.String("cache", cfg.Catalog.Cache))
	return l, rdb, nil
}
