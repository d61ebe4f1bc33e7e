// Package config handles loading, defaulting, and validation of the skywindow
// TOML configuration file. Every section maps to a typed struct so the rest
// of the codebase gets strong typing without manual key lookups.
//
// Values are layered: Default(), then the TOML file, then SKYWINDOW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "SKYWINDOW_"

// Config is the top-level configuration, mirroring the TOML sections.
type Config struct {
	Catalog  CatalogConfig  `toml:"catalog"  json:"catalog"  yaml:"catalog"  envPrefix:"CATALOG_"`
	Redis    RedisConfig    `toml:"redis"    json:"redis"    yaml:"redis"    envPrefix:"REDIS_"`
	Observer ObserverConfig `toml:"observer" json:"observer" yaml:"observer" envPrefix:"OBSERVER_"`
	Search   SearchConfig   `toml:"search"   json:"search"   yaml:"search"   envPrefix:"SEARCH_"`
	Logging  LoggingConfig  `toml:"logging"  json:"logging"  yaml:"logging"  envPrefix:"LOGGING_"`
	Server   ServerConfig   `toml:"server"   json:"server"   yaml:"server"   envPrefix:"SERVER_"`
}

type CatalogConfig struct {
	URL              string `toml:"url"                 json:"url"                 yaml:"url"                 env:"URL"`
	TimeoutSeconds   int    `toml:"timeout_seconds"     json:"timeout_seconds"     yaml:"timeout_seconds"     env:"TIMEOUT_SECONDS"`
	Cache            string `toml:"cache"               json:"cache"               yaml:"cache"               env:"CACHE"`
	CacheMaxAgeHours int    `toml:"cache_max_age_hours" json:"cache_max_age_hours" yaml:"cache_max_age_hours" env:"CACHE_MAX_AGE_HOURS"`
	CacheDir         string `toml:"cache_dir"           json:"cache_dir"           yaml:"cache_dir"           env:"CACHE_DIR"`
}

type RedisConfig struct {
	Addr     string `toml:"addr"     json:"addr"     yaml:"addr"     env:"ADDR"`
	Username string `toml:"username" json:"username" yaml:"username" env:"USERNAME"`
	Password string `toml:"password" json:"-"        yaml:"-"        env:"PASSWORD"`
	DB       int    `toml:"db"       json:"db"       yaml:"db"       env:"DB"`
}

type ObserverConfig struct {
	Latitude  float64 `toml:"latitude"  json:"latitude"  yaml:"latitude"  env:"LATITUDE"`
	Longitude float64 `toml:"longitude" json:"longitude" yaml:"longitude" env:"LONGITUDE"`
	Altitude  float64 `toml:"altitude"  json:"altitude"  yaml:"altitude"  env:"ALTITUDE"`
	UseGPSD   bool    `toml:"use_gpsd"  json:"use_gpsd"  yaml:"use_gpsd"  env:"USE_GPSD"`
	GPSDHost  string  `toml:"gpsd_host" json:"gpsd_host" yaml:"gpsd_host" env:"GPSD_HOST"`
}

type SearchConfig struct {
	Windows            int    `toml:"windows"              json:"windows"              yaml:"windows"              env:"WINDOWS"`
	DurationMinutes    int    `toml:"duration_minutes"     json:"duration_minutes"     yaml:"duration_minutes"     env:"DURATION_MINUTES"`
	SubIntervalMinutes int    `toml:"sub_interval_minutes" json:"sub_interval_minutes" yaml:"sub_interval_minutes" env:"SUB_INTERVAL_MINUTES"`
	Cumulative         bool   `toml:"cumulative"           json:"cumulative"           yaml:"cumulative"           env:"CUMULATIVE"`
	Backend            string `toml:"backend"              json:"backend"              yaml:"backend"              env:"BACKEND"`
	RefreshMinutes     int    `toml:"refresh_minutes"      json:"refresh_minutes"      yaml:"refresh_minutes"      env:"REFRESH_MINUTES"`
	// MaxSamples caps windows × floor(duration / sub_interval) for one
	// search. Requests over the cap are rejected before any propagation.
	MaxSamples int `toml:"max_samples" json:"max_samples" yaml:"max_samples" env:"MAX_SAMPLES"`
}

type LoggingConfig struct {
	Level  string `toml:"level"  json:"level"  yaml:"level"  env:"LEVEL"`
	Pretty bool   `toml:"pretty" json:"pretty" yaml:"pretty" env:"PRETTY"`
}

type ServerConfig struct {
	Bind string `toml:"bind" json:"bind" yaml:"bind" env:"BIND"`
	// CatalogAllow lists URL prefixes an HTTP client may name as a catalog.
	// Empty allows any http or https URL. Embedded catalogs and catalog.url
	// are always allowed; local paths never are.
	CatalogAllow []string `toml:"catalog_allow" json:"catalog_allow" yaml:"catalog_allow" env:"CATALOG_ALLOW" envSeparator:","`
}

// Cache backends.
const (
	CacheNone  = "none"
	CacheDisk  = "disk"
	CacheRedis = "redis"
)

// Default returns a Config populated with sane defaults. Values here are
// used whenever the TOML file and the environment omit a field.
func Default() Config {
	return Config{
		Catalog: CatalogConfig{
			URL:              "https://celestrak.org/NORAD/elements/gp.php?GROUP=visual&FORMAT=tle",
			TimeoutSeconds:   30,
			Cache:            CacheNone,
			CacheMaxAgeHours: 2,
			CacheDir:         "/var/cache/skywindow",
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Observer: ObserverConfig{
			Latitude:  -37.910496,
			Longitude: 145.134021,
			GPSDHost:  "localhost:2947",
		},
		Search: SearchConfig{
			Windows:            24,
			DurationMinutes:    60,
			SubIntervalMinutes: 1,
			Backend:            "sgp4",
			RefreshMinutes:     15,
			MaxSamples:         100_000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Bind: "127.0.0.1:8080",
		},
	}
}

// Load layers the TOML file at path (skipped when path is empty) and then the
// environment on top of the defaults, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	if err := Validate(cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any SKYWINDOW_* variables that are set.
func ApplyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("environment: %w", err)
	}
	return nil
}

// Validate checks every constraint on cfg.
func Validate(cfg Config) error {
	if strings.TrimSpace(cfg.Catalog.URL) == "" {
		return errors.New("catalog.url must not be empty")
	}
	if cfg.Catalog.TimeoutSeconds < 1 {
		return errors.New("catalog.timeout_seconds must be >= 1")
	}
	switch cfg.Catalog.Cache {
	case CacheNone:
	case CacheDisk:
		if cfg.Catalog.CacheDir == "" {
			return errors.New("catalog.cache_dir must not be empty when catalog.cache is disk")
		}
	case CacheRedis:
		if cfg.Redis.Addr == "" {
			return errors.New("redis.addr must not be empty when catalog.cache is redis")
		}
	default:
		return errors.New("catalog.cache must be one of none, disk, redis")
	}
	if cfg.Catalog.Cache != CacheNone && cfg.Catalog.CacheMaxAgeHours < 1 {
		return errors.New("catalog.cache_max_age_hours must be >= 1")
	}
	if cfg.Redis.DB < 0 {
		return errors.New("redis.db must be >= 0")
	}

	o := cfg.Observer
	if math.IsNaN(o.Latitude) || o.Latitude < -90 || o.Latitude > 90 {
		return errors.New("observer.latitude must be between -90 and 90")
	}
	if math.IsNaN(o.Longitude) || o.Longitude < -180 || o.Longitude > 180 {
		return errors.New("observer.longitude must be between -180 and 180")
	}
	if math.IsNaN(o.Altitude) || math.IsInf(o.Altitude, 0) {
		return errors.New("observer.altitude must be finite")
	}
	if o.UseGPSD && o.GPSDHost == "" {
		return errors.New("observer.gpsd_host must not be empty when observer.use_gpsd is set")
	}

	s := cfg.Search
	if s.Windows < 1 {
		return errors.New("search.windows must be >= 1")
	}
	if s.DurationMinutes < 1 {
		return errors.New("search.duration_minutes must be >= 1")
	}
	if s.SubIntervalMinutes < 1 || s.SubIntervalMinutes > s.DurationMinutes {
		return errors.New("search.sub_interval_minutes must be between 1 and search.duration_minutes")
	}
	switch strings.ToLower(s.Backend) {
	case "sgp4", "go-satellite":
	default:
		return errors.New("search.backend must be sgp4 or go-satellite")
	}
	if s.RefreshMinutes < 1 {
		return errors.New("search.refresh_minutes must be >= 1")
	}
	if s.MaxSamples < 1 {
		return errors.New("search.max_samples must be >= 1")
	}
	if s.Windows > s.MaxSamples/(s.DurationMinutes/s.SubIntervalMinutes) {
		return errors.New("search.max_samples must cover windows × floor(duration_minutes / sub_interval_minutes)")
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New("logging.level must be one of debug, info, warn, error")
	}
	if cfg.Server.Bind == "" {
		return errors.New("server.bind must not be empty")
	}
	for _, prefix := range cfg.Server.CatalogAllow {
		if !strings.HasPrefix(prefix, "http://") && !strings.HasPrefix(prefix, "https://") {
			return errors.New("server.catalog_allow entries must be http or https URL prefixes")
		}
	}
	return nil
}
