package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skywindow.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("Validate(Default()) = %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Windows != 24 || cfg.Search.DurationMinutes != 60 || cfg.Search.SubIntervalMinutes != 1 {
		t.Errorf("search = %+v, want 24/60/1", cfg.Search)
	}
	if cfg.Observer.Latitude != -37.910496 || cfg.Observer.Longitude != 145.134021 {
		t.Errorf("observer = %+v", cfg.Observer)
	}
}

func TestLoadLayersFileOnDefaults(t *testing.T) {
	path := writeConfig(t, `
[catalog]
url = "embedded:visual"
cache = "disk"
cache_dir = "/tmp/skywindow"

[search]
windows = 6
cumulative = true
backend = "go-satellite"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.URL != "embedded:visual" || cfg.Catalog.Cache != CacheDisk {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Search.Windows != 6 || !cfg.Search.Cumulative || cfg.Search.Backend != "go-satellite" {
		t.Errorf("search = %+v", cfg.Search)
	}
	// Untouched fields keep their defaults.
	if cfg.Search.DurationMinutes != 60 || cfg.Catalog.TimeoutSeconds != 30 {
		t.Errorf("defaults lost: %+v %+v", cfg.Search, cfg.Catalog)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[search]\nwindows = 6\n")
	t.Setenv("SKYWINDOW_SEARCH_WINDOWS", "48")
	t.Setenv("SKYWINDOW_OBSERVER_LATITUDE", "51.4779")
	t.Setenv("SKYWINDOW_OBSERVER_LONGITUDE", "-0.0015")
	t.Setenv("SKYWINDOW_LOGGING_LEVEL", "debug")
	t.Setenv("SKYWINDOW_REDIS_PASSWORD", "hunter2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Search.Windows != 48 {
		t.Errorf("windows = %d, want 48", cfg.Search.Windows)
	}
	if cfg.Observer.Latitude != 51.4779 || cfg.Observer.Longitude != -0.0015 {
		t.Errorf("observer = %+v", cfg.Observer)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Redis.Password != "hunter2" {
		t.Errorf("redis password not taken from environment")
	}
}

func TestEnvCatalogAllowList(t *testing.T) {
	t.Setenv("SKYWINDOW_SERVER_CATALOG_ALLOW", "https://celestrak.org/,https://tle.example.net/")
	t.Setenv("SKYWINDOW_SEARCH_MAX_SAMPLES", "5000")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Server.CatalogAllow; len(got) != 2 || got[1] != "https://tle.example.net/" {
		t.Errorf("catalog_allow = %q", got)
	}
	if cfg.Search.MaxSamples != 5000 {
		t.Errorf("max_samples = %d, want 5000", cfg.Search.MaxSamples)
	}
}

func TestEnvRejectsBadValues(t *testing.T) {
	t.Setenv("SKYWINDOW_SEARCH_WINDOWS", "lots")
	if _, err := Load(""); err == nil {
		t.Fatal("Load accepted a non-numeric window count")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
	if _, err := Load(writeConfig(t, "[search\nwindows = ")); err == nil {
		t.Error("Load of malformed TOML succeeded")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty url", func(c *Config) { c.Catalog.URL = " " }, "catalog.url"},
		{"timeout", func(c *Config) { c.Catalog.TimeoutSeconds = 0 }, "catalog.timeout_seconds"},
		{"cache kind", func(c *Config) { c.Catalog.Cache = "memcached" }, "catalog.cache"},
		{"disk without dir", func(c *Config) { c.Catalog.Cache = CacheDisk; c.Catalog.CacheDir = "" }, "catalog.cache_dir"},
		{"redis without addr", func(c *Config) { c.Catalog.Cache = CacheRedis; c.Redis.Addr = "" }, "redis.addr"},
		{"cache age", func(c *Config) { c.Catalog.Cache = CacheDisk; c.Catalog.CacheMaxAgeHours = 0 }, "catalog.cache_max_age_hours"},
		{"latitude", func(c *Config) { c.Observer.Latitude = -100 }, "observer.latitude"},
		{"longitude", func(c *Config) { c.Observer.Longitude = 200 }, "observer.longitude"},
		{"gpsd host", func(c *Config) { c.Observer.UseGPSD = true; c.Observer.GPSDHost = "" }, "observer.gpsd_host"},
		{"windows", func(c *Config) { c.Search.Windows = 0 }, "search.windows"},
		{"duration", func(c *Config) { c.Search.DurationMinutes = -1 }, "search.duration_minutes"},
		{"sub-interval", func(c *Config) { c.Search.SubIntervalMinutes = 61 }, "search.sub_interval_minutes"},
		{"backend", func(c *Config) { c.Search.Backend = "skyfield" }, "search.backend"},
		{"refresh", func(c *Config) { c.Search.RefreshMinutes = 0 }, "search.refresh_minutes"},
		{"max samples", func(c *Config) { c.Search.MaxSamples = 0 }, "search.max_samples"},
		{"default search over cap", func(c *Config) { c.Search.MaxSamples = 24*60 - 1 }, "search.max_samples"},
		{"catalog allow scheme", func(c *Config) { c.Server.CatalogAllow = []string{"file:///srv/tle"} }, "server.catalog_allow"},
		{"level", func(c *Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"bind", func(c *Config) { c.Server.Bind = "" }, "server.bind"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate succeeded")
			}
			if !strings.HasPrefix(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to name %s", err, tt.want)
			}
		})
	}
}
