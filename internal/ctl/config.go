package ctl

import (
	"fmt"
	"strings"

	"github.com/large-farva/skywindow/internal/config"
)

// Config fetches and displays the daemon's running configuration.
func Config(baseURL string, out Output) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var cfg config.Config
	if err := getJSON(baseURL, "/api/config", &cfg); err != nil {
		return err
	}
	return PrintConfig(out, cfg)
}

// PrintConfig renders a configuration section by section.
func PrintConfig(out Output, cfg config.Config) error {
	return render(out, cfg, func() {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  CONFIGURATION"))
		fmt.Fprintln(stdout, rule(50))

		section := func(name string) {
			fmt.Fprintf(stdout, "\n  %s\n", colorize(bold, "["+name+"]"))
		}
		kv := func(key string, val any) {
			fmt.Fprintf(stdout, "    %s %v\n", colorize(dim, padRight(key+":", 22)), val)
		}

		section("catalog")
		kv("url", cfg.Catalog.URL)
		kv("timeout_seconds", cfg.Catalog.TimeoutSeconds)
		kv("cache", cfg.Catalog.Cache)
		kv("cache_max_age_hours", cfg.Catalog.CacheMaxAgeHours)
		kv("cache_dir", cfg.Catalog.CacheDir)

		if cfg.Catalog.Cache == config.CacheRedis {
			section("redis")
			kv("addr", cfg.Redis.Addr)
			kv("db", cfg.Redis.DB)
		}

		section("observer")
		kv("latitude", cfg.Observer.Latitude)
		kv("longitude", cfg.Observer.Longitude)
		kv("altitude", cfg.Observer.Altitude)
		kv("use_gpsd", cfg.Observer.UseGPSD)
		kv("gpsd_host", cfg.Observer.GPSDHost)

		section("search")
		kv("windows", cfg.Search.Windows)
		kv("duration_minutes", cfg.Search.DurationMinutes)
		kv("sub_interval_minutes", cfg.Search.SubIntervalMinutes)
		kv("cumulative", cfg.Search.Cumulative)
		kv("backend", cfg.Search.Backend)
		kv("refresh_minutes", cfg.Search.RefreshMinutes)
		kv("max_samples", cfg.Search.MaxSamples)

		section("logging")
		kv("level", cfg.Logging.Level)
		kv("pretty", cfg.Logging.Pretty)

		section("server")
		kv("bind", cfg.Server.Bind)
		if len(cfg.Server.CatalogAllow) > 0 {
			kv("catalog_allow", strings.Join(cfg.Server.CatalogAllow, ", "))
		}

		fmt.Fprintln(stdout)
	})
}
