// Package metrics exposes Prometheus counters for searches, catalog fetches,
// and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_searches_total",
			Help: "Best-window searches by policy and outcome.",
		},
		[]string{"policy", "outcome"},
	)

	windowsEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywindow_windows_evaluated_total",
		Help: "Observation windows evaluated.",
	})

	samplesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "skywindow_samples_total",
		Help: "Sample instants evaluated across all windows.",
	})

	catalogFetchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "skywindow_catalog_fetch_duration_seconds",
		Help:    "Time to fetch a satellite catalog.",
		Buckets: prometheus.DefBuckets,
	})

	catalogSatellites = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skywindow_catalog_satellites",
		Help: "Satellites in the most recently loaded catalog.",
	})

	catalogRejected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "skywindow_catalog_rejected",
		Help: "Entries of the most recently loaded catalog the ephemeris backend rejected.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "skywindow_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "skywindow_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
)

func init() {
	prometheus.MustRegister(
		searchesTotal,
		windowsEvaluated,
		samplesTotal,
		catalogFetchSeconds,
		catalogSatellites,
		catalogRejected,
		httpRequestsTotal,
		httpDurationSeconds,
	)
}

// Search outcomes.
const (
	OutcomeFound    = "found"
	OutcomeNone     = "none"
	OutcomeInvalid  = "invalid"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// SearchFinished counts one completed search.
func SearchFinished(policy, outcome string) {
	searchesTotal.WithLabelValues(policy, outcome).Inc()
}

// WindowEvaluated counts one window and its samples.
func WindowEvaluated(samples int) {
	windowsEvaluated.Inc()
	samplesTotal.Add(float64(samples))
}

// CatalogFetched records a catalog fetch.
func CatalogFetched(took time.Duration) {
	catalogFetchSeconds.Observe(took.Seconds())
}

// CatalogLoaded records the size of the catalog a search ran against and
// how many of its entries were dropped.
func CatalogLoaded(satellites, rejected int) {
	catalogSatellites.Set(float64(satellites))
	catalogRejected.Set(float64(rejected))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request count and duration per chi route pattern, so
// unmatched paths collapse into one "other" label. The wrapped writer keeps
// http.Hijacker, which the WebSocket upgrade needs.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		route := routeLabel(r)
		httpRequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(code)).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func routeLabel(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "other"
	}
	if p := rctx.RoutePattern(); p != "" {
		return p
	}
	return "other"
}
