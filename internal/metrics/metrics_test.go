package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSearchFinished(t *testing.T) {
	before := testutil.ToFloat64(searchesTotal.WithLabelValues("peak", OutcomeFound))
	SearchFinished("peak", OutcomeFound)
	SearchFinished("peak", OutcomeFound)
	after := testutil.ToFloat64(searchesTotal.WithLabelValues("peak", OutcomeFound))
	if after-before != 2 {
		t.Errorf("searches grew by %v, want 2", after-before)
	}
}

func TestWindowEvaluated(t *testing.T) {
	w0 := testutil.ToFloat64(windowsEvaluated)
	s0 := testutil.ToFloat64(samplesTotal)

	WindowEvaluated(60)
	WindowEvaluated(12)

	if d := testutil.ToFloat64(windowsEvaluated) - w0; d != 2 {
		t.Errorf("windows grew by %v, want 2", d)
	}
	if d := testutil.ToFloat64(samplesTotal) - s0; d != 72 {
		t.Errorf("samples grew by %v, want 72", d)
	}
}

func TestCatalogGauges(t *testing.T) {
	CatalogLoaded(163, 2)
	if got := testutil.ToFloat64(catalogSatellites); got != 163 {
		t.Errorf("catalog satellites = %v, want 163", got)
	}
	if got := testutil.ToFloat64(catalogRejected); got != 2 {
		t.Errorf("catalog rejected = %v, want 2", got)
	}
	CatalogFetched(250 * time.Millisecond)
	if n := testutil.CollectAndCount(catalogFetchSeconds); n != 1 {
		t.Errorf("fetch histogram series = %d, want 1", n)
	}
}

func TestMiddlewareLabelsByRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/api/passes/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/api/passes/ISS", "/api/passes/HST", "/wp-admin"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("/api/passes/{name}", "GET", "418")); got != 2 {
		t.Errorf("route counter = %v, want 2", got)
	}
	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "404")); got < 1 {
		t.Errorf("unmatched counter = %v, want >= 1", got)
	}
}
