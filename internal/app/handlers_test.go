package app

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/config"
)

func testApp(t *testing.T, mutate ...func(*config.Config)) (*App, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Catalog.URL = catalog.EmbeddedVisual
	cfg.Search.Windows = 2
	cfg.Search.SubIntervalMinutes = 10
	cfg.Redis.Password = "hunter2"
	for _, m := range mutate {
		m(&cfg)
	}

	a, err := New(Options{Cfg: cfg})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return a, srv
}

func runScheduler(t *testing.T, a *App) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.scheduler.Run(ctx, a.transition)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func getJSON(t *testing.T, url string, wantCode int) map[string]any {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	return decode(t, resp, wantCode)
}

func postJSON(t *testing.T, url, body string, wantCode int) map[string]any {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	defer resp.Body.Close()
	return decode(t, resp, wantCode)
}

func decode(t *testing.T, resp *http.Response, wantCode int) map[string]any {
	t.Helper()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantCode {
		t.Fatalf("%s %s: status %d, want %d: %s", resp.Request.Method, resp.Request.URL, resp.StatusCode, wantCode, b)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	_, srv := testApp(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(b) != "ok\n" {
		t.Errorf("healthz = %d %q", resp.StatusCode, b)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("Accept", "application/json")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body := decode(t, resp, http.StatusOK)
	if body["healthy"] != true {
		t.Errorf("detailed health = %v", body)
	}
}

func TestStatusAndVersion(t *testing.T) {
	_, srv := testApp(t)

	status := getJSON(t, srv.URL+"/api/status", http.StatusOK)
	if status["name"] != "skywindow" || status["state"] != StateBooting {
		t.Errorf("status = %v", status)
	}

	version := getJSON(t, srv.URL+"/api/version", http.StatusOK)
	if version["version"] != Version {
		t.Errorf("version = %v", version)
	}
}

func TestConfigHidesRedisPassword(t *testing.T) {
	_, srv := testApp(t)
	cfg := getJSON(t, srv.URL+"/api/config", http.StatusOK)
	b, _ := json.Marshal(cfg)
	if strings.Contains(string(b), "hunter2") {
		t.Errorf("config leaks the redis password: %s", b)
	}
}

func TestFindGet(t *testing.T) {
	_, srv := testApp(t)

	body := getJSON(t, srv.URL+"/api/find?start=2025-02-14T08:00:00Z&windows=3&cumulative=true", http.StatusOK)
	if body["id"] == "" {
		t.Error("search has no id")
	}
	req := body["request"].(map[string]any)
	if req["windows"] != float64(3) || req["policy"] != "cumulative" {
		t.Errorf("request = %v", req)
	}
	if req["start"] != "2025-02-14T08:00:00Z" {
		t.Errorf("start = %v", req["start"])
	}
	if body["catalog"] != float64(14) {
		t.Errorf("catalog size = %v", body["catalog"])
	}
}

func TestFindPost(t *testing.T) {
	_, srv := testApp(t)

	body := postJSON(t, srv.URL+"/api/find",
		`{"start":"2025-02-14 08:00","windows":1,"location":{"latitude":51.48,"longitude":0}}`,
		http.StatusOK)
	req := body["request"].(map[string]any)
	loc := req["location"].(map[string]any)
	if loc["latitude"] != 51.48 || req["windows"] != float64(1) {
		t.Errorf("request = %v", req)
	}

	postJSON(t, srv.URL+"/api/find", `{"windowz":1}`, http.StatusBadRequest)
}

func TestFindErrors(t *testing.T) {
	_, srv := testApp(t)

	cases := []struct {
		name  string
		query string
		code  int
	}{
		{"zero windows", "windows=0", http.StatusBadRequest},
		{"bad integer", "duration=ten", http.StatusBadRequest},
		{"sub interval too long", "duration=10&sub_interval=11", http.StatusBadRequest},
		{"bad location", "location=91,0", http.StatusBadRequest},
		{"bad start", "start=yesterday", http.StatusBadRequest},
		{"unreachable catalog", "catalog=http://127.0.0.1:1/tle.txt", http.StatusBadGateway},
		{"unknown handle", "catalog=embedded:nope", http.StatusBadGateway},
		{"too many samples", "duration=100000&sub_interval=1", http.StatusBadRequest},
		{"horizon overflows", "windows=1000000&duration=100000000&sub_interval=100000000", http.StatusBadRequest},
		{"local path catalog", "catalog=/etc/passwd", http.StatusBadRequest},
		{"file url catalog", "catalog=file:///etc/passwd", http.StatusBadRequest},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := getJSON(t, srv.URL+"/api/find?"+tc.query, tc.code)
			if body["ok"] != false || body["error"] == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestFindSampleCap(t *testing.T) {
	_, srv := testApp(t, func(c *config.Config) { c.Search.MaxSamples = 12 })

	// 2 windows of 60/10 samples is exactly the cap.
	getJSON(t, srv.URL+"/api/find?start=2025-02-14T08:00:00Z", http.StatusOK)

	body := getJSON(t, srv.URL+"/api/find?windows=3", http.StatusBadRequest)
	if msg, _ := body["error"].(string); !strings.Contains(msg, "18 samples") || !strings.Contains(msg, "limit is 12") {
		t.Errorf("error = %v", body["error"])
	}
	postJSON(t, srv.URL+"/api/find", `{"sub_interval_minutes":1}`, http.StatusBadRequest)
}

func TestCatalogSourceRestricted(t *testing.T) {
	_, srv := testApp(t, func(c *config.Config) {
		c.Server.CatalogAllow = []string{"https://celestrak.org/"}
	})

	for _, path := range []string{
		"/api/catalog?catalog=/etc/passwd",
		"/api/catalog?catalog=file:///etc/passwd",
		"/api/visible?catalog=../skywindow.toml&location=0,0",
		"/api/passes?catalog=/var/cache/skywindow/x&location=0,0",
		"/api/find?catalog=http://169.254.169.254/latest/meta-data",
	} {
		getJSON(t, srv.URL+path, http.StatusBadRequest)
	}
	postJSON(t, srv.URL+"/api/find", `{"catalog":"/etc/shadow"}`, http.StatusBadRequest)

	// The configured catalog and embedded handles stay reachable.
	getJSON(t, srv.URL+"/api/catalog?catalog="+catalog.EmbeddedVisual, http.StatusOK)
}

func TestFindWithLocationSkipsGPSD(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	var dials atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			dials.Add(1)
			_ = conn.Close()
		}
	}()

	_, srv := testApp(t, func(c *config.Config) {
		c.Observer.UseGPSD = true
		c.Observer.GPSDHost = ln.Addr().String()
	})

	getJSON(t, srv.URL+"/api/find?start=2025-02-14T08:00:00Z&location=51.48,0", http.StatusOK)
	postJSON(t, srv.URL+"/api/find",
		`{"start":"2025-02-14T08:00:00Z","location":{"latitude":51.48,"longitude":0}}`, http.StatusOK)

	if n := dials.Load(); n != 0 {
		t.Errorf("gpsd dialed %d times for requests that named a location", n)
	}
}

func TestCatalog(t *testing.T) {
	_, srv := testApp(t)
	body := getJSON(t, srv.URL+"/api/catalog", http.StatusOK)
	if body["count"] != float64(14) || body["source"] != catalog.EmbeddedVisual {
		t.Errorf("catalog = count %v source %v", body["count"], body["source"])
	}
}

func TestVisible(t *testing.T) {
	_, srv := testApp(t)
	body := getJSON(t, srv.URL+"/api/visible?at=2025-02-14T09:00:00Z&location=-37.9,145.1", http.StatusOK)
	sats := body["satellites"].([]any)
	if body["count"] != float64(len(sats)) {
		t.Errorf("count %v != %d satellites", body["count"], len(sats))
	}
	getJSON(t, srv.URL+"/api/visible?at=noon", http.StatusBadRequest)
}

func TestPassesValidation(t *testing.T) {
	_, srv := testApp(t)
	getJSON(t, srv.URL+"/api/passes?hours=0", http.StatusBadRequest)
	getJSON(t, srv.URL+"/api/passes?hours=1000", http.StatusBadRequest)

	body := getJSON(t, srv.URL+"/api/passes?from=2025-02-14T00:00:00Z&hours=12&satellite=ISS%20(ZARYA)", http.StatusOK)
	for _, p := range body["passes"].([]any) {
		if p.(map[string]any)["satellite"] != "ISS (ZARYA)" {
			t.Errorf("unexpected pass %v", p)
		}
	}
}

func TestSchedulerCommands(t *testing.T) {
	a, srv := testApp(t)
	runScheduler(t, a)

	deadline := time.Now().Add(5 * time.Second)
	for a.scheduler.Snapshot().Runs == 0 {
		if time.Now().After(deadline) {
			t.Fatal("scheduler never searched")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if res := postJSON(t, srv.URL+"/api/pause", "", http.StatusOK); res["ok"] != true {
		t.Errorf("pause = %v", res)
	}
	best := getJSON(t, srv.URL+"/api/best", http.StatusOK)
	if best["paused"] != true || best["best"] == nil {
		t.Errorf("best = %v", best)
	}

	res := postJSON(t, srv.URL+"/api/refresh", "", http.StatusOK)
	if res["search"] == nil {
		t.Errorf("refresh = %v", res)
	}

	if res := postJSON(t, srv.URL+"/api/resume", "", http.StatusOK); res["message"] != "scheduler resumed" {
		t.Errorf("resume = %v", res)
	}
}

func TestCommandWithoutScheduler(t *testing.T) {
	a, _ := testApp(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodPost, "/api/pause", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, srv := testApp(t)
	getJSON(t, srv.URL+"/api/status", http.StatusOK)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), `skywindow_http_requests_total{code="200",method="GET",path="/api/status"}`) {
		t.Errorf("metrics missing the status route counter")
	}
}

func TestUnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Search.Backend = "kepler"
	if _, err := New(Options{Cfg: cfg}); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
