package ctl

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"gopkg.in/yaml.v3"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/scheduler"
	"github.com/large-farva/skywindow/internal/telemetry"
	"github.com/large-farva/skywindow/internal/window"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := stdout
	stdout = buf
	t.Cleanup(func() { stdout = prev })
	return buf
}

func sampleSearch() predict.Search {
	start := time.Date(2025, 2, 14, 8, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	return predict.Search{
		ID: "0f8e7d6c-5b4a-4321-9876-543210fedcba",
		Request: predict.RequestView{
			Catalog:     catalog.EmbeddedVisual,
			Start:       start,
			Windows:     24,
			Duration:    60,
			SubInterval: 1,
			Policy:      "peak",
			Location:    window.Observer{Latitude: -37.910496, Longitude: 145.134021},
		},
		Result: predict.ResultView{
			Found:      true,
			Start:      &start,
			End:        &end,
			Satellites: []string{"ISS (ZARYA)", "HST"},
			Count:      2,
		},
		Catalog: 14,
	}
}

func TestParseOutput(t *testing.T) {
	for in, want := range map[string]Output{"": OutputText, "JSON": OutputJSON, " yaml ": OutputYAML, "text": OutputText} {
		got, err := ParseOutput(in)
		if err != nil || got != want {
			t.Errorf("ParseOutput(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseOutput("xml"); err == nil {
		t.Error("ParseOutput(xml) should fail")
	}
}

func TestPrintSearchFormats(t *testing.T) {
	s := sampleSearch()

	buf := capture(t)
	if err := PrintSearch(OutputText, s); err != nil {
		t.Fatal(err)
	}
	text := buf.String()
	for _, want := range []string{"BEST OBSERVING WINDOW", "2025-02-14 08:00:00 UTC", "ISS (ZARYA)", "HST", "peak"} {
		if !strings.Contains(text, want) {
			t.Errorf("text output missing %q:\n%s", want, text)
		}
	}

	buf.Reset()
	if err := PrintSearch(OutputJSON, s); err != nil {
		t.Fatal(err)
	}
	var fromJSON predict.Search
	if err := json.Unmarshal(buf.Bytes(), &fromJSON); err != nil {
		t.Fatalf("json output: %v\n%s", err, buf)
	}
	if fromJSON.Result.Count != 2 || fromJSON.Request.Windows != 24 {
		t.Errorf("json round trip = %+v", fromJSON)
	}

	buf.Reset()
	if err := PrintSearch(OutputYAML, s); err != nil {
		t.Fatal(err)
	}
	var fromYAML map[string]any
	if err := yaml.Unmarshal(buf.Bytes(), &fromYAML); err != nil {
		t.Fatalf("yaml output: %v\n%s", err, buf)
	}
	if fromYAML["id"] != s.ID {
		t.Errorf("yaml id = %v", fromYAML["id"])
	}
}

func TestPrintSearchNothingVisible(t *testing.T) {
	s := sampleSearch()
	s.Result = predict.ResultView{Satellites: []string{}}

	buf := capture(t)
	if err := PrintSearch(OutputText, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No satellite is visible") {
		t.Errorf("output = %s", buf)
	}
}

func TestPrintPassesEmpty(t *testing.T) {
	buf := capture(t)
	if err := PrintPasses(OutputJSON, PassList{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"passes": []`) {
		t.Errorf("empty pass list should encode as [], got %s", buf)
	}
}

func TestPrintVisibleCounts(t *testing.T) {
	buf := capture(t)
	vl := VisibleList{
		At:         time.Date(2025, 2, 14, 9, 0, 0, 0, time.UTC),
		Satellites: []predict.Sighting{{Name: "ISS (ZARYA)", Altitude: 42.5, Azimuth: 180, Range: 550}},
	}
	if err := PrintVisible(OutputText, vl); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "42.5°") {
		t.Errorf("output = %s", buf)
	}
}

func TestStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/status" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"name": "skywindow", "state": "IDLE", "uptime_seconds": 3725, "runs": 4,
		})
	}))
	defer srv.Close()

	buf := capture(t)
	if err := Status(srv.URL+"/", OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "IDLE") || !strings.Contains(out, "1h 2m 5s") {
		t.Errorf("status output = %s", out)
	}
}

func TestBestWithoutResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(scheduler.Snapshot{LastError: "catalog unavailable"})
	}))
	defer srv.Close()

	buf := capture(t)
	if err := Best(srv.URL, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "catalog unavailable") {
		t.Errorf("output = %s", buf)
	}
}

func TestRefreshPrintsSearch(t *testing.T) {
	s := sampleSearch()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/refresh" {
			http.Error(w, "wrong route", http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(scheduler.CommandResult{OK: true, Message: "search refreshed", Search: &s})
	}))
	defer srv.Close()

	buf := capture(t)
	if err := Refresh(srv.URL, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "REFRESHED") || !strings.Contains(out, "ISS (ZARYA)") {
		t.Errorf("output = %s", out)
	}
}

func TestAPIErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"ok":false,"error":"context deadline exceeded"}`))
	}))
	defer srv.Close()

	capture(t)
	err := Pause(srv.URL, OutputText)
	if err == nil || !strings.Contains(err.Error(), "context deadline exceeded") {
		t.Errorf("error = %v", err)
	}
}

func TestHealthUnreachable(t *testing.T) {
	buf := capture(t)
	if err := Health("http://127.0.0.1:1", OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"healthy": false`) {
		t.Errorf("output = %s", buf)
	}
}

func TestWatchFiltersAndStops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(telemetry.NewHeartbeat("IDLE", time.Minute))
		done := telemetry.NewSearchCompleted()
		done.SearchID = "abcdef0123456789"
		done.Found = true
		done.Start = "2025-02-14T08:00:00Z"
		done.Satellites = []string{"ISS (ZARYA)"}
		done.Count = 1
		_ = conn.WriteJSON(done)
		// Hold the connection until the client leaves.
		_, _, _ = conn.ReadMessage()
	}))
	defer srv.Close()

	buf := capture(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := Watch(ctx, srv.URL, WatchOptions{Filter: []string{"search_completed"}, Count: 1})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if strings.Contains(out, "heartbeat") {
		t.Errorf("filtered heartbeat was shown:\n%s", out)
	}
	if !strings.Contains(out, "SEARCH COMPLETE") || !strings.Contains(out, "abcdef01") {
		t.Errorf("output = %s", out)
	}
}
