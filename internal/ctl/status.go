package ctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/large-farva/skywindow/internal/scheduler"
	"github.com/large-farva/skywindow/internal/window"
)

// StatusResponse mirrors the JSON returned by GET /api/status.
type StatusResponse struct {
	Name          string          `json:"name"                 yaml:"name"`
	State         string          `json:"state"                yaml:"state"`
	UptimeSeconds int64           `json:"uptime_seconds"       yaml:"uptime_seconds"`
	Paused        bool            `json:"paused"               yaml:"paused"`
	Runs          int             `json:"runs"                 yaml:"runs"`
	WSClients     int             `json:"ws_clients"           yaml:"ws_clients"`
	Catalog       string          `json:"catalog"              yaml:"catalog"`
	Backend       string          `json:"backend"              yaml:"backend"`
	Observer      window.Observer `json:"observer"             yaml:"observer"`
	LastRun       *time.Time      `json:"last_run,omitempty"   yaml:"last_run,omitempty"`
	NextRun       *time.Time      `json:"next_run,omitempty"   yaml:"next_run,omitempty"`
	LastError     string          `json:"last_error,omitempty" yaml:"last_error,omitempty"`
}

// Status fetches the daemon status and prints a formatted summary.
func Status(baseURL string, out Output) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err != nil {
		return err
	}

	return render(out, s, func() {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  SKYWINDOW STATUS"))
		fmt.Fprintln(stdout, rule(38))
		field("Daemon:", s.Name)
		field("State:", colorize(stateColor(s.State), s.State))
		field("Uptime:", formatDuration(time.Duration(s.UptimeSeconds)*time.Second))
		field("Searches:", s.Runs)
		if s.LastRun != nil {
			field("Last run:", formatTime(*s.LastRun))
		}
		if s.NextRun != nil {
			field("Next run:", formatTime(*s.NextRun))
		}
		if s.LastError != "" {
			field("Error:", colorize(red, s.LastError))
		}
		field("Station:", fmt.Sprintf("%.4f, %.4f, %.0fm", s.Observer.Latitude, s.Observer.Longitude, s.Observer.Altitude))
		field("Catalog:", s.Catalog)
		field("Backend:", s.Backend)
		field("Watchers:", s.WSClients)
		field("Host:", baseURL)
		fmt.Fprintln(stdout)
	})
}

// Best prints the daemon's most recent best-window search.
func Best(baseURL string, out Output) error {
	var snap scheduler.Snapshot
	if err := getJSON(baseURL, "/api/best", &snap); err != nil {
		return err
	}

	if out != OutputText {
		return render(out, snap, nil)
	}
	if snap.Best == nil {
		fmt.Fprintln(stdout)
		if snap.LastError != "" {
			fmt.Fprintf(stdout, "  %s  %s\n", colorize(red, "ERROR"), snap.LastError)
		} else {
			fmt.Fprintln(stdout, colorize(dim, "  No search has completed yet."))
		}
		fmt.Fprintln(stdout)
		return nil
	}
	searchText(*snap.Best)
	if snap.Paused {
		fmt.Fprintln(stdout, colorize(yellow, "  Scheduler is paused; this result may be stale."))
		fmt.Fprintln(stdout)
	}
	return nil
}
