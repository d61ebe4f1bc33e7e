package ctl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/large-farva/skywindow/internal/telemetry"
)

// WatchOptions controls the watch command behavior.
type WatchOptions struct {
	Filter []string // event types to show (empty = all)
	JSON   bool     // output raw JSON per event
	Count  int      // stop after this many shown events (0 = until interrupted)
}

// Watch connects to the daemon's WebSocket endpoint and streams events to
// the terminal in a human-readable format until ctx is cancelled, the
// daemon goes away, or Count events have been shown.
func Watch(ctx context.Context, baseURL string, opts WatchOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	u, err := url.Parse(baseURL)
	if err != nil {
		return err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	u.Path = "/ws"
	u.RawQuery = ""

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if !opts.JSON {
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "  %s %s\n", colorize(green, "connected"), colorize(dim, u.String()))
		if len(opts.Filter) > 0 {
			fmt.Fprintf(stdout, "  %s %s\n", colorize(dim, "filter:"), colorize(dim, strings.Join(opts.Filter, ", ")))
		}
		fmt.Fprintln(stdout, rule(50))
		fmt.Fprintln(stdout)
	}

	// Build a filter set for O(1) lookup.
	filterSet := make(map[string]bool, len(opts.Filter))
	for _, f := range opts.Filter {
		filterSet[f] = true
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		shown := 0
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}

			// Apply event type filter.
			if len(filterSet) > 0 {
				var ev telemetry.Event
				if err := json.Unmarshal(msg, &ev); err == nil && !filterSet[string(ev.Type)] {
					continue
				}
			}

			if opts.JSON {
				fmt.Fprintln(stdout, string(msg))
			} else {
				renderEvent(msg)
			}

			shown++
			if opts.Count > 0 && shown >= opts.Count {
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		if !opts.JSON {
			fmt.Fprintln(stdout)
			fmt.Fprintln(stdout, colorize(dim, "  disconnecting..."))
		}
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
			time.Now().Add(1*time.Second),
		)
		return nil
	case <-done:
		return nil
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// renderEvent parses a JSON event and prints it in a human-friendly format.
// Falls back to raw JSON for unrecognized event types.
func renderEvent(raw []byte) {
	var ev map[string]any
	if err := json.Unmarshal(raw, &ev); err != nil {
		fmt.Fprintf(stdout, "  %s\n", string(raw))
		return
	}

	evType, _ := ev["type"].(string)
	ts := formatEventTime(ev)

	switch evType {
	case "heartbeat":
		// Heartbeats are noisy; show them dimmed on a single line.
		state, _ := ev["state"].(string)
		uptime, _ := ev["uptime_seconds"].(float64)
		uptimeStr := formatDuration(time.Duration(uptime) * time.Second)
		fmt.Fprintf(stdout, "  %s %s  %s  up %s\n",
			colorize(dim, ts),
			colorize(dim, "heartbeat"),
			colorize(stateColor(state), state),
			colorize(dim, uptimeStr),
		)

	case "state":
		from, _ := ev["from"].(string)
		to, _ := ev["to"].(string)
		fmt.Fprintf(stdout, "  %s %s  %s %s %s\n",
			colorize(dim, ts),
			colorize(bold, "STATE"),
			colorize(stateColor(from), from),
			colorize(dim, "->"),
			colorize(stateColor(to), to),
		)

	case "log":
		level, _ := ev["level"].(string)
		message, _ := ev["message"].(string)
		component, _ := ev["component"].(string)
		levelStr := formatLogLevel(level)
		src := ""
		if component != "" {
			src = colorize(dim, "["+component+"] ")
		}
		fmt.Fprintf(stdout, "  %s %s  %s%s\n", colorize(dim, ts), levelStr, src, message)

	case "search_started":
		id, _ := ev["search_id"].(string)
		policy, _ := ev["policy"].(string)
		start, _ := ev["start"].(string)
		windows, _ := ev["windows"].(float64)
		dur, _ := ev["duration_minutes"].(float64)
		fmt.Fprintf(stdout, "  %s %s  %s  %.0f × %.0f min from %s (%s)\n",
			colorize(dim, ts),
			colorize(cyan, "SEARCH"),
			colorize(dim, shortID(id)),
			windows, dur, start, policy,
		)

	case "window_evaluated":
		idx, _ := ev["index"].(float64)
		start, _ := ev["start"].(string)
		visible, _ := ev["visible"].(float64)
		best, _ := ev["best"].(bool)
		mark := ""
		if best {
			mark = colorize(green, "  best so far")
		}
		fmt.Fprintf(stdout, "  %s %s  #%-3.0f %s  %3.0f visible%s\n",
			colorize(dim, ts),
			colorize(dim, padRight("window", 6)),
			idx, start, visible, mark,
		)

	case "search_completed":
		id, _ := ev["search_id"].(string)
		found, _ := ev["found"].(bool)
		start, _ := ev["start"].(string)
		count, _ := ev["count"].(float64)
		elapsed, _ := ev["elapsed_ms"].(float64)
		errMsg, _ := ev["error"].(string)

		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "  %s %s  %s\n", colorize(dim, ts), header("SEARCH COMPLETE"), colorize(dim, shortID(id)))
		switch {
		case errMsg != "":
			fmt.Fprintf(stdout, "    %s %s\n", colorize(dim, padRight("Error:", 12)), colorize(red, errMsg))
		case !found:
			fmt.Fprintf(stdout, "    %s\n", colorize(dim, "No satellite visible in any window."))
		default:
			fmt.Fprintf(stdout, "    %s %s\n", colorize(dim, padRight("Window:", 12)), colorize(bold, start))
			fmt.Fprintf(stdout, "    %s %.0f\n", colorize(dim, padRight("Visible:", 12)), count)
			if sats, ok := ev["satellites"].([]any); ok {
				names := make([]string, 0, len(sats))
				for _, s := range sats {
					if n, ok := s.(string); ok {
						names = append(names, n)
					}
				}
				fmt.Fprintf(stdout, "    %s %s\n", colorize(dim, padRight("Satellites:", 12)), strings.Join(names, ", "))
			}
		}
		fmt.Fprintf(stdout, "    %s %s\n", colorize(dim, padRight("Took:", 12)),
			(time.Duration(elapsed) * time.Millisecond).String())
		fmt.Fprintln(stdout)

	default:
		// Unknown event type: dump as indented JSON.
		pretty, err := json.MarshalIndent(ev, "  ", "  ")
		if err != nil {
			fmt.Fprintf(stdout, "  %s\n", string(raw))
			return
		}
		fmt.Fprintf(stdout, "  %s\n", string(pretty))
	}
}

// formatEventTime extracts and shortens the timestamp from an event.
func formatEventTime(ev map[string]any) string {
	tsRaw, ok := ev["ts"].(string)
	if !ok {
		return "          "
	}
	t, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return padRight(tsRaw, 8)
	}
	return t.Local().Format("15:04:05")
}

// formatLogLevel returns a colored, fixed-width log level label.
func formatLogLevel(level string) string {
	switch level {
	case "info":
		return colorize(green, "INFO ")
	case "warn":
		return colorize(yellow, "WARN ")
	case "error":
		return colorize(red, "ERROR")
	default:
		return padRight(level, 5)
	}
}
