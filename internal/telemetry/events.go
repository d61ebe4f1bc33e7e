// Package telemetry defines the typed events that flow over the WebSocket
// connection between skywindowd and its clients, and the Publisher interface
// components use to emit them.
package telemetry

import "time"

// EventType identifies the kind of WebSocket event.
type EventType string

const (
	EventHeartbeat       EventType = "heartbeat"
	EventState           EventType = "state"
	EventLog             EventType = "log"
	EventSearchStarted   EventType = "search_started"
	EventWindowEvaluated EventType = "window_evaluated"
	EventSearchCompleted EventType = "search_completed"
)

// Publisher accepts events for fan-out. ws.Hub implements it.
type Publisher interface {
	BroadcastJSON(v any)
}

// Discard is a Publisher that drops everything.
var Discard Publisher = discard{}

type discard struct{}

func (discard) BroadcastJSON(any) {}

// Event is the base envelope shared by every event type.
type Event struct {
	Type      EventType `json:"type"`
	TS        string    `json:"ts"`
	Component string    `json:"component,omitempty"`
}

// NowTS returns the current UTC time as an RFC 3339 nano string, matching the
// timestamp format used across all events.
func NowTS() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

func envelope(t EventType, component string) Event {
	return Event{Type: t, TS: NowTS(), Component: component}
}

// Heartbeat is sent periodically so clients can detect connectivity and
// monitor daemon uptime.
type Heartbeat struct {
	Event
	State         string `json:"state"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func NewHeartbeat(state string, uptime time.Duration) Heartbeat {
	return Heartbeat{Event: envelope(EventHeartbeat, "daemon"), State: state, UptimeSeconds: int64(uptime.Seconds())}
}

// StateTransition is emitted whenever the daemon moves between operating
// states (e.g. IDLE -> SEARCHING).
type StateTransition struct {
	Event
	From string `json:"from"`
	To   string `json:"to"`
}

func NewStateTransition(from, to string) StateTransition {
	return StateTransition{Event: envelope(EventState, "scheduler"), From: from, To: to}
}

// LogLine carries a human-readable log message at a severity level.
type LogLine struct {
	Event
	Level   string `json:"level"`
	Message string `json:"message"`
}

func NewLogLine(component, level, msg string) LogLine {
	return LogLine{Event: envelope(EventLog, component), Level: level, Message: msg}
}

// SearchStarted opens a best-window search.
type SearchStarted struct {
	Event
	SearchID    string  `json:"search_id"`
	Catalog     string  `json:"catalog"`
	Policy      string  `json:"policy"`
	Start       string  `json:"start"`
	Windows     int     `json:"windows"`
	Duration    int     `json:"duration_minutes"`
	SubInterval int     `json:"sub_interval_minutes"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

// WindowEvaluated reports one scored window of a running search.
type WindowEvaluated struct {
	Event
	SearchID string `json:"search_id"`
	Index    int    `json:"index"`
	Start    string `json:"start"`
	Instant  string `json:"instant,omitempty"`
	Visible  int    `json:"visible"`
	Best     bool   `json:"best"`
}

// SearchCompleted closes a search. Error is set when it failed.
type SearchCompleted struct {
	Event
	SearchID   string   `json:"search_id"`
	Found      bool     `json:"found"`
	Start      string   `json:"start,omitempty"`
	Satellites []string `json:"satellites"`
	Count      int      `json:"count"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	Error      string   `json:"error,omitempty"`
}

func NewSearchStarted() SearchStarted {
	return SearchStarted{Event: envelope(EventSearchStarted, "search")}
}

func NewWindowEvaluated() WindowEvaluated {
	return WindowEvaluated{Event: envelope(EventWindowEvaluated, "search")}
}

func NewSearchCompleted() SearchCompleted {
	return SearchCompleted{Event: envelope(EventSearchCompleted, "search")}
}
