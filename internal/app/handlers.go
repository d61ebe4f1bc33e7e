package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/metrics"
	"github.com/large-farva/skywindow/internal/scheduler"
	"github.com/large-farva/skywindow/internal/window"
)

// maxPassHours bounds /api/passes so one request cannot propagate for days.
const maxPassHours = 7 * 24

func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(accessLog(a.log.Named("http")))

	r.Get("/healthz", a.handleHealthz)
	r.Handle("/metrics", metrics.Handler())
	r.Handle("/ws", a.wsHub.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", a.handleStatus)
		r.Get("/version", a.handleVersion)
		r.Get("/config", a.handleConfig)
		r.Get("/best", a.handleBest)
		r.Get("/find", a.handleFind)
		r.Post("/find", a.handleFind)
		r.Get("/visible", a.handleVisible)
		r.Get("/catalog", a.handleCatalog)
		r.Get("/passes", a.handlePasses)
		r.Post("/refresh", a.handleCommand(scheduler.CmdRefresh))
		r.Post("/pause", a.handleCommand(scheduler.CmdPause))
		r.Post("/resume", a.handleCommand(scheduler.CmdResume))
	})

	return r
}

// ---------------------------------------------------------------------------
// Core handlers
// ---------------------------------------------------------------------------

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	checks := map[string]any{}
	allOK := true

	snap := a.scheduler.Snapshot()
	switch {
	case snap.LastError != "":
		checks["search"] = map[string]any{"ok": false, "error": snap.LastError}
		allOK = false
	case snap.Runs == 0:
		checks["search"] = map[string]any{"ok": true, "pending": true}
	default:
		checks["search"] = map[string]any{"ok": true, "last_run": snap.LastRun}
	}

	if a.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			checks["redis"] = map[string]any{"ok": true, "addr": a.cfg.Redis.Addr}
		}
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	snap := a.scheduler.Snapshot()
	resp := map[string]any{
		"name":           "skywindow",
		"state":          a.State(),
		"uptime_seconds": int64(time.Since(a.startedAt).Seconds()),
		"paused":         snap.Paused,
		"runs":           snap.Runs,
		"ws_clients":     a.wsHub.Clients(),
		"catalog":        a.cfg.Catalog.URL,
		"backend":        a.cfg.Search.Backend,
		"observer": window.Observer{
			Latitude:  a.cfg.Observer.Latitude,
			Longitude: a.cfg.Observer.Longitude,
			Altitude:  a.cfg.Observer.Altitude,
		},
	}
	if !snap.LastRun.IsZero() {
		resp["last_run"] = snap.LastRun.UTC()
	}
	if !snap.NextRun.IsZero() {
		resp["next_run"] = snap.NextRun.UTC()
	}
	if snap.LastError != "" {
		resp["last_error"] = snap.LastError
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": runtime.Version(),
		"built_at":   BuiltAt,
	})
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.cfg)
}

func (a *App) handleBest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.scheduler.Snapshot())
}

// ---------------------------------------------------------------------------
// Search handlers
// ---------------------------------------------------------------------------

func (a *App) handleFind(w http.ResponseWriter, r *http.Request) {
	req := a.predictor.RequestAt(time.Now())

	var (
		located bool
		err     error
	)
	if r.Method == http.MethodPost {
		located, err = a.decodeFindBody(w, r, &req)
	} else {
		located, err = a.applyFindQuery(r, &req)
	}
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if !located {
		req.Location = a.predictor.ResolveLocation(r.Context())
	}

	plan, err := req.Validate()
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if limit := int64(a.cfg.Search.MaxSamples); plan.SampleCount() > limit {
		a.writeErr(w, fmt.Errorf("%w: search needs %d samples per satellite, limit is %d",
			window.ErrInvalidArgument, plan.SampleCount(), limit))
		return
	}

	s, err := a.predictor.FindBest(r.Context(), req)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *App) handleVisible(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src, err := a.catalogParam(q.Get("catalog"))
	if err != nil {
		a.writeErr(w, err)
		return
	}

	obs, err := a.observerParam(r)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	at, err := instantParam(q.Get("at"), time.Now().UTC())
	if err != nil {
		a.writeErr(w, err)
		return
	}

	sightings, err := a.predictor.Visible(r.Context(), src, obs, at)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"at":         at,
		"location":   obs,
		"count":      len(sightings),
		"satellites": sightings,
	})
}

func (a *App) handleCatalog(w http.ResponseWriter, r *http.Request) {
	src, err := a.catalogParam(r.URL.Query().Get("catalog"))
	if err != nil {
		a.writeErr(w, err)
		return
	}

	entries, err := a.loader.Entries(r.Context(), src)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"source":     src,
		"count":      len(entries),
		"satellites": entries,
	})
}

func (a *App) handlePasses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	src, err := a.catalogParam(q.Get("catalog"))
	if err != nil {
		a.writeErr(w, err)
		return
	}

	obs, err := a.observerParam(r)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	from, err := instantParam(q.Get("from"), time.Now().UTC())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	hours := 24
	if v := q.Get("hours"); v != "" {
		if hours, err = window.ParseCount("hours", v); err != nil {
			a.writeErr(w, err)
			return
		}
	}
	if hours < 1 || hours > maxPassHours {
		jsonError(w, "hours must be between 1 and 168", http.StatusBadRequest)
		return
	}

	var names []string
	for _, v := range q["satellite"] {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}

	to := from.Add(time.Duration(hours) * time.Hour)
	passes, err := a.predictor.Passes(r.Context(), src, names, obs, from, to)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":     from,
		"to":       to,
		"location": obs,
		"count":    len(passes),
		"passes":   passes,
	})
}

// ---------------------------------------------------------------------------
// Scheduler controls
// ---------------------------------------------------------------------------

func (a *App) handleCommand(cmdType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := a.sendSchedulerCommand(r.Context(), cmdType, nil)
		if err != nil {
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeCommandResult(w, result)
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// sendSchedulerCommand sends a command to the scheduler and waits for the
// reply, giving up when the request goes away.
func (a *App) sendSchedulerCommand(ctx context.Context, cmdType string, payload json.RawMessage) (scheduler.CommandResult, error) {
	reply := make(chan scheduler.CommandResult, 1)
	select {
	case a.scheduler.Commands <- scheduler.Command{Type: cmdType, Payload: payload, Reply: reply}:
	case <-ctx.Done():
		return scheduler.CommandResult{}, ctx.Err()
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return scheduler.CommandResult{}, ctx.Err()
	}
}

// writeErr maps an error onto an HTTP status. An unreachable catalog is a
// bad gateway even though it is also an invalid argument.
func (a *App) writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, catalog.ErrUnavailable):
		code = http.StatusBadGateway
	case errors.Is(err, window.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	}
	if code >= http.StatusInternalServerError {
		a.log.Warn("request failed", logger.Int("status", code), logger.Error(err))
	}
	jsonError(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}

// writeCommandResult writes a scheduler.CommandResult as JSON.
func writeCommandResult(w http.ResponseWriter, result scheduler.CommandResult) {
	code := http.StatusOK
	if !result.OK {
		code = http.StatusInternalServerError
	}
	writeJSON(w, code, result)
}
