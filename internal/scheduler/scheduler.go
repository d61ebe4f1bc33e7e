// Package scheduler keeps the daemon's best upcoming observing window fresh.
// It recomputes the search on a fixed period, and accepts refresh, pause,
// and resume commands from the HTTP layer while it waits.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/telemetry"
	"github.com/large-farva/skywindow/internal/window"
)

// Operating states reported through setState.
const (
	StateIdle      = "IDLE"
	StateSearching = "SEARCHING"
	StatePaused    = "PAUSED"
)

// Command types accepted on Runner.Commands.
const (
	CmdRefresh = "refresh"
	CmdPause   = "pause"
	CmdResume  = "resume"
)

// Searcher runs one search for the station. *predict.Predictor implements it.
type Searcher interface {
	DefaultRequest(ctx context.Context, now time.Time) window.Request
	FindBest(ctx context.Context, req window.Request) (predict.Search, error)
}

// Command represents an external command sent to the scheduler via its
// Commands channel. The Reply channel receives exactly one result.
type Command struct {
	Type    string
	Payload json.RawMessage
	Reply   chan<- CommandResult
}

// CommandResult is the response sent back through a Command's Reply channel.
type CommandResult struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
	Search  *predict.Search `json:"search,omitempty"`
}

// Snapshot is the scheduler's view of the latest search.
type Snapshot struct {
	Best      *predict.Search `json:"best"`
	LastRun   time.Time       `json:"last_run"`
	NextRun   time.Time       `json:"next_run"`
	LastError string          `json:"last_error,omitempty"`
	Paused    bool            `json:"paused"`
	Runs      int             `json:"runs"`
}

// Runner owns the recompute loop.
type Runner struct {
	// Commands receives external commands from HTTP handlers.
	Commands chan Command

	// Interval between scheduled searches.
	Interval time.Duration

	searcher Searcher
	pub      telemetry.Publisher
	log      logger.Logger
	now      func() time.Time

	paused atomic.Bool

	mu      sync.RWMutex
	best    *predict.Search
	lastRun time.Time
	nextRun time.Time
	lastErr string
	runs    int
}

// New creates a runner. pub and log may be nil.
func New(s Searcher, interval time.Duration, pub telemetry.Publisher, log logger.Logger) *Runner {
	if pub == nil {
		pub = telemetry.Discard
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{
		Commands: make(chan Command, 4),
		Interval: interval,
		searcher: s,
		pub:      pub,
		log:      log,
		now:      time.Now,
	}
}

// IsPaused reports whether scheduled searches are suspended.
func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

// Snapshot returns the latest search and schedule.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Best:      r.best,
		LastRun:   r.lastRun,
		NextRun:   r.nextRun,
		LastError: r.lastErr,
		Paused:    r.paused.Load(),
		Runs:      r.runs,
	}
}

// Run is the main scheduler loop.
//
// Lifecycle:
//  1. Search (SEARCHING), store the result, fall back to IDLE
//  2. Sleep until the next scheduled search, handling commands meanwhile
//  3. While PAUSED, only commands wake the loop
func (r *Runner) Run(ctx context.Context, setState func(string)) {
	r.logLine("info", "scheduler started")

	for {
		if ctx.Err() != nil {
			return
		}

		if r.paused.Load() {
			setState(StatePaused)
			r.setNext(time.Time{})
			// Sleep for a very long time; a command will interrupt.
			if r.sleepOrCommand(ctx, 24*365*time.Hour, setState) == sleepCancelled {
				return
			}
			continue
		}

		r.search(ctx, setState)
		if ctx.Err() != nil {
			return
		}

		if !r.waitForNext(ctx, setState) {
			return
		}
	}
}

// waitForNext sleeps until the next scheduled search. A refresh command
// restarts the period. Returns false when ctx is cancelled.
func (r *Runner) waitForNext(ctx context.Context, setState func(string)) bool {
	next := r.now().Add(r.Interval)
	r.setNext(next)

	for {
		remaining := next.Sub(r.now())
		if remaining <= 0 {
			return true
		}
		switch r.sleepOrCommand(ctx, remaining, setState) {
		case sleepCancelled:
			return false
		case sleepCompleted:
			return true
		case sleepRefreshed:
			next = r.now().Add(r.Interval)
			r.setNext(next)
		}
		if r.paused.Load() {
			return true
		}
	}
}

func (r *Runner) setNext(t time.Time) {
	r.mu.Lock()
	r.nextRun = t
	r.mu.Unlock()
}

// search runs one search and records its outcome.
func (r *Runner) search(ctx context.Context, setState func(string)) (predict.Search, error) {
	setState(StateSearching)

	req := r.searcher.DefaultRequest(ctx, r.now())
	s, err := r.searcher.FindBest(ctx, req)

	r.mu.Lock()
	r.lastRun = r.now()
	r.runs++
	if err != nil {
		r.lastErr = err.Error()
	} else {
		r.best = &s
		r.lastErr = ""
	}
	r.mu.Unlock()

	switch {
	case err != nil:
		r.logLine("error", "search failed: "+err.Error())
	case s.Result.Found:
		r.logLine("info", fmt.Sprintf("best window starts %s with %d satellites",
			s.Result.Start.Format(time.RFC3339), s.Result.Count))
	default:
		r.logLine("info", "no satellite visible in any window")
	}

	if r.paused.Load() {
		setState(StatePaused)
	} else {
		setState(StateIdle)
	}
	return s, err
}

// sleepResult indicates what ended a sleep period.
type sleepResult int

const (
	sleepCompleted   sleepResult = iota // timer expired normally
	sleepCancelled                      // context was cancelled
	sleepInterrupted                    // a command was received and handled
	sleepRefreshed                      // a refresh command ran a search
)

// sleepOrCommand blocks for duration d, until ctx is cancelled, or until a
// command arrives on r.Commands. Commands are handled inline.
func (r *Runner) sleepOrCommand(ctx context.Context, d time.Duration, setState func(string)) sleepResult {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return sleepCancelled
	case <-t.C:
		return sleepCompleted
	case cmd := <-r.Commands:
		return r.handleCommand(ctx, cmd, setState)
	}
}

// handleCommand dispatches an incoming command to the appropriate handler.
func (r *Runner) handleCommand(ctx context.Context, cmd Command, setState func(string)) sleepResult {
	switch cmd.Type {
	case CmdRefresh:
		r.handleRefreshCommand(ctx, cmd, setState)
		return sleepRefreshed
	case CmdPause:
		r.handlePauseCommand(cmd)
	case CmdResume:
		r.handleResumeCommand(cmd)
	default:
		cmd.Reply <- CommandResult{OK: false, Error: "unknown command: " + cmd.Type}
	}
	return sleepInterrupted
}

// handleRefreshCommand runs a search immediately, even while paused.
func (r *Runner) handleRefreshCommand(ctx context.Context, cmd Command, setState func(string)) {
	s, err := r.search(ctx, setState)
	if err != nil {
		cmd.Reply <- CommandResult{OK: false, Error: "search failed: " + err.Error()}
		return
	}
	cmd.Reply <- CommandResult{OK: true, Message: "search refreshed", Search: &s}
}

func (r *Runner) handlePauseCommand(cmd Command) {
	if r.paused.Load() {
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler already paused"}
		return
	}
	r.paused.Store(true)
	r.logLine("info", "scheduler paused by user")
	cmd.Reply <- CommandResult{OK: true, Message: "scheduler paused"}
}

func (r *Runner) handleResumeCommand(cmd Command) {
	if !r.paused.Load() {
		cmd.Reply <- CommandResult{OK: true, Message: "scheduler already running"}
		return
	}
	r.paused.Store(false)
	r.logLine("info", "scheduler resumed by user")
	cmd.Reply <- CommandResult{OK: true, Message: "scheduler resumed"}
}

func (r *Runner) logLine(level, msg string) {
	switch level {
	case "error":
		r.log.Error(msg)
	default:
		r.log.Info(msg)
	}
	r.pub.BroadcastJSON(telemetry.NewLogLine("scheduler", level, msg))
}
