// Package app wires together the HTTP API, the WebSocket hub, and the
// scheduler that keeps the best observing window fresh. It owns the daemon's
// lifecycle and is the single source of truth for the current operating
// state.
package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/config"
	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/scheduler"
	"github.com/large-farva/skywindow/internal/telemetry"
	"github.com/large-farva/skywindow/internal/ws"
)

// StateBooting is the state before Run starts the scheduler.
const StateBooting = "BOOTING"

// Options holds everything the App needs from the caller.
type Options struct {
	Logger     logger.Logger
	Cfg        config.Config
	ConfigPath string
	// Bind overrides cfg.Server.Bind when set.
	Bind string
}

// App is the top-level daemon process.
type App struct {
	log        logger.Logger
	cfg        config.Config
	configPath string
	bind       string

	startedAt time.Time
	state     atomic.Value // current state string (BOOTING, IDLE, etc.)

	wsHub     *ws.Hub
	loader    *catalog.Loader
	redis     *redis.Client
	predictor *predict.Predictor
	scheduler *scheduler.Runner
	router    http.Handler
}

// New builds an App in the BOOTING state. Call Run to start serving.
func New(opts Options) (*App, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	loader, rdb, err := NewLoader(opts.Cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{
		log:        log,
		cfg:        opts.Cfg,
		configPath: opts.ConfigPath,
		bind:       opts.Bind,
		startedAt:  time.Now(),
		wsHub:      ws.NewHub(),
		loader:     loader,
		redis:      rdb,
	}
	a.state.Store(StateBooting)

	a.predictor = predict.New(opts.Cfg, loader, a.wsHub, log.Named("predict"))
	a.scheduler = scheduler.New(
		a.predictor,
		time.Duration(opts.Cfg.Search.RefreshMinutes)*time.Minute,
		a.wsHub,
		log.Named("scheduler"),
	)
	a.router = a.routes()
	return a, nil
}

// Handler is the daemon's HTTP router.
func (a *App) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server, WebSocket hub, heartbeat ticker, and the
// scheduler. It blocks until the context is cancelled or the server fails.
func (a *App) Run(ctx context.Context) error {
	bind := a.bind
	if bind == "" {
		bind = a.cfg.Server.Bind
	}

	ln, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	a.log.Info("listening", logger.String("addr", "http://"+ln.Addr().String()))

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.wsHub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		a.heartbeatLoop(ctx)
		return nil
	})
	g.Go(func() error {
		a.scheduler.Run(ctx, a.transition)
		return nil
	})
	g.Go(func() error {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("shutdown requested")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(sctx)
	})

	err = g.Wait()
	if a.redis != nil {
		_ = a.redis.Close()
	}
	return err
}

// State is the current operating state.
func (a *App) State() string {
	return a.state.Load().(string)
}

// transition updates the daemon state and broadcasts the change to all
// connected WebSocket clients.
func (a *App) transition(newState string) {
	old := a.state.Swap(newState).(string)
	if old == newState {
		return
	}
	a.log.Debug("state", logger.String("from", old), logger.String("to", newState))
	a.wsHub.BroadcastJSON(telemetry.NewStateTransition(old, newState))
}

// heartbeatLoop sends a periodic heartbeat event so clients can detect
// connectivity and track uptime without polling.
func (a *App) heartbeatLoop(ctx context.Context) {
	t := time.NewTicker(10 * time.Second)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.wsHub.BroadcastJSON(telemetry.NewHeartbeat(a.State(), time.Since(a.startedAt)))
		}
	}
}
