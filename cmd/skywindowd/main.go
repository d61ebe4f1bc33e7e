// Skywindowd is the skywindow daemon.
//
// It loads configuration, keeps the best upcoming observing window fresh on a
// schedule, and serves it over HTTP and WebSocket. Shutdown is handled
// gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/large-farva/skywindow/internal/app"
	"github.com/large-farva/skywindow/internal/config"
	"github.com/large-farva/skywindow/internal/exitcode"
	"github.com/large-farva/skywindow/internal/logger"
)

const defaultConfigPath = "/etc/skywindow/skywindow.toml"

func main() {
	var (
		configPath = pflag.StringP("config", "c", defaultConfigPath, "Path to config TOML")
		bind       = pflag.String("bind", "", "HTTP bind address (overrides server.bind)")
		envFile    = pflag.String("env-file", ".env", "Dotenv file with SKYWINDOW_* overrides")
	)
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "skywindowd: env file: %v\n", err)
	}

	// The default path is optional; an explicit one must exist.
	path := *configPath
	if !pflag.CommandLine.Changed("config") {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skywindowd: config load failed: %v\n", err)
		os.Exit(exitcode.InvalidArgument)
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Pretty)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skywindowd: logger: %v\n", err)
		os.Exit(exitcode.Failure)
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(app.Options{
		Logger:     log.Named("skywindowd"),
		Cfg:        cfg,
		ConfigPath: path,
		Bind:       *bind,
	})
	if err != nil {
		log.Error("startup failed", logger.Error(err))
		_ = log.Sync()
		os.Exit(exitcode.For(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		log.Error("skywindowd failed", logger.Error(err))
		_ = log.Sync()
		os.Exit(exitcode.Failure)
	}
}
