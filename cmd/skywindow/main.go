// Skywindow finds the best upcoming window for spotting satellites.
//
// The search commands (find, visible, passes, catalog) run in-process. The
// rest talk to a running skywindowd over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/large-farva/skywindow/internal/ctl"
	"github.com/large-farva/skywindow/internal/exitcode"
)

const defaultConfigPath = "/etc/skywindow/skywindow.toml"

func main() {
	var (
		host       = pflag.StringP("host", "H", "http://127.0.0.1:8080", "skywindowd URL (e.g. http://192.168.8.1:8080)")
		output     = pflag.StringP("output", "o", "text", "Output format: text, json, or yaml")
		configPath = pflag.StringP("config", "c", defaultConfigPath, "Config TOML for local commands")
		logLevel   = pflag.String("log-level", "warn", "Log level for local commands")
		filter     = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,log)")
		count      = pflag.Int("count", 0, "Stop watch after this many events")
	)

	// Stop parsing global flags at the command name, so command flags like
	// --windows are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Usage = usage
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(exitcode.InvalidArgument)
	}

	out, err := ctl.ParseOutput(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitcode.InvalidArgument)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	switch cmd {
	// ── Local commands ────────────────────────────────────────────
	case "find", "visible", "passes", "catalog":
		err = runLocal(ctx, cmd, subArgs, *configPath, *logLevel, out)

	// ── Daemon queries ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, out)

	case "best":
		err = ctl.Best(*host, out)

	case "health":
		err = ctl.Health(*host, out)

	case "version":
		err = ctl.VersionInfo(*host, out)

	case "config":
		err = ctl.Config(*host, out)

	// ── Daemon control ────────────────────────────────────────────
	case "refresh":
		err = ctl.Refresh(*host, out)

	case "pause":
		err = ctl.Pause(*host, out)

	case "resume":
		err = ctl.Resume(*host, out)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
		flags.StringSliceVar(filter, "filter", *filter, "Event types to show")
		flags.IntVar(count, "count", *count, "Stop after this many events")
		if err = parseFlags(flags, subArgs); err != nil {
			break
		}
		err = ctl.Watch(ctx, *host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   out != ctl.OutputText,
			Count:  *count,
		})

	case "help":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		usage()
		os.Exit(exitcode.InvalidArgument)
	}

	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(exitcode.For(err))
	}
}

func runLocal(ctx context.Context, cmd string, args []string, configPath, logLevel string, out ctl.Output) error {
	l, err := newLocal(configPath, logLevel, out)
	if err != nil {
		return err
	}
	defer l.close()

	switch cmd {
	case "find":
		return l.find(ctx, args)
	case "visible":
		return l.visible(ctx, args)
	case "passes":
		return l.passes(ctx, args)
	default:
		return l.listCatalog(ctx, args)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `
  skywindow: best satellite observing window finder

  USAGE
    skywindow [flags] <command> [command-flags]

  COMMANDS (local)
    find            Find the window with the most visible satellites
    visible         List satellites above the horizon at one instant
    passes          List satellite passes over a time range
    catalog         List the satellites in a TLE catalog

  COMMANDS (daemon)
    status          Show daemon state, uptime, and schedule
    best            Show the daemon's latest best window
    health          Check daemon and component health
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    refresh         Search again now
    pause           Pause scheduled searches
    resume          Resume scheduled searches
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL        Daemon base URL (default: http://127.0.0.1:8080)
    -o, --output FORMAT   text, json, or yaml (default: text)
    -c, --config PATH     Config TOML for local commands
        --log-level LVL   Log level for local commands (default: warn)
        --filter TYPE     Event types to show in watch (comma-separated)
        --count N         Stop watch after N events

  COMMAND FLAGS
    find:
        --catalog SRC         TLE URL, file path, or embedded:visual
        --start TIME          First window start, UTC (default: now)
        --windows N           Number of windows (default: 24)
        --duration MIN        Window length in minutes (default: 60)
        --sub-interval MIN    Sampling step in minutes (default: 1)
        --cumulative          Count every satellite seen in a window
        --location LAT,LON    Observer position, optional ,ALT in metres

    visible:
        --catalog SRC, --location LAT,LON, --at TIME

    passes:
        --catalog SRC, --location LAT,LON, --from TIME
        --hours N             Range length in hours, 1-168 (default: 24)
        --satellite NAME      Only this satellite (repeatable)

    catalog:
        --catalog SRC

  EXAMPLES
    skywindow find
    skywindow find --start 2025-02-14T08:00 --windows 6 --cumulative
    skywindow -o json find --location 51.48,-0.0,45
    skywindow visible --catalog embedded:visual
    skywindow passes --satellite "ISS (ZARYA)" --hours 48
    skywindow -H http://192.168.8.1:8080 status
    skywindow refresh
    skywindow watch --filter search_completed

`)
}
