package ctl

import (
	"fmt"
	"runtime"
	"strings"
)

// Version is the CLI build version, set via -ldflags.
var Version = "dev"

// VersionInfo fetches daemon version via GET /api/version and displays both
// the CLI and daemon version information.
func VersionInfo(baseURL string, out Output) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var daemon struct {
		Version   string `json:"version"    yaml:"version"`
		GoVersion string `json:"go_version" yaml:"go_version"`
		BuiltAt   string `json:"built_at"   yaml:"built_at"`
	}
	daemonErr := getJSON(baseURL, "/api/version", &daemon)

	if out != OutputText {
		resp := map[string]any{
			"cli": map[string]any{
				"version":    Version,
				"go_version": runtime.Version(),
			},
		}
		if daemonErr == nil {
			resp["daemon"] = daemon
		} else {
			resp["daemon_error"] = daemonErr.Error()
		}
		return render(out, resp, nil)
	}

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  SKYWINDOW VERSION"))
	fmt.Fprintln(stdout, rule(38))
	field("CLI:", Version+" ("+runtime.Version()+")")
	if daemonErr != nil {
		field("Daemon:", colorize(red, "unreachable: "+daemonErr.Error()))
	} else {
		field("Daemon:", daemon.Version+" ("+daemon.GoVersion+")")
		field("Built:", daemon.BuiltAt)
	}
	fmt.Fprintln(stdout)

	return nil
}
