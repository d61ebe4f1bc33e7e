package ctl

import (
	"fmt"
	"strings"

	"github.com/large-farva/skywindow/internal/scheduler"
)

// Pause suspends scheduled searches on the daemon.
func Pause(baseURL string, out Output) error {
	return schedulerControl(baseURL, "/api/pause", "PAUSED", out)
}

// Resume restarts scheduled searches on the daemon.
func Resume(baseURL string, out Output) error {
	return schedulerControl(baseURL, "/api/resume", "RESUMED", out)
}

// Refresh asks the daemon to search again now and prints the new result.
func Refresh(baseURL string, out Output) error {
	return schedulerControl(baseURL, "/api/refresh", "REFRESHED", out)
}

func schedulerControl(baseURL, path, label string, out Output) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var result scheduler.CommandResult
	if err := postJSON(searchClient, baseURL, path, nil, &result); err != nil {
		return err
	}

	if out != OutputText {
		return render(out, result, nil)
	}

	if !result.OK {
		fmt.Fprintf(stdout, "\n  %s  %s\n\n", colorize(red, "ERROR"), result.Error)
		return nil
	}
	fmt.Fprintf(stdout, "\n  %s  %s\n", colorize(green, label), result.Message)
	if result.Search != nil {
		searchText(*result.Search)
	} else {
		fmt.Fprintln(stdout)
	}
	return nil
}
