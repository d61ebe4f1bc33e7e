package ctl

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Health checks daemon liveness and component health via GET /healthz.
func Health(baseURL string, out Output) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, body, err := getRaw(baseURL, "/healthz", "application/json")
	if err != nil {
		if out != OutputText {
			return render(out, map[string]any{"healthy": false, "url": baseURL, "error": err.Error()}, nil)
		}
		return err
	}

	var detail struct {
		Healthy bool                      `json:"healthy" yaml:"healthy"`
		Checks  map[string]map[string]any `json:"checks"  yaml:"checks"`
		URL     string                    `json:"url"     yaml:"url"`
	}
	if err := json.Unmarshal(body, &detail); err != nil {
		detail.Healthy = status == 200
	}
	detail.URL = baseURL

	return render(out, detail, func() {
		fmt.Fprintln(stdout)
		if detail.Healthy {
			fmt.Fprintf(stdout, "  %s  skywindowd is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
		} else {
			fmt.Fprintf(stdout, "  %s  skywindowd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
		}

		names := make([]string, 0, len(detail.Checks))
		for name := range detail.Checks {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			c := detail.Checks[name]
			mark := colorize(green, "ok")
			if ok, _ := c["ok"].(bool); !ok {
				mark = colorize(red, "fail")
			}
			line := fmt.Sprintf("    %s %s", padRight(name, 10), mark)
			if msg, _ := c["error"].(string); msg != "" {
				line += "  " + colorize(dim, msg)
			}
			fmt.Fprintln(stdout, line)
		}
		fmt.Fprintln(stdout)
	})
}
