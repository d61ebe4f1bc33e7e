package ctl

import (
	"fmt"

	"github.com/large-farva/skywindow/internal/predict"
)

// PrintSearch renders a best-window search.
func PrintSearch(out Output, s predict.Search) error {
	return render(out, s, func() { searchText(s) })
}

func searchText(s predict.Search) {
	req, res := s.Request, s.Result

	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  BEST OBSERVING WINDOW"))
	fmt.Fprintln(stdout, rule(50))

	if !res.Found {
		fmt.Fprintln(stdout, colorize(dim, "  No satellite is visible in any window."))
	} else {
		field("Window:", formatTime(*res.Start)+" → "+res.End.UTC().Format("15:04:05 UTC"))
		field("Visible:", colorize(green, fmt.Sprintf("%d satellites", res.Count)))
	}
	field("Policy:", req.Policy)
	field("Searched:", fmt.Sprintf("%d × %d min from %s, every %d min",
		req.Windows, req.Duration, formatTime(req.Start), req.SubInterval))
	field("Location:", fmt.Sprintf("%.4f, %.4f, %.0fm",
		req.Location.Latitude, req.Location.Longitude, req.Location.Altitude))
	switch {
	case s.Rejected > 0:
		field("Catalog:", fmt.Sprintf("%s (%d satellites, %d rejected)", req.Catalog, s.Catalog, s.Rejected))
	case s.Catalog > 0:
		field("Catalog:", fmt.Sprintf("%s (%d satellites)", req.Catalog, s.Catalog))
	default:
		field("Catalog:", req.Catalog)
	}

	if len(res.Satellites) > 0 {
		fmt.Fprintln(stdout)
		for i, name := range res.Satellites {
			fmt.Fprintf(stdout, "  %3d  %s\n", i+1, colorize(bold, name))
		}
	}
	fmt.Fprintln(stdout)
}
