package ctl

import (
	"fmt"
	"time"

	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/window"
)

// PassList is the printable result of a pass prediction.
type PassList struct {
	From     time.Time       `json:"from"     yaml:"from"`
	To       time.Time       `json:"to"       yaml:"to"`
	Location window.Observer `json:"location" yaml:"location"`
	Passes   []predict.Pass  `json:"passes"   yaml:"passes"`
}

// PrintPasses renders satellite passes in AOS order.
func PrintPasses(out Output, pl PassList) error {
	if pl.Passes == nil {
		pl.Passes = []predict.Pass{}
	}
	return render(out, pl, func() { passesText(pl) })
}

func passesText(pl PassList) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, header("  SATELLITE PASSES"))
	fmt.Fprintf(stdout, "  %s %.4f, %.4f, %.0fm\n",
		colorize(dim, "Station:"),
		pl.Location.Latitude, pl.Location.Longitude, pl.Location.Altitude,
	)
	fmt.Fprintf(stdout, "  %s %s → %s\n", colorize(dim, "Range:  "), formatTime(pl.From), formatTime(pl.To))
	fmt.Fprintln(stdout, rule(76))

	if len(pl.Passes) == 0 {
		fmt.Fprintln(stdout, colorize(dim, "  No passes found."))
		fmt.Fprintln(stdout)
		return
	}

	t := newTable("  ", "#", "Satellite", "AOS", "LOS", "Max elev", "Duration")
	for i, p := range pl.Passes {
		t.row(
			fmt.Sprintf("%d", i+1),
			p.Satellite,
			formatTime(p.AOS),
			p.LOS.UTC().Format("15:04:05"),
			fmt.Sprintf("%.1f°", p.MaxElev),
			formatDuration(p.Duration),
		)
	}
	t.flush()
	fmt.Fprintln(stdout)
}
