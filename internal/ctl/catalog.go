package ctl

import (
	"fmt"
	"time"

	"github.com/large-farva/skywindow/internal/catalog"
	"github.com/large-farva/skywindow/internal/predict"
	"github.com/large-farva/skywindow/internal/window"
)

// CatalogList is the printable form of a fetched catalog.
type CatalogList struct {
	Source     string          `json:"source"     yaml:"source"`
	Count      int             `json:"count"      yaml:"count"`
	Satellites []catalog.Entry `json:"satellites" yaml:"satellites"`
}

// PrintCatalog lists catalog entries with their element epochs.
func PrintCatalog(out Output, src string, entries []catalog.Entry) error {
	if entries == nil {
		entries = []catalog.Entry{}
	}
	cl := CatalogList{Source: src, Count: len(entries), Satellites: entries}
	return render(out, cl, func() {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  SATELLITE CATALOG"))
		fmt.Fprintf(stdout, "  %s %s (%d satellites)\n", colorize(dim, "Source:"), src, len(entries))
		fmt.Fprintln(stdout, rule(60))

		t := newTable("  ", "Name", "NORAD ID", "Epoch")
		for _, e := range entries {
			t.row(e.Name, fmt.Sprintf("%d", e.NoradID), e.Epoch.UTC().Format("2006-01-02 15:04"))
		}
		t.flush()
		fmt.Fprintln(stdout)
	})
}

// VisibleList is the printable result of an instant sample.
type VisibleList struct {
	At         time.Time          `json:"at"         yaml:"at"`
	Location   window.Observer    `json:"location"   yaml:"location"`
	Count      int                `json:"count"      yaml:"count"`
	Satellites []predict.Sighting `json:"satellites" yaml:"satellites"`
}

// PrintVisible lists the satellites above the horizon at one instant.
func PrintVisible(out Output, vl VisibleList) error {
	if vl.Satellites == nil {
		vl.Satellites = []predict.Sighting{}
	}
	vl.Count = len(vl.Satellites)
	return render(out, vl, func() {
		fmt.Fprintln(stdout)
		fmt.Fprintln(stdout, header("  VISIBLE SATELLITES"))
		fmt.Fprintf(stdout, "  %s %s\n", colorize(dim, "At:      "), formatTime(vl.At))
		fmt.Fprintf(stdout, "  %s %.4f, %.4f, %.0fm\n", colorize(dim, "Station: "),
			vl.Location.Latitude, vl.Location.Longitude, vl.Location.Altitude)
		fmt.Fprintln(stdout, rule(60))

		if vl.Count == 0 {
			fmt.Fprintln(stdout, colorize(dim, "  Nothing above the horizon."))
			fmt.Fprintln(stdout)
			return
		}

		t := newTable("  ", "Name", "Altitude", "Azimuth", "Range")
		for _, s := range vl.Satellites {
			t.row(s.Name,
				fmt.Sprintf("%.1f°", s.Altitude),
				fmt.Sprintf("%.1f°", s.Azimuth),
				fmt.Sprintf("%.0f km", s.Range))
		}
		t.flush()
		fmt.Fprintln(stdout)
	})
}
