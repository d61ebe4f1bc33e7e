// Package catalog retrieves and parses TLE satellite catalogs. A catalog is
// named by a URL, a file path, or an embedded handle, and comes back as a
// list of entries deduplicated by satellite name.
package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akhenakh/sgp4"

	"github.com/large-farva/skywindow/internal/logger"
	"github.com/large-farva/skywindow/internal/window"
)

// ErrUnavailable marks a catalog source that could not be reached or read.
// Loader errors wrap both this and window.ErrInvalidArgument.
var ErrUnavailable = errors.New("catalog unavailable")

// Entry is one satellite's element set as it appeared in the catalog.
type Entry struct {
	Name    string    `json:"name"     yaml:"name"`
	NoradID int       `json:"norad_id" yaml:"norad_id"`
	Epoch   time.Time `json:"epoch"    yaml:"epoch"`
	Line1   string    `json:"line1"    yaml:"line1"`
	Line2   string    `json:"line2"    yaml:"line2"`
}

// Text returns the entry in 3-line TLE form.
func (e Entry) Text() string {
	return e.Name + "\n" + e.Line1 + "\n" + e.Line2
}

// Parse reads TLE text. Groups are either a name line followed by the two
// element lines, or just the two element lines, in which case the name is
// derived from the NORAD catalog number. Groups the propagator cannot read
// are skipped and logged. A catalog with no usable group at all is invalid.
func Parse(raw []byte, log logger.Logger) ([]Entry, error) {
	if log == nil {
		log = logger.Nop()
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r\n\t ")
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading TLE data: %w", window.ErrInvalidArgument, err)
	}

	var (
		entries []Entry
		skipped int
	)
	for i := 0; i < len(lines); {
		var name, l1, l2 string
		switch {
		case i+1 < len(lines) && isLine(lines[i], '1') && isLine(lines[i+1], '2'):
			l1, l2 = lines[i], lines[i+1]
			i += 2
		case i+2 < len(lines) && isLine(lines[i+1], '1') && isLine(lines[i+2], '2'):
			name = cleanName(lines[i])
			l1, l2 = lines[i+1], lines[i+2]
			i += 3
		default:
			skipped++
			i++
			continue
		}

		e, err := newEntry(name, l1, l2)
		if err != nil {
			log.Warn("skipping malformed TLE entry",
				logger.String("name", name),
				logger.Error(err))
			skipped++
			continue
		}
		entries = append(entries, e)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no usable TLE entries in %d lines", window.ErrInvalidArgument, len(lines))
	}
	if skipped > 0 {
		log.Debug("TLE lines skipped", logger.Int("skipped", skipped), logger.Int("entries", len(entries)))
	}
	return entries, nil
}

func newEntry(name, l1, l2 string) (Entry, error) {
	l1 = strings.TrimSpace(l1)
	l2 = strings.TrimSpace(l2)
	if len(l1) < 32 {
		return Entry{}, fmt.Errorf("line 1 too short (%d chars)", len(l1))
	}

	id, err := strconv.Atoi(strings.TrimSpace(l1[2:7]))
	if err != nil {
		return Entry{}, fmt.Errorf("bad catalog number %q", l1[2:7])
	}
	if name == "" {
		name = fmt.Sprintf("NORAD %d", id)
	}

	epoch, err := parseEpoch(strings.TrimSpace(l1[18:32]))
	if err != nil {
		return Entry{}, err
	}

	if _, err := sgp4.ParseTLE(name + "\n" + l1 + "\n" + l2); err != nil {
		return Entry{}, err
	}

	return Entry{Name: name, NoradID: id, Epoch: epoch, Line1: l1, Line2: l2}, nil
}

func isLine(s string, n byte) bool {
	s = strings.TrimSpace(s)
	return len(s) > 2 && s[0] == n && s[1] == ' '
}

// cleanName strips the "0 " marker used by the 3LE variant.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0 ") {
		s = strings.TrimSpace(s[2:])
	}
	return s
}

// parseEpoch converts a YYDDD.DDDDDDDD epoch. Years 57-99 are 19xx.
func parseEpoch(s string) (time.Time, error) {
	if len(s) < 5 {
		return time.Time{}, fmt.Errorf("epoch %q too short", s)
	}
	year, err := strconv.Atoi(s[:2])
	if err != nil {
		return time.Time{}, fmt.Errorf("bad epoch year %q", s[:2])
	}
	if year >= 57 {
		year += 1900
	} else {
		year += 2000
	}
	day, err := strconv.ParseFloat(s[2:], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad epoch day %q", s[2:])
	}
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	return start.Add(time.Duration((day - 1) * float64(24*time.Hour))), nil
}

// Dedupe collapses entries that share a name. Each name keeps the position
// of its first occurrence and the elements of its last.
func Dedupe(entries []Entry) []Entry {
	index := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if i, ok := index[e.Name]; ok {
			out[i] = e
			continue
		}
		index[e.Name] = len(out)
		out = append(out, e)
	}
	return out
}
