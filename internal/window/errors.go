// Package window finds the best time window to observe satellites from a
// fixed ground location. The scan horizon is split into consecutive windows
// of fixed length, each window is sampled at a fixed sub-interval, and the
// window with the most visible satellites wins, counted either at the single
// best sample (peak) or across all samples (cumulative).
//
// Orbital propagation and catalog retrieval stay behind the Elements and
// CatalogSource interfaces; this package never does orbital mechanics itself.
package window

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the single error kind reported for bad input: out of
// range numbers, malformed locations or times, unusable catalogs, and values
// that are not satellites. Callers match it with errors.Is and read the
// wrapped message to find which precondition failed.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
